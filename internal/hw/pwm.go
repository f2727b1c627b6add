package hw

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/lightbar-controller/internal/config"
)

// PWMSink drives the LED bar through a sysfs PWM channel. Logical levels in
// [0, maxLevel] map onto duty through a logarithmic curve so equal level
// steps read as roughly equal brightness steps to the eye, and the duty is
// inverted when the gate driver circuit wants the pin low to open the
// MOSFET.
type PWMSink struct {
	channelPath string
	dutyPath    string
	periodNs    int64
	maxDuty     int
	maxLevel    int
	activeLow   bool
	scale       float64
}

func NewPWMSink(cfg config.Hardware, maxLevel int) (*PWMSink, error) {
	chipPath := filepath.Join("/sys/class/pwm", cfg.PWMChip)
	channelPath := filepath.Join(chipPath, fmt.Sprintf("pwm%d", cfg.PWMChannel))

	if err := exportChannel(chipPath, cfg.PWMChannel); err != nil {
		return nil, err
	}

	s := &PWMSink{
		channelPath: channelPath,
		dutyPath:    filepath.Join(channelPath, "duty_cycle"),
		periodNs:    int64(time.Second) / int64(cfg.PWMFreqHz),
		maxDuty:     cfg.PWMMaxDuty,
		maxLevel:    maxLevel,
		activeLow:   cfg.PWMActiveLow,
		scale:       float64(cfg.PWMMaxDuty) / powerCurve(float64(maxLevel)),
	}

	log.Info().
		Int64("period_ns", s.periodNs).
		Int("max_duty", s.maxDuty).
		Int("max_level", s.maxLevel).
		Bool("active_low", s.activeLow).
		Float64("curve_scale", s.scale).
		Msg("PWM sink configured")

	// A leftover duty from a previous run can exceed the new period, and
	// the kernel rejects that, so zero the duty before writing the period.
	if err := writeAttr(channelPath, "duty_cycle", "0"); err != nil {
		return nil, err
	}
	if err := writeAttr(channelPath, "period", strconv.FormatInt(s.periodNs, 10)); err != nil {
		return nil, err
	}
	if err := s.SetLevel(0); err != nil {
		return nil, err
	}
	if err := writeAttr(channelPath, "enable", "1"); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PWMSink) SetLevel(level int) error {
	if level < 0 {
		level = 0
	}
	if level > s.maxLevel {
		level = s.maxLevel
	}

	dutyNs := s.periodNs * int64(s.dutyTicks(level)) / int64(s.maxDuty)
	if err := os.WriteFile(s.dutyPath, []byte(strconv.FormatInt(dutyNs, 10)), 0644); err != nil {
		return fmt.Errorf("write pwm duty_cycle: %w", err)
	}
	return nil
}

// Close drives the bar dark and leaves the channel enabled. Disabling it
// would stop driving the pin, and on an active-low driver a floating pin
// can switch the bar fully on.
func (s *PWMSink) Close() error {
	return s.SetLevel(0)
}

func (s *PWMSink) dutyTicks(level int) int {
	duty := int(math.Round(powerCurve(float64(level)) * s.scale))
	if duty > s.maxDuty {
		duty = s.maxDuty
	}
	if s.activeLow {
		duty = s.maxDuty - duty
	}
	return duty
}

// powerCurve maps a linear level onto perceived brightness. The divisor
// stretches the low end of the range, where the eye distinguishes the most.
func powerCurve(level float64) float64 {
	return math.Log(level/50.0 + 1)
}

func exportChannel(chipPath string, channel int) error {
	channelPath := filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel))
	if _, err := os.Stat(channelPath); err == nil {
		return nil
	}

	if err := os.WriteFile(filepath.Join(chipPath, "export"), []byte(strconv.Itoa(channel)), 0644); err != nil {
		return fmt.Errorf("export pwm channel %d: %w", channel, err)
	}

	// The kernel creates the channel directory asynchronously.
	for i := 0; i < 50; i++ {
		if _, err := os.Stat(channelPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("pwm channel %d did not appear under %s", channel, chipPath)
}

func writeAttr(dir, name, value string) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
