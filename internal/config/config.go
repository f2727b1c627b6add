package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Control shapes the tick loop itself.
type Control struct {
	TickIntervalMs    int `yaml:"tick_interval_ms"`
	StatusIntervalSec int `yaml:"status_interval_sec"`
}

// Light tunes the ambient light filter and its Dark/Bright hysteresis band.
type Light struct {
	SmoothingAlpha  float64 `yaml:"smoothing_alpha"`
	DarkThreshold   float64 `yaml:"dark_threshold"`
	BrightThreshold float64 `yaml:"bright_threshold"`
	MaxStaleSamples int     `yaml:"max_stale_samples"`
}

// Presence tunes the debouncer. Hold is how long the raw signal must stay
// false before the controller concludes nobody is there.
type Presence struct {
	HoldSec int `yaml:"hold_sec"`
}

// Ramp bounds how fast brightness may change, in levels per tick.
type Ramp struct {
	MaxLevel int `yaml:"max_level"`
	UpStep   int `yaml:"up_step"`
	DownStep int `yaml:"down_step"`
}

// SensorPower governs duty-cycling of the radar module's supply rail.
type SensorPower struct {
	IdleHysteresisSec int `yaml:"idle_hysteresis_sec"`
	DutyOnSec         int `yaml:"duty_on_sec"`
	DutyOffSec        int `yaml:"duty_off_sec"`
}

// Hardware binds the four peripheral ports to the board.
type Hardware struct {
	GPIOChip      string `yaml:"gpio_chip"`
	PresencePin   int    `yaml:"presence_pin"`
	SupplyPin     int    `yaml:"supply_pin"`
	LuxPath       string `yaml:"lux_path"`
	PWMChip       string `yaml:"pwm_chip"`
	PWMChannel    int    `yaml:"pwm_channel"`
	PWMFreqHz     int    `yaml:"pwm_freq_hz"`
	PWMMaxDuty    int    `yaml:"pwm_max_duty"`
	PWMActiveLow  bool   `yaml:"pwm_active_low"`
	ReadRetries   int    `yaml:"read_retries"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Metrics struct {
	Enabled   bool     `yaml:"enabled"`
	AgentAddr string   `yaml:"agent_addr"`
	Namespace string   `yaml:"namespace"`
	Tags      []string `yaml:"tags"`
}

type Recorder struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Service describes how the controller is installed under systemd.
type Service struct {
	UnitPath string `yaml:"unit_path"`
	User     string `yaml:"user"`
	WorkDir  string `yaml:"work_dir"`
}

type Config struct {
	ConfigFile     string        `yaml:"-"`
	LogLevel       zerolog.Level `yaml:"-"`
	InstallService bool          `yaml:"-"`

	Control     Control     `yaml:"control"`
	Light       Light       `yaml:"light"`
	Presence    Presence    `yaml:"presence"`
	Ramp        Ramp        `yaml:"ramp"`
	SensorPower SensorPower `yaml:"sensor_power"`
	Hardware    Hardware    `yaml:"hardware"`
	Log         Log         `yaml:"log"`
	Metrics     Metrics     `yaml:"metrics"`
	Recorder    Recorder    `yaml:"recorder"`
	Service     Service     `yaml:"service"`
}

// Load parses flags, reads the YAML config file and validates it. An invalid
// configuration is an error: the controller must not start on one.
func Load() (*Config, error) {
	var path, logLevel string
	var installService bool

	flag.StringVar(&path, "config", "config.yaml", "Path to controller config file")
	flag.StringVar(&logLevel, "log-level", "", "Override configured log level (debug, info, warn, error)")
	flag.BoolVar(&installService, "install-service", false, "Write and enable the systemd unit, then exit")
	flag.Parse()

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	cfg.LogLevel = parseLogLevel(cfg.Log.Level)
	cfg.InstallService = installService
	return cfg, nil
}

// LoadFile reads and validates a config file without touching flags.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{ConfigFile: path}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.LogLevel = parseLogLevel(cfg.Log.Level)
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Control.TickIntervalMs == 0 {
		c.Control.TickIntervalMs = 50
	}
	if c.Control.StatusIntervalSec == 0 {
		c.Control.StatusIntervalSec = 2
	}
	if c.Light.SmoothingAlpha == 0 {
		c.Light.SmoothingAlpha = 0.3
	}
	if c.Light.DarkThreshold == 0 {
		c.Light.DarkThreshold = 20
	}
	if c.Light.BrightThreshold == 0 {
		c.Light.BrightThreshold = 50
	}
	if c.Light.MaxStaleSamples == 0 {
		c.Light.MaxStaleSamples = 100
	}
	if c.Presence.HoldSec == 0 {
		c.Presence.HoldSec = 10
	}
	if c.Ramp.MaxLevel == 0 {
		c.Ramp.MaxLevel = 1000
	}
	if c.Ramp.UpStep == 0 {
		c.Ramp.UpStep = 10
	}
	if c.Ramp.DownStep == 0 {
		c.Ramp.DownStep = 5
	}
	if c.SensorPower.IdleHysteresisSec == 0 {
		c.SensorPower.IdleHysteresisSec = 120
	}
	if c.SensorPower.DutyOnSec == 0 {
		c.SensorPower.DutyOnSec = 30
	}
	if c.SensorPower.DutyOffSec == 0 {
		c.SensorPower.DutyOffSec = 90
	}
	if c.Hardware.GPIOChip == "" {
		c.Hardware.GPIOChip = "gpiochip0"
	}
	if c.Hardware.PresencePin == 0 {
		c.Hardware.PresencePin = 1
	}
	if c.Hardware.SupplyPin == 0 {
		c.Hardware.SupplyPin = 12
	}
	if c.Hardware.LuxPath == "" {
		c.Hardware.LuxPath = "/sys/bus/iio/devices/iio:device0/in_illuminance_input"
	}
	if c.Hardware.PWMChip == "" {
		c.Hardware.PWMChip = "pwmchip0"
	}
	if c.Hardware.PWMFreqHz == 0 {
		c.Hardware.PWMFreqHz = 5000
	}
	if c.Hardware.PWMMaxDuty == 0 {
		c.Hardware.PWMMaxDuty = 4095
	}
	if c.Hardware.ReadRetries == 0 {
		c.Hardware.ReadRetries = 3
	}
	if c.Hardware.ReadTimeoutMs == 0 {
		c.Hardware.ReadTimeoutMs = 250
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "lightbar."
	}
	if c.Recorder.Path == "" {
		c.Recorder.Path = "data/lightbar.db"
	}
	if c.Service.UnitPath == "" {
		c.Service.UnitPath = "/etc/systemd/system/lightbar-controller.service"
	}
	if c.Service.User == "" {
		c.Service.User = "root"
	}
	if c.Service.WorkDir == "" {
		c.Service.WorkDir = "/opt/lightbar-controller"
	}
}

func (c *Config) validate() error {
	var problems []string

	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Control.TickIntervalMs <= 0 {
		add("control.tick_interval_ms must be positive, got %d", c.Control.TickIntervalMs)
	}
	if c.Control.StatusIntervalSec <= 0 {
		add("control.status_interval_sec must be positive, got %d", c.Control.StatusIntervalSec)
	}
	if c.Light.SmoothingAlpha <= 0 || c.Light.SmoothingAlpha > 1 {
		add("light.smoothing_alpha must be in (0, 1], got %g", c.Light.SmoothingAlpha)
	}
	if c.Light.DarkThreshold >= c.Light.BrightThreshold {
		add("light.dark_threshold (%g) must be below light.bright_threshold (%g)",
			c.Light.DarkThreshold, c.Light.BrightThreshold)
	}
	if c.Light.DarkThreshold < 0 {
		add("light.dark_threshold must not be negative, got %g", c.Light.DarkThreshold)
	}
	if c.Light.MaxStaleSamples <= 0 {
		add("light.max_stale_samples must be positive, got %d", c.Light.MaxStaleSamples)
	}
	if c.Presence.HoldSec <= 0 {
		add("presence.hold_sec must be positive, got %d", c.Presence.HoldSec)
	}
	if c.Ramp.MaxLevel <= 0 {
		add("ramp.max_level must be positive, got %d", c.Ramp.MaxLevel)
	}
	if c.Ramp.UpStep <= 0 || c.Ramp.DownStep <= 0 {
		add("ramp.up_step and ramp.down_step must be positive, got %d and %d",
			c.Ramp.UpStep, c.Ramp.DownStep)
	}
	if c.SensorPower.IdleHysteresisSec <= 0 {
		add("sensor_power.idle_hysteresis_sec must be positive, got %d", c.SensorPower.IdleHysteresisSec)
	}
	if c.SensorPower.DutyOnSec <= 0 {
		add("sensor_power.duty_on_sec must be positive, got %d", c.SensorPower.DutyOnSec)
	}
	if c.SensorPower.DutyOffSec <= 0 {
		add("sensor_power.duty_off_sec must be positive, got %d", c.SensorPower.DutyOffSec)
	}
	if c.Hardware.PresencePin == c.Hardware.SupplyPin {
		add("hardware.presence_pin and hardware.supply_pin both use GPIO %d", c.Hardware.PresencePin)
	}
	if c.Hardware.PWMFreqHz <= 0 {
		add("hardware.pwm_freq_hz must be positive, got %d", c.Hardware.PWMFreqHz)
	}
	if c.Hardware.PWMMaxDuty <= 0 {
		add("hardware.pwm_max_duty must be positive, got %d", c.Hardware.PWMMaxDuty)
	}
	if c.Hardware.ReadRetries < 0 {
		add("hardware.read_retries must not be negative, got %d", c.Hardware.ReadRetries)
	}
	if c.Hardware.ReadTimeoutMs <= 0 {
		add("hardware.read_timeout_ms must be positive, got %d", c.Hardware.ReadTimeoutMs)
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Duration accessors. Config keeps unit-suffixed integers (YAML stays plain
// numbers); everything downstream works in time.Duration.

func (c Control) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

func (c Control) StatusInterval() time.Duration {
	return time.Duration(c.StatusIntervalSec) * time.Second
}

func (p Presence) Hold() time.Duration {
	return time.Duration(p.HoldSec) * time.Second
}

func (s SensorPower) IdleHysteresis() time.Duration {
	return time.Duration(s.IdleHysteresisSec) * time.Second
}

func (s SensorPower) DutyOn() time.Duration {
	return time.Duration(s.DutyOnSec) * time.Second
}

func (s SensorPower) DutyOff() time.Duration {
	return time.Duration(s.DutyOffSec) * time.Second
}

func (h Hardware) ReadTimeout() time.Duration {
	return time.Duration(h.ReadTimeoutMs) * time.Millisecond
}
