// Package hw implements the peripheral ports against real Linux interfaces:
// the ambient light sensor through its IIO sysfs attribute, the radar
// presence signal and its supply rail through the GPIO character device,
// and the LED bar through sysfs PWM.
package hw

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/lightbar-controller/internal/config"
)

// AmbientSensor reads illuminance from an IIO device attribute, typically
// a VEML7700 exposed as in_illuminance_input. Transient bus failures are
// retried within a bounded window; exhausting it fails the read and leaves
// the fallback policy to the caller.
type AmbientSensor struct {
	path       string
	retries    int
	timeout    time.Duration
	retryDelay time.Duration
}

func NewAmbientSensor(cfg config.Hardware) *AmbientSensor {
	return &AmbientSensor{
		path:       cfg.LuxPath,
		retries:    cfg.ReadRetries,
		timeout:    cfg.ReadTimeout(),
		retryDelay: 5 * time.Millisecond,
	}
}

func (s *AmbientSensor) ReadLux() (float64, error) {
	deadline := time.Now().Add(s.timeout)

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		lux, err := readIlluminance(s.path)
		if err == nil {
			return lux, nil
		}
		lastErr = err
		log.Debug().Err(err).Int("attempt", attempt+1).Msg("Ambient light read attempt failed")

		if attempt == s.retries || time.Now().After(deadline) {
			break
		}
		time.Sleep(s.retryDelay)
	}

	return 0, fmt.Errorf("read ambient light from %s: %w", s.path, lastErr)
}

func (s *AmbientSensor) Close() error { return nil }

func readIlluminance(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	lux, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse illuminance value %q: %w", strings.TrimSpace(string(data)), err)
	}
	if lux < 0 {
		return 0, fmt.Errorf("illuminance value %g out of range", lux)
	}
	return lux, nil
}
