//go:build linux

package hw

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// PresenceGPIO reads the radar module's detection output. The line is
// requested with a pull-down so it rests low whenever the module's supply
// rail is cut.
type PresenceGPIO struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func NewPresenceGPIO(chipName string, pin int) (*PresenceGPIO, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request presence pin %d: %w", pin, err)
	}

	return &PresenceGPIO{chip: chip, line: line}, nil
}

func (p *PresenceGPIO) Read() (bool, error) {
	v, err := p.line.Value()
	if err != nil {
		return false, fmt.Errorf("read presence pin: %w", err)
	}
	return v == 1, nil
}

func (p *PresenceGPIO) Close() error {
	var errs []error
	if p.line != nil {
		if err := p.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close presence line: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// SupplyGPIO switches the radar module's supply rail. High powers the
// module; the line is requested high so the sensor is warming up from the
// moment the controller owns the pin.
type SupplyGPIO struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func NewSupplyGPIO(chipName string, pin int) (*SupplyGPIO, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(1))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request supply pin %d: %w", pin, err)
	}

	return &SupplyGPIO{chip: chip, line: line}, nil
}

func (s *SupplyGPIO) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := s.line.SetValue(v); err != nil {
		return fmt.Errorf("set supply pin: %w", err)
	}
	return nil
}

func (s *SupplyGPIO) Close() error {
	var errs []error
	if s.line != nil {
		if err := s.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close supply line: %w", err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
