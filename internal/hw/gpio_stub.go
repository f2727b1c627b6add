//go:build !linux

package hw

import "errors"

var errNotLinux = errors.New("hw: gpio requires Linux")

// PresenceGPIO is not available on non-Linux platforms.
type PresenceGPIO struct{}

func NewPresenceGPIO(chipName string, pin int) (*PresenceGPIO, error) {
	return nil, errNotLinux
}

func (p *PresenceGPIO) Read() (bool, error) { return false, errNotLinux }

func (p *PresenceGPIO) Close() error { return nil }

// SupplyGPIO is not available on non-Linux platforms.
type SupplyGPIO struct{}

func NewSupplyGPIO(chipName string, pin int) (*SupplyGPIO, error) {
	return nil, errNotLinux
}

func (s *SupplyGPIO) Set(on bool) error { return errNotLinux }

func (s *SupplyGPIO) Close() error { return nil }
