// Package ports defines the capability boundary between the control engine
// and the board. Real peripherals live in internal/hw; the fakes in this
// package replay scripted samples so the engine can be tested without
// hardware.
package ports

// AmbientLightSensor reads illuminance in lux.
type AmbientLightSensor interface {
	// ReadLux returns the current ambient illuminance. A failed read is an
	// expected condition (bus contention, transient EMI) and must be
	// reported, never substituted with a guess.
	ReadLux() (float64, error)

	// Close releases sensor resources.
	Close() error
}

// PresenceSensor reads the raw occupancy signal from the radar module.
// While the module's supply rail is switched off, reads fail; they must not
// report a quiet false.
type PresenceSensor interface {
	Read() (bool, error)
	Close() error
}

// BrightnessSink drives the LED bar. Level is the logical ramp level in
// [0, maxLevel]; the sink owns the perceptual power curve and any active-low
// inversion required by the driver circuit.
type BrightnessSink interface {
	SetLevel(level int) error
	Close() error
}

// SupplySwitch gates the presence sensor's supply rail.
type SupplySwitch interface {
	Set(on bool) error
	Close() error
}
