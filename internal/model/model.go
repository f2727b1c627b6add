package model

import "time"

type LightClass string

const (
	LightDark   LightClass = "dark"
	LightBright LightClass = "bright"
)

type PresenceState string

const (
	Present PresenceState = "present"
	Absent  PresenceState = "absent"
)

type PowerState string

const (
	PowerOn  PowerState = "on"
	PowerOff PowerState = "off"
)

// Phase is the dim engine state. Brightness only ever changes while ramping.
type Phase string

const (
	PhaseOff         Phase = "off"
	PhaseRampingUp   Phase = "ramping_up"
	PhaseOn          Phase = "on"
	PhaseRampingDown Phase = "ramping_down"
)

// Snapshot is a point-in-time view of the whole controller, taken once per
// tick for status logging, metrics and the flight recorder. It carries no
// behavior and is never read back into control decisions.
type Snapshot struct {
	Time        time.Time
	RawLux      float64
	FilteredLux float64
	LuxStale    int
	Light       LightClass
	Presence    PresenceState
	RawPresence bool
	Phase       Phase
	Level       int
	Target      int
	SensorPower PowerState
}
