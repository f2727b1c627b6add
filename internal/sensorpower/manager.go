package sensorpower

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/lightbar-controller/internal/config"
	"github.com/thatsimonsguy/lightbar-controller/internal/datadog"
	"github.com/thatsimonsguy/lightbar-controller/internal/model"
	"github.com/thatsimonsguy/lightbar-controller/internal/ports"
)

// Manager duty-cycles the presence sensor's supply rail. The radar module
// draws continuous current, and in the "room is bright, bar is off" regime
// its output changes nothing, so the rail is powered down for dutyOff at a
// time once the bright classification has held for the idle hysteresis. The
// rail is never cut while the room is dark or a ramp is moving, and after
// every power-up the sensor gets a full debounce window to settle before
// its readings are trusted.
//
// The supply switch is written here and nowhere else.
type Manager struct {
	idleHysteresis time.Duration
	dutyOn         time.Duration
	dutyOff        time.Duration
	trustWindow    time.Duration

	supply ports.SupplySwitch

	state          model.PowerState
	changedAt      time.Time
	class          model.LightClass
	classChangedAt time.Time
}

func New(cfg config.SensorPower, trustWindow time.Duration, supply ports.SupplySwitch) *Manager {
	return &Manager{
		idleHysteresis: cfg.IdleHysteresis(),
		dutyOn:         cfg.DutyOn(),
		dutyOff:        cfg.DutyOff(),
		trustWindow:    trustWindow,
		supply:         supply,
		state:          model.PowerOn,
		class:          model.LightBright,
	}
}

// Start drives the rail on before the first tick. Boot counts as a
// power-on, so the trust window applies from here.
func (m *Manager) Start(now time.Time) error {
	if err := m.supply.Set(true); err != nil {
		return fmt.Errorf("power on presence sensor: %w", err)
	}
	m.state = model.PowerOn
	m.changedAt = now
	m.classChangedAt = now
	return nil
}

// Update decides the rail state for the upcoming window and switches it on
// a change. A switch write failure is returned to the caller; it is fatal
// there.
func (m *Manager) Update(now time.Time, class model.LightClass, phase model.Phase) (model.PowerState, error) {
	if class != m.class {
		m.class = class
		m.classChangedAt = now
	}

	desired := m.evaluate(now, phase)
	if desired == m.state {
		return m.state, nil
	}

	if err := m.supply.Set(desired == model.PowerOn); err != nil {
		return m.state, fmt.Errorf("switch presence sensor supply %s: %w", desired, err)
	}

	log.Info().
		Str("from", string(m.state)).
		Str("to", string(desired)).
		Dur("in_previous_state", now.Sub(m.changedAt)).
		Msg("Presence sensor supply switched")
	datadog.Count("sensor_power.transitions", 1, "to:"+string(desired))

	m.state = desired
	m.changedAt = now
	return m.state, nil
}

func (m *Manager) evaluate(now time.Time, phase model.Phase) model.PowerState {
	if m.state == model.PowerOff {
		// Wake on schedule, or immediately if the sensor is needed.
		if m.class == model.LightDark || phase != model.PhaseOff {
			return model.PowerOn
		}
		if now.Sub(m.changedAt) >= m.dutyOff {
			return model.PowerOn
		}
		return model.PowerOff
	}

	// Powering down requires every gate to pass: the room is bright, the
	// bar is fully off, the bright classification has outlived the idle
	// hysteresis, and the rail has been on for its minimum window.
	if m.class == model.LightDark || phase != model.PhaseOff {
		return model.PowerOn
	}
	if now.Sub(m.classChangedAt) < m.idleHysteresis {
		return model.PowerOn
	}
	if now.Sub(m.changedAt) < m.dutyOn {
		return model.PowerOn
	}
	return model.PowerOff
}

// Trusted reports whether presence readings may be acted on yet: the rail
// must be on and must have been on for at least one full debounce window.
func (m *Manager) Trusted(now time.Time) bool {
	return m.state == model.PowerOn && now.Sub(m.changedAt) >= m.trustWindow
}

// State returns the current rail state.
func (m *Manager) State() model.PowerState { return m.state }
