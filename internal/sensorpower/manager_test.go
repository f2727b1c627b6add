package sensorpower

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/lightbar-controller/internal/config"
	"github.com/thatsimonsguy/lightbar-controller/internal/model"
	"github.com/thatsimonsguy/lightbar-controller/internal/ports"
)

var base = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func testPowerConfig() config.SensorPower {
	return config.SensorPower{
		IdleHysteresisSec: 120,
		DutyOnSec:         30,
		DutyOffSec:        90,
	}
}

func newTestManager(t *testing.T) (*Manager, *ports.FakeSupplySwitch) {
	t.Helper()
	sw := &ports.FakeSupplySwitch{}
	m := New(testPowerConfig(), 10*time.Second, sw)
	require.NoError(t, m.Start(base))
	return m, sw
}

func update(t *testing.T, m *Manager, at time.Duration, class model.LightClass, phase model.Phase) model.PowerState {
	t.Helper()
	state, err := m.Update(base.Add(at), class, phase)
	require.NoError(t, err)
	return state
}

func TestStartPowersRail(t *testing.T) {
	m, sw := newTestManager(t)

	assert.Equal(t, model.PowerOn, m.State())
	assert.True(t, sw.On)
	assert.Equal(t, []bool{true}, sw.History)
}

func TestNeverPowersOffWhileDark(t *testing.T) {
	m, sw := newTestManager(t)

	update(t, m, 0, model.LightDark, model.PhaseOff)
	update(t, m, time.Hour, model.LightDark, model.PhaseOff)

	assert.Equal(t, model.PowerOn, m.State())
	assert.Equal(t, []bool{true}, sw.History, "no writes without a transition")
}

func TestNeverPowersOffWhileRampInProgress(t *testing.T) {
	m, _ := newTestManager(t)

	got := update(t, m, 2*time.Hour, model.LightBright, model.PhaseRampingDown)
	assert.Equal(t, model.PowerOn, got)
}

func TestPowersOffOnceBrightHeldThroughIdleHysteresis(t *testing.T) {
	m, sw := newTestManager(t)

	got := update(t, m, 119*time.Second, model.LightBright, model.PhaseOff)
	assert.Equal(t, model.PowerOn, got, "hysteresis not yet served")

	got = update(t, m, 120*time.Second, model.LightBright, model.PhaseOff)
	assert.Equal(t, model.PowerOff, got)
	assert.Equal(t, []bool{true, false}, sw.History)
}

func TestDutyCycleInSteadyBright(t *testing.T) {
	m, sw := newTestManager(t)

	update(t, m, 120*time.Second, model.LightBright, model.PhaseOff)
	require.Equal(t, model.PowerOff, m.State())

	// Never off longer than the off window.
	got := update(t, m, 120*time.Second+89*time.Second, model.LightBright, model.PhaseOff)
	assert.Equal(t, model.PowerOff, got)

	got = update(t, m, 120*time.Second+90*time.Second, model.LightBright, model.PhaseOff)
	assert.Equal(t, model.PowerOn, got, "wakes on schedule")

	// Held on through the minimum on window, then off again.
	wake := 210 * time.Second
	got = update(t, m, wake+29*time.Second, model.LightBright, model.PhaseOff)
	assert.Equal(t, model.PowerOn, got)

	got = update(t, m, wake+30*time.Second, model.LightBright, model.PhaseOff)
	assert.Equal(t, model.PowerOff, got)

	assert.Equal(t, []bool{true, false, true, false}, sw.History)
}

func TestWakesImmediatelyWhenRoomGoesDark(t *testing.T) {
	m, _ := newTestManager(t)

	update(t, m, 120*time.Second, model.LightBright, model.PhaseOff)
	require.Equal(t, model.PowerOff, m.State())

	got := update(t, m, 121*time.Second, model.LightDark, model.PhaseOff)
	assert.Equal(t, model.PowerOn, got, "dark room needs the sensor now, not at the next duty window")
}

func TestTrustWindowAfterPowerOn(t *testing.T) {
	m, _ := newTestManager(t)

	assert.False(t, m.Trusted(base), "boot counts as a power-on")
	assert.False(t, m.Trusted(base.Add(9*time.Second)))
	assert.True(t, m.Trusted(base.Add(10*time.Second)))

	// Duty cycle off and back on resets the window.
	update(t, m, 120*time.Second, model.LightBright, model.PhaseOff)
	assert.False(t, m.Trusted(base.Add(125*time.Second)), "never trusted while off")

	update(t, m, 210*time.Second, model.LightBright, model.PhaseOff)
	require.Equal(t, model.PowerOn, m.State())
	assert.False(t, m.Trusted(base.Add(215*time.Second)))
	assert.True(t, m.Trusted(base.Add(220*time.Second)))
}

func TestSwitchWriteFailureSurfaces(t *testing.T) {
	sw := &ports.FakeSupplySwitch{SetErr: errors.New("line released")}
	m := New(testPowerConfig(), 10*time.Second, sw)

	err := m.Start(base)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line released")

	sw.SetErr = nil
	require.NoError(t, m.Start(base))

	sw.SetErr = errors.New("line released")
	_, err = m.Update(base.Add(120*time.Second), model.LightBright, model.PhaseOff)
	require.Error(t, err)
	assert.Equal(t, model.PowerOn, m.State(), "state unchanged when the write fails")
}
