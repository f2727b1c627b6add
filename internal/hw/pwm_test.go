package hw

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSink(t *testing.T, activeLow bool) *PWMSink {
	t.Helper()
	dir := t.TempDir()
	s := &PWMSink{
		channelPath: dir,
		dutyPath:    filepath.Join(dir, "duty_cycle"),
		periodNs:    200000, // 5 kHz
		maxDuty:     4095,
		maxLevel:    1000,
		activeLow:   activeLow,
		scale:       4095 / powerCurve(1000),
	}
	require.NoError(t, os.WriteFile(s.dutyPath, []byte("0"), 0o644))
	return s
}

func readDuty(t *testing.T, s *PWMSink) string {
	t.Helper()
	data, err := os.ReadFile(s.dutyPath)
	require.NoError(t, err)
	return string(data)
}

func TestPowerCurve(t *testing.T) {
	assert.Zero(t, powerCurve(0))

	// Strictly increasing, with the steepest part at the low end.
	assert.Less(t, powerCurve(10), powerCurve(100))
	assert.Less(t, powerCurve(100), powerCurve(1000))
	assert.Greater(t, powerCurve(100)-powerCurve(0), powerCurve(1000)-powerCurve(900))
}

func TestDutyTicksActiveHigh(t *testing.T) {
	s := testSink(t, false)

	assert.Equal(t, 0, s.dutyTicks(0))
	assert.Equal(t, 4095, s.dutyTicks(s.maxLevel))

	// The log curve spends duty generously at low levels, so the midpoint
	// lands well above half duty.
	assert.Greater(t, s.dutyTicks(500), 4095/2)

	prev := -1
	for level := 0; level <= s.maxLevel; level += 50 {
		duty := s.dutyTicks(level)
		assert.GreaterOrEqual(t, duty, prev, "duty must not decrease at level %d", level)
		assert.LessOrEqual(t, duty, s.maxDuty)
		prev = duty
	}
}

func TestDutyTicksActiveLowInverts(t *testing.T) {
	high := testSink(t, false)
	low := testSink(t, true)

	assert.Equal(t, 4095, low.dutyTicks(0))
	assert.Equal(t, 0, low.dutyTicks(low.maxLevel))

	for level := 0; level <= low.maxLevel; level += 125 {
		assert.Equal(t, 4095, high.dutyTicks(level)+low.dutyTicks(level),
			"inversion must mirror around max duty at level %d", level)
	}
}

func TestSetLevelWritesScaledDuty(t *testing.T) {
	s := testSink(t, false)

	require.NoError(t, s.SetLevel(s.maxLevel))
	assert.Equal(t, "200000", readDuty(t, s), "full level is the whole period")

	require.NoError(t, s.SetLevel(0))
	assert.Equal(t, "0", readDuty(t, s))
}

func TestSetLevelClampsOutOfRange(t *testing.T) {
	s := testSink(t, false)

	require.NoError(t, s.SetLevel(5000))
	assert.Equal(t, "200000", readDuty(t, s))

	require.NoError(t, s.SetLevel(-3))
	assert.Equal(t, "0", readDuty(t, s))
}

func TestActiveLowSetLevel(t *testing.T) {
	s := testSink(t, true)

	require.NoError(t, s.SetLevel(0))
	assert.Equal(t, "200000", readDuty(t, s), "dark means pin held high")

	require.NoError(t, s.SetLevel(s.maxLevel))
	assert.Equal(t, "0", readDuty(t, s), "full brightness means pin held low")
}

func TestCloseDrivesBarDark(t *testing.T) {
	s := testSink(t, true)
	require.NoError(t, s.SetLevel(s.maxLevel))

	require.NoError(t, s.Close())
	assert.Equal(t, "200000", readDuty(t, s))
}

func TestSetLevelSurfacesWriteFailure(t *testing.T) {
	s := testSink(t, false)
	s.dutyPath = filepath.Join(s.channelPath, "missing", "duty_cycle")

	err := s.SetLevel(100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write pwm duty_cycle")
}
