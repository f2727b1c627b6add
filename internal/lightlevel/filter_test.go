package lightlevel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thatsimonsguy/lightbar-controller/internal/config"
	"github.com/thatsimonsguy/lightbar-controller/internal/model"
)

func testConfig() config.Light {
	return config.Light{
		SmoothingAlpha:  1.0, // no smoothing, classification logic in isolation
		DarkThreshold:   100,
		BrightThreshold: 300,
		MaxStaleSamples: 3,
	}
}

func TestBootsBright(t *testing.T) {
	f := New(testConfig())
	assert.Equal(t, model.LightBright, f.Class())
}

func TestSeedsFromFirstSample(t *testing.T) {
	cfg := testConfig()
	cfg.SmoothingAlpha = 0.3
	f := New(cfg)

	f.Update(500)
	assert.Equal(t, 500.0, f.FilteredLux(), "first sample seeds the average directly")
}

func TestSmoothingFollowsMovingAverage(t *testing.T) {
	cfg := testConfig()
	cfg.SmoothingAlpha = 0.5
	f := New(cfg)

	f.Update(100)
	f.Update(200)
	assert.InDelta(t, 150.0, f.FilteredLux(), 1e-9)

	f.Update(100)
	assert.InDelta(t, 125.0, f.FilteredLux(), 1e-9)
}

func TestClassificationSequences(t *testing.T) {
	scenarios := []struct {
		name     string
		samples  []float64
		expected []model.LightClass
	}{
		{
			name:     "stays bright inside the band from boot",
			samples:  []float64{200, 150, 299},
			expected: []model.LightClass{model.LightBright, model.LightBright, model.LightBright},
		},
		{
			name:     "flips dark below the dark threshold",
			samples:  []float64{200, 50},
			expected: []model.LightClass{model.LightBright, model.LightDark},
		},
		{
			name:     "dark holds anywhere inside the band",
			samples:  []float64{50, 150, 299, 101, 250},
			expected: []model.LightClass{model.LightDark, model.LightDark, model.LightDark, model.LightDark, model.LightDark},
		},
		{
			name:     "dark flips bright only above the bright threshold",
			samples:  []float64{50, 300, 301},
			expected: []model.LightClass{model.LightDark, model.LightDark, model.LightBright},
		},
		{
			name:     "bright holds at exactly the dark threshold",
			samples:  []float64{200, 100},
			expected: []model.LightClass{model.LightBright, model.LightBright},
		},
		{
			name:     "round trip dark and back",
			samples:  []float64{500, 50, 200, 500, 200},
			expected: []model.LightClass{model.LightBright, model.LightDark, model.LightDark, model.LightBright, model.LightBright},
		},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			f := New(testConfig())
			for i, s := range sc.samples {
				got := f.Update(s)
				assert.Equal(t, sc.expected[i], got, "sample %d (%.0f lux)", i, s)
			}
		})
	}
}

func TestStaleReadingsKeepPreviousValue(t *testing.T) {
	f := New(testConfig())

	f.Update(50)
	assert.Equal(t, model.LightDark, f.Class())

	for i := 1; i <= 3; i++ {
		got := f.MarkStale()
		assert.Equal(t, model.LightDark, got, "stale sample %d still within bound", i)
		assert.Equal(t, i, f.StaleCount())
	}
	assert.Equal(t, 50.0, f.FilteredLux(), "failed reads must not move the average")
}

func TestStaleBeyondBoundFailsSafeToBright(t *testing.T) {
	f := New(testConfig())

	f.Update(50)
	for i := 0; i < 3; i++ {
		f.MarkStale()
	}
	assert.Equal(t, model.LightDark, f.Class())

	got := f.MarkStale()
	assert.Equal(t, model.LightBright, got, "exceeding the stale bound forces bright")
	assert.Equal(t, 50.0, f.FilteredLux(), "fail-safe changes the class, not the value")
}

func TestGoodSampleResetsStaleCounter(t *testing.T) {
	f := New(testConfig())

	f.Update(50)
	f.MarkStale()
	f.MarkStale()

	got := f.Update(50)
	assert.Equal(t, 0, f.StaleCount())
	assert.Equal(t, model.LightDark, got)
}

func TestRecoversFromFailSafeOnceDataReturns(t *testing.T) {
	f := New(testConfig())

	f.Update(50)
	for i := 0; i < 4; i++ {
		f.MarkStale()
	}
	assert.Equal(t, model.LightBright, f.Class())

	got := f.Update(50)
	assert.Equal(t, model.LightDark, got, "fresh dark readings reclassify normally")
}
