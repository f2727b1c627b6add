package lightlevel

import (
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/lightbar-controller/internal/config"
	"github.com/thatsimonsguy/lightbar-controller/internal/model"
)

// Filter smooths raw lux samples with an exponential moving average and
// classifies the result as Dark or Bright. Classification uses two
// thresholds: a Dark verdict requires the smoothed value to drop below
// darkThreshold, flipping back to Bright requires it to climb above
// brightThreshold. The band between them absorbs flicker from passing
// shadows and the LED bar's own spill.
type Filter struct {
	alpha           float64
	darkThreshold   float64
	brightThreshold float64
	maxStale        int

	filtered float64
	seeded   bool
	stale    int
	class    model.LightClass
}

// New returns a filter in the boot state: classification Bright (the safe
// assumption until real data says otherwise) and no smoothing history.
func New(cfg config.Light) *Filter {
	return &Filter{
		alpha:           cfg.SmoothingAlpha,
		darkThreshold:   cfg.DarkThreshold,
		brightThreshold: cfg.BrightThreshold,
		maxStale:        cfg.MaxStaleSamples,
		class:           model.LightBright,
	}
}

// Update folds one good reading into the smoothed value and reclassifies.
// The first reading seeds the average directly so boot does not spend
// several ticks converging from zero.
func (f *Filter) Update(lux float64) model.LightClass {
	if !f.seeded {
		f.filtered = lux
		f.seeded = true
	} else {
		f.filtered = f.alpha*lux + (1-f.alpha)*f.filtered
	}
	f.stale = 0

	f.classify()
	return f.class
}

// MarkStale records a failed reading. The smoothed value is reused
// unchanged; once too many consecutive readings have failed the
// classification is forced to Bright so the bar cannot be left on by a dead
// sensor.
func (f *Filter) MarkStale() model.LightClass {
	f.stale++

	if f.stale > f.maxStale && f.class != model.LightBright {
		log.Error().
			Int("stale_samples", f.stale).
			Int("max_stale_samples", f.maxStale).
			Float64("filtered_lux", f.filtered).
			Msg("Ambient light readings stale beyond bound - failing safe to bright")
		f.class = model.LightBright
	}

	return f.class
}

func (f *Filter) classify() {
	switch f.class {
	case model.LightBright:
		if f.filtered < f.darkThreshold {
			f.class = model.LightDark
			log.Info().
				Float64("filtered_lux", f.filtered).
				Float64("dark_threshold", f.darkThreshold).
				Msg("Ambient light classified dark")
		}
	case model.LightDark:
		if f.filtered > f.brightThreshold {
			f.class = model.LightBright
			log.Info().
				Float64("filtered_lux", f.filtered).
				Float64("bright_threshold", f.brightThreshold).
				Msg("Ambient light classified bright")
		}
	}
}

// FilteredLux returns the current smoothed value. Zero until seeded.
func (f *Filter) FilteredLux() float64 { return f.filtered }

// StaleCount returns how many consecutive readings have failed.
func (f *Filter) StaleCount() int { return f.stale }

// Class returns the current classification without consuming a sample.
func (f *Filter) Class() model.LightClass { return f.class }
