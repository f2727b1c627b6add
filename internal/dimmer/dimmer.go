package dimmer

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/lightbar-controller/internal/config"
	"github.com/thatsimonsguy/lightbar-controller/internal/datadog"
	"github.com/thatsimonsguy/lightbar-controller/internal/model"
	"github.com/thatsimonsguy/lightbar-controller/internal/ports"
)

// Dimmer runs the output state machine: Off, RampingUp, On, RampingDown.
// The target is full brightness exactly when someone is present in a dark
// room, zero otherwise, and the level walks toward the target by a bounded
// step each tick. A ramp reverses mid-flight the moment the target flips,
// so the bar never jumps and never finishes a fade that is no longer
// wanted.
//
// The brightness sink is written here and nowhere else.
type Dimmer struct {
	maxLevel int
	upStep   int
	downStep int

	sink ports.BrightnessSink

	phase   model.Phase
	current int
	target  int
}

func New(cfg config.Ramp, sink ports.BrightnessSink) *Dimmer {
	return &Dimmer{
		maxLevel: cfg.MaxLevel,
		upStep:   cfg.UpStep,
		downStep: cfg.DownStep,
		sink:     sink,
		phase:    model.PhaseOff,
	}
}

// Start drives the bar dark before the first tick so boot never flashes
// whatever level the hardware woke up with.
func (d *Dimmer) Start() error {
	if err := d.sink.SetLevel(0); err != nil {
		return fmt.Errorf("drive brightness to zero: %w", err)
	}
	d.phase = model.PhaseOff
	d.current = 0
	d.target = 0
	return nil
}

// Update runs one tick: recompute the target from the fused inputs, advance
// the state machine and the ramp, then write the level out. A sink write
// failure is returned to the caller; it is fatal there.
func (d *Dimmer) Update(presence model.PresenceState, class model.LightClass) (model.Phase, error) {
	target := 0
	if presence == model.Present && class == model.LightDark {
		target = d.maxLevel
	}
	if target != d.target {
		log.Info().
			Int("from", d.target).
			Int("to", target).
			Str("presence", string(presence)).
			Str("light", string(class)).
			Msg("Dim target changed")
		d.target = target
	}

	d.advance()

	if err := d.sink.SetLevel(d.current); err != nil {
		return d.phase, fmt.Errorf("write brightness level %d: %w", d.current, err)
	}
	return d.phase, nil
}

// advance moves the level one bounded step toward the target and settles
// the phase. Up and down steps are separate so the fade-out can be slower
// than the wake-up.
func (d *Dimmer) advance() {
	prev := d.phase

	if d.target > d.current {
		d.phase = model.PhaseRampingUp
		d.current += d.upStep
		if d.current > d.target {
			d.current = d.target
		}
	} else if d.target < d.current {
		d.phase = model.PhaseRampingDown
		d.current -= d.downStep
		if d.current < d.target {
			d.current = d.target
		}
	}

	if d.current == d.target {
		if d.current == 0 {
			d.phase = model.PhaseOff
		} else if d.current == d.maxLevel {
			d.phase = model.PhaseOn
		}
	}

	if d.phase != prev {
		log.Info().
			Str("from", string(prev)).
			Str("to", string(d.phase)).
			Int("level", d.current).
			Int("target", d.target).
			Msg("Dim phase changed")
		datadog.Count("dimmer.phase_transitions", 1, "to:"+string(d.phase))
	}
}

// Phase returns the current state machine phase.
func (d *Dimmer) Phase() model.Phase { return d.phase }

// Level returns the level most recently written to the sink.
func (d *Dimmer) Level() int { return d.current }

// Target returns the level the ramp is walking toward.
func (d *Dimmer) Target() int { return d.target }
