package presence

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/lightbar-controller/internal/model"
)

// Debouncer turns the radar module's noisy boolean into a stable presence
// state. Reaction is asymmetric: any raw true flips to Present immediately,
// while Absent requires the signal to have been observed false for a full
// hold window. Momentary signal gaps therefore never blink the bar off
// under someone still in the room.
type Debouncer struct {
	hold time.Duration

	state model.PresenceState

	// falseAccum counts only observed false time. Ticks where the sensor
	// could not be read (powered down or erroring) contribute nothing, so
	// absence is never concluded from missing data.
	falseAccum time.Duration
	lastTrue   time.Time
	lastValid  time.Time
}

// New returns a debouncer in the boot state, Absent.
func New(hold time.Duration) *Debouncer {
	return &Debouncer{
		hold:  hold,
		state: model.Absent,
	}
}

// Update consumes one valid raw sample taken at now.
func (d *Debouncer) Update(now time.Time, raw bool) model.PresenceState {
	if raw {
		if d.state != model.Present {
			log.Info().Msg("Presence detected")
		}
		d.state = model.Present
		d.lastTrue = now
		d.falseAccum = 0
	} else {
		if !d.lastValid.IsZero() {
			d.falseAccum += now.Sub(d.lastValid)
		}
		if d.state == model.Present && d.falseAccum >= d.hold {
			log.Info().
				Dur("held_false", d.falseAccum).
				Dur("hold", d.hold).
				Msg("Presence lost")
			d.state = model.Absent
		}
	}

	d.lastValid = now
	return d.state
}

// Freeze records a tick whose sample could not be trusted. The state is
// held and the hold timer does not advance across the gap.
func (d *Debouncer) Freeze(now time.Time) model.PresenceState {
	d.lastValid = now
	return d.state
}

// State returns the current presence state without consuming a sample.
func (d *Debouncer) State() model.PresenceState { return d.state }

// LastTrue returns when the raw signal was last seen true. Zero if never.
func (d *Debouncer) LastTrue() time.Time { return d.lastTrue }
