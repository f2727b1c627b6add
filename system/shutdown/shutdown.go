// Package shutdown owns the exit paths. Whatever ends the process, the LED
// bar must be provably dark on the way out: an uncontrolled output is worse
// than no controller at all.
package shutdown

import (
	"os"

	"github.com/rs/zerolog/log"
)

var safeState func()

// RegisterSafeState installs the hook that drives the outputs to their safe
// state and releases the hardware. Install it before the control loop
// starts.
func RegisterSafeState(fn func()) {
	safeState = fn
}

// Shutdown drives the safe state and exits cleanly.
func Shutdown() {
	driveSafeState()
	os.Exit(0)
}

// ShutdownWithError logs the fatal condition, drives the safe state and
// exits nonzero so the service manager restarts the controller.
func ShutdownWithError(err error, msg string) {
	log.Error().Err(err).Msg(msg)
	driveSafeState()
	os.Exit(1)
}

func driveSafeState() {
	if safeState != nil {
		safeState()
		log.Info().Msg("Hardware released")
	}
}
