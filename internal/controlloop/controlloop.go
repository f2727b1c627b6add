package controlloop

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/lightbar-controller/internal/config"
	"github.com/thatsimonsguy/lightbar-controller/internal/datadog"
	"github.com/thatsimonsguy/lightbar-controller/internal/dimmer"
	"github.com/thatsimonsguy/lightbar-controller/internal/lightlevel"
	"github.com/thatsimonsguy/lightbar-controller/internal/model"
	"github.com/thatsimonsguy/lightbar-controller/internal/ports"
	"github.com/thatsimonsguy/lightbar-controller/internal/presence"
	"github.com/thatsimonsguy/lightbar-controller/internal/sensorpower"
)

// Recorder receives state transitions and periodic snapshots for post-hoc
// debugging. Implementations log their own failures; recording never feeds
// back into control decisions and never fails the tick.
type Recorder interface {
	RecordEvent(now time.Time, kind, from, to string)
	RecordSnapshot(snap model.Snapshot)
}

// Controller owns the whole control cycle. Every tick runs the same fixed
// sequence: sample both sensors, update the light filter and the presence
// debouncer, advance the dim engine and write the level, then let the power
// manager decide the sensor rail for the upcoming window. All state lives
// here and in the components it drives; nothing else mutates it.
type Controller struct {
	tick           time.Duration
	statusInterval time.Duration

	luxSensor      ports.AmbientLightSensor
	presenceSensor ports.PresenceSensor

	light     *lightlevel.Filter
	debouncer *presence.Debouncer
	power     *sensorpower.Manager
	dim       *dimmer.Dimmer
	rec       Recorder

	lastRawLux      float64
	lastRawPresence bool
	lastStatus      time.Time
	prev            model.Snapshot
	started         bool

	// Injectable for tests; real builds keep the defaults.
	now   func() time.Time
	sleep func(time.Duration)
}

func New(
	cfg *config.Config,
	luxSensor ports.AmbientLightSensor,
	presenceSensor ports.PresenceSensor,
	supply ports.SupplySwitch,
	sink ports.BrightnessSink,
	rec Recorder,
) *Controller {
	return &Controller{
		tick:           cfg.Control.TickInterval(),
		statusInterval: cfg.Control.StatusInterval(),
		luxSensor:      luxSensor,
		presenceSensor: presenceSensor,
		light:          lightlevel.New(cfg.Light),
		debouncer:      presence.New(cfg.Presence.Hold()),
		power:          sensorpower.New(cfg.SensorPower, cfg.Presence.Hold(), supply),
		dim:            dimmer.New(cfg.Ramp, sink),
		rec:            rec,
		now:            time.Now,
		sleep:          time.Sleep,
	}
}

// Start drives both actuators to their boot state: bar dark, sensor rail
// powered. Ordered so the bar is provably dark before anything else runs.
func (c *Controller) Start() error {
	if err := c.dim.Start(); err != nil {
		return err
	}
	now := c.now()
	if err := c.power.Start(now); err != nil {
		return err
	}

	// Seed the previous snapshot from the boot state so the first tick's
	// transitions are detected like any other.
	c.prev = model.Snapshot{
		Time:        now,
		Light:       c.light.Class(),
		Presence:    c.debouncer.State(),
		Phase:       c.dim.Phase(),
		SensorPower: c.power.State(),
	}
	c.started = true

	log.Info().
		Dur("tick_interval", c.tick).
		Dur("status_interval", c.statusInterval).
		Msg("Controller started")
	return nil
}

// Run executes the control loop until a signal arrives or a tick fails
// fatally. Each tick is scheduled one interval after the previous tick
// began; an overrunning tick makes the next one run immediately, with no
// burst of catch-up ticks afterwards.
func (c *Controller) Run(sig <-chan os.Signal) error {
	if !c.started {
		if err := c.Start(); err != nil {
			return err
		}
	}

	for {
		select {
		case s := <-sig:
			log.Info().Str("signal", s.String()).Msg("Shutting down")
			return c.safeState()
		default:
		}

		tickStart := c.now()
		if err := c.Tick(tickStart); err != nil {
			return err
		}

		elapsed := c.now().Sub(tickStart)
		if elapsed > c.tick {
			log.Warn().
				Dur("elapsed", elapsed).
				Dur("tick_interval", c.tick).
				Msg("Tick overran its interval")
			datadog.Count("loop.overruns", 1)
			continue
		}
		c.sleep(c.tick - elapsed)
	}
}

// Tick runs one full control cycle at the given instant. Sensor failures
// are absorbed by the staleness and freeze policies; only an actuator write
// failure is returned, and the caller must treat it as fatal.
func (c *Controller) Tick(now time.Time) error {
	// Sensor sampling.
	rawLux, luxErr := c.luxSensor.ReadLux()

	var rawPresence bool
	var presenceErr error
	railOn := c.power.State() == model.PowerOn
	if railOn {
		rawPresence, presenceErr = c.presenceSensor.Read()
	}

	// Fusion.
	var class model.LightClass
	if luxErr != nil {
		log.Warn().Err(luxErr).Msg("Ambient light read failed")
		datadog.Count("sensor.read_errors", 1, "sensor:ambient")
		class = c.light.MarkStale()
	} else {
		c.lastRawLux = rawLux
		class = c.light.Update(rawLux)
	}

	var presenceState model.PresenceState
	switch {
	case !railOn:
		presenceState = c.debouncer.Freeze(now)
	case presenceErr != nil:
		log.Warn().Err(presenceErr).Msg("Presence read failed")
		datadog.Count("sensor.read_errors", 1, "sensor:presence")
		presenceState = c.debouncer.Freeze(now)
	case !c.power.Trusted(now):
		// Rail is on but still inside its settle window.
		log.Debug().Bool("raw", rawPresence).Msg("Presence reading not yet trusted")
		presenceState = c.debouncer.Freeze(now)
	default:
		c.lastRawPresence = rawPresence
		presenceState = c.debouncer.Update(now, rawPresence)
	}

	// Output.
	phase, err := c.dim.Update(presenceState, class)
	if err != nil {
		return err
	}

	// Sensor rail for the upcoming window.
	powerState, err := c.power.Update(now, class, phase)
	if err != nil {
		return err
	}

	snap := model.Snapshot{
		Time:        now,
		RawLux:      c.lastRawLux,
		FilteredLux: c.light.FilteredLux(),
		LuxStale:    c.light.StaleCount(),
		Light:       class,
		Presence:    presenceState,
		RawPresence: c.lastRawPresence,
		Phase:       phase,
		Level:       c.dim.Level(),
		Target:      c.dim.Target(),
		SensorPower: powerState,
	}
	c.observe(snap)
	return nil
}

// observe handles everything downstream of control: transition events,
// the periodic status line, metrics and the flight recorder.
func (c *Controller) observe(snap model.Snapshot) {
	changed := false
	if snap.Light != c.prev.Light {
		c.rec.RecordEvent(snap.Time, "light", string(c.prev.Light), string(snap.Light))
		changed = true
	}
	if snap.Presence != c.prev.Presence {
		c.rec.RecordEvent(snap.Time, "presence", string(c.prev.Presence), string(snap.Presence))
		changed = true
	}
	if snap.Phase != c.prev.Phase {
		c.rec.RecordEvent(snap.Time, "phase", string(c.prev.Phase), string(snap.Phase))
		changed = true
	}
	if snap.SensorPower != c.prev.SensorPower {
		c.rec.RecordEvent(snap.Time, "sensor_power", string(c.prev.SensorPower), string(snap.SensorPower))
		changed = true
	}

	if changed || snap.Time.Sub(c.lastStatus) >= c.statusInterval {
		c.status(snap)
	}
	c.prev = snap
}

func (c *Controller) status(snap model.Snapshot) {
	log.Info().
		Float64("raw_lux", snap.RawLux).
		Float64("filtered_lux", snap.FilteredLux).
		Str("light", string(snap.Light)).
		Str("presence", string(snap.Presence)).
		Str("phase", string(snap.Phase)).
		Int("level", snap.Level).
		Int("target", snap.Target).
		Str("sensor_power", string(snap.SensorPower)).
		Msg("Status")

	datadog.Gauge("lux.raw", snap.RawLux)
	datadog.Gauge("lux.filtered", snap.FilteredLux)
	datadog.Gauge("lux.stale_samples", float64(snap.LuxStale))
	datadog.Gauge("brightness.level", float64(snap.Level))
	datadog.Gauge("brightness.target", float64(snap.Target))

	c.rec.RecordSnapshot(snap)
	c.lastStatus = snap.Time
}

// safeState drives the bar dark on the way out. The sensor rail is left
// powered so a restart begins with a warm sensor.
func (c *Controller) safeState() error {
	if err := c.dim.Start(); err != nil {
		return err
	}
	log.Info().Msg("Outputs driven to safe state")
	return nil
}
