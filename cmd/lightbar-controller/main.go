package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/lightbar-controller/internal/config"
	"github.com/thatsimonsguy/lightbar-controller/internal/controlloop"
	"github.com/thatsimonsguy/lightbar-controller/internal/datadog"
	"github.com/thatsimonsguy/lightbar-controller/internal/hw"
	"github.com/thatsimonsguy/lightbar-controller/internal/logging"
	"github.com/thatsimonsguy/lightbar-controller/internal/recorder"
	"github.com/thatsimonsguy/lightbar-controller/system/shutdown"
	"github.com/thatsimonsguy/lightbar-controller/system/startup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.LogLevel, cfg.Log.File)

	if cfg.InstallService {
		if err := startup.WriteServiceUnit(cfg.Service, cfg.ConfigFile); err != nil {
			log.Fatal().Err(err).Msg("Failed to write service unit")
		}
		if err := startup.EnableService(cfg.Service); err != nil {
			log.Fatal().Err(err).Msg("Failed to enable service")
		}
		log.Info().Str("unit", cfg.Service.UnitPath).Msg("Service installed")
		return
	}

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Msg("Starting light bar controller")

	datadog.Init(cfg.Metrics)

	luxSensor := hw.NewAmbientSensor(cfg.Hardware)

	presenceSensor, err := hw.NewPresenceGPIO(cfg.Hardware.GPIOChip, cfg.Hardware.PresencePin)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open presence sensor")
	}

	supply, err := hw.NewSupplyGPIO(cfg.Hardware.GPIOChip, cfg.Hardware.SupplyPin)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open presence sensor supply switch")
	}

	sink, err := hw.NewPWMSink(cfg.Hardware, cfg.Ramp.MaxLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open PWM brightness sink")
	}

	var rec controlloop.Recorder = recorder.Nop{}
	var store *recorder.Store
	if cfg.Recorder.Enabled {
		store, err = recorder.Open(cfg.Recorder.Path)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Recorder.Path).Msg("Flight recorder unavailable, continuing without it")
		} else {
			rec = store
		}
	}

	shutdown.RegisterSafeState(func() {
		if err := sink.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to drive LED bar dark")
		}
		if err := supply.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to release supply switch")
		}
		if err := presenceSensor.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to release presence sensor")
		}
		luxSensor.Close()
		if store != nil {
			store.Close()
		}
	})

	ctrl := controlloop.New(cfg, luxSensor, presenceSensor, supply, sink, rec)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	if err := ctrl.Run(sig); err != nil {
		shutdown.ShutdownWithError(err, "Controller halted")
	}
	shutdown.Shutdown()
}
