package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hwforge/sevenseg/internal/config"
	"github.com/hwforge/sevenseg/internal/line"
	"github.com/hwforge/sevenseg/internal/line/fake"
	"github.com/hwforge/sevenseg/internal/node"
	"github.com/hwforge/sevenseg/internal/seg"
)

func main() {
	// ---- Flags (remain usable; config.yaml can override most) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		name       = flag.String("name", "", "device name (overrides config)")
		nodeDir    = flag.String("node-dir", "", "directory for the device node (overrides config)")
		driver     = flag.String("driver", "", "line driver: gpio | fake (overrides config)")
		logLevel   = flag.String("log-level", "", "log level (overrides config)")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Load config.yaml (optional) ----
	cfg := config.Default()
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults")
	} else {
		cfg = c
	}
	if *name != "" {
		cfg.Name = *name
	}
	if *nodeDir != "" {
		cfg.NodeDir = *nodeDir
	}
	if *driver != "" {
		cfg.Driver = *driver
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level; keeping default")
	}

	// ---- Line driver selection ----
	var drv line.Driver
	switch cfg.Driver {
	case "fake":
		log.Info().Msg("using fake line driver; no hardware will be touched")
		drv = fake.NewDriver()
	case "", "gpio":
		d, err := line.NewGPIODriver()
		if err != nil {
			log.Fatal().Err(err).Msg("gpio host init failed")
		}
		drv = d
	default:
		log.Fatal().Str("driver", cfg.Driver).Msg("unknown line driver")
	}

	// ---- Acquire the segment lines, all or nothing ----
	set, err := line.Acquire(drv, cfg.Pins)
	if err != nil {
		log.Fatal().Err(err).Msg("segment line acquisition failed")
	}
	log.Info().Ints("pins", cfg.Pins).Msg("segment lines acquired")

	// ---- Register the device node ----
	if err := os.MkdirAll(cfg.NodeDir, 0755); err != nil {
		set.Release()
		log.Fatal().Err(err).Str("dir", cfg.NodeDir).Msg("node directory unavailable")
	}
	dev := seg.NewDevice(cfg.Name, set, log.Logger)
	nd, err := node.Register(dev, cfg.NodeDir, log.Logger)
	if err != nil {
		set.Release()
		log.Fatal().Err(err).Msg("device registration failed")
	}

	go func() {
		if err := nd.Serve(); err != nil {
			log.Fatal().Err(err).Msg("device node server crashed")
		}
	}()
	log.Info().Str("path", nd.Path()).Int("id", nd.ID()).Msg("serving")

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	_ = nd.Close()
	set.Release()
	log.Info().Msg("segment lines released")
}
