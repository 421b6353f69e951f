package main

import (
	"context"
	"flag"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"plotter/config"
	"plotter/drivers"
	"plotter/models"
	"plotter/store"
)

// signals stands in for the sensors a sketch would plot.
type signals struct {
	rpm      uint16
	throttle float32
	coolant  float64
	gear     int8
	clutch   bool
	x, y     float64
}

func (s *signals) step(elapsed time.Duration) {
	sec := elapsed.Seconds()
	s.throttle = float32(50 + 50*math.Sin(sec))
	s.rpm = uint16(1200 + 80*float64(s.throttle))
	s.coolant = 80 + 10*(1-math.Exp(-sec/60))
	s.gear = int8(1 + int(sec/5)%5)
	s.clutch = int(sec)%5 == 0
	s.x = math.Cos(sec * 2)
	s.y = math.Sin(sec * 3)
}

func main() {
	config.LoadEnv()
	cfg, err := config.GetFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("plotdemo", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create the correct transport
	var out io.Writer
	switch cfg.Driver {
	case config.Stdout:
		out = os.Stdout
	case config.Serial, config.CAN:
		var transport drivers.Transport
		if cfg.Driver == config.Serial {
			transport = drivers.NewSerial(cfg.Serial, logger)
		} else {
			transport = drivers.NewCAN(cfg.CAN, logger)
		}
		if err := transport.Init(); err != nil {
			return err
		}
		defer func() { _ = transport.Close() }()
		out = transport
	default:
		logger.Error("unsupported driver type", zap.String("driver", string(cfg.Driver)))
		return nil
	}

	if cfg.Record {
		file, err := drivers.OpenRawLog(drivers.LOG_DIR)
		if err != nil {
			return err
		}
		recorder := drivers.NewRecorder(out, file, logger)
		defer func() { _ = recorder.Close() }()
		out = recorder
		logger.Info("recording", zap.String("path", file.Name()))
	}

	registry := store.NewRegistry(out,
		store.WithLogger(logger),
		store.WithConfigInterval(cfg.Plot.ConfigInterval),
		store.WithResyncOnChange(cfg.Plot.ResyncOnChange),
	)
	defer func() { _ = registry.Close() }()
	registry.Begin()

	s := &signals{}
	registry.AddLineGraph("Engine", models.DefaultMaxPoints,
		models.Series{Label: "rpm", Ref: models.Ref(&s.rpm)},
	)
	registry.AddLineGraph("Inputs", 500,
		models.Series{Label: "throttle", Ref: models.Ref(&s.throttle), Colour: "orange"},
		models.Series{Label: "clutch", Ref: models.Bool(&s.clutch), Colour: "blue"},
	).Line("gear", models.Ref(&s.gear))
	registry.AddLineGraph("Coolant", 2000,
		models.Series{Label: "temp", Ref: models.Ref(&s.coolant), Colour: "cyan"},
	)
	registry.AddScatterGraph("Lissajous", 200, "x", models.Ref(&s.x), "y", models.Ref(&s.y))

	start := time.Now()
	ticker := time.NewTicker(cfg.Plot.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping")
			return nil
		case now := <-ticker.C:
			s.step(now.Sub(start))
			if err := registry.Plot(); err != nil {
				logger.Warn("plot", zap.Error(err))
			}
		}
	}
}
