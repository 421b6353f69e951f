package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"plotter/config"
	"plotter/drivers"
	"plotter/events"
	"plotter/export"
	"plotter/web/handlers"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, closer, err := newSource(cfg, logger)
	if err != nil {
		logger.Fatal("couldn't init source", zap.Error(err))
	}
	defer func() { _ = closer.Close() }()

	hub := events.NewHub()

	go func() {
		if err := source.Run(ctx, hub); err != nil && ctx.Err() == nil {
			logger.Error("error running source", zap.Error(err))
		}
		logger.Info("source finished")
	}()

	if cfg.Export.RemoteWriteURL != "" {
		hostname, _ := os.Hostname()
		writer := export.NewRemoteWriter(cfg.Export.RemoteWriteURL, cfg.Export.RemoteWriteInterval, hostname, logger)
		go writer.Run(ctx, hub)
	}

	// Initialise UI
	dashboard, err := handlers.NewDashboard(logger)
	if err != nil {
		logger.Fatal("couldn't create dashboard", zap.Error(err))
	}
	go dashboard.Run(ctx, hub)

	metrics := handlers.NewMetrics()
	go metrics.Run(ctx, hub)

	// Initialise Server
	server := handlers.NewServer(dashboard, metrics.Handler(), logger)
	if err := server.Start(ctx, cfg.Addr); err != nil {
		logger.Fatal("couldn't start server", zap.Error(err))
	}
}

// newSource picks the driver. The returned closer releases whatever the source holds open.
func newSource(cfg *config.Config, logger *zap.Logger) (drivers.Source, io.Closer, error) {
	var transport drivers.Transport
	switch cfg.Driver {
	case config.Replay:
		return drivers.NewReplayer(cfg.Replay, logger), nopCloser{}, nil
	case config.Serial:
		transport = drivers.NewSerial(cfg.Serial, logger)
	case config.CAN:
		transport = drivers.NewCAN(cfg.CAN, logger)
	default:
		return nil, nil, fmt.Errorf("unsupported driver type: %s", cfg.Driver)
	}

	if err := transport.Init(); err != nil {
		return nil, nil, err
	}
	if !cfg.Record {
		return drivers.NewListener(transport, nil, logger), transport, nil
	}

	file, err := drivers.OpenRawLog(drivers.LOG_DIR)
	if err != nil {
		_ = transport.Close()
		return nil, nil, err
	}
	logger.Info("recording", zap.String("path", file.Name()))
	recorder := drivers.NewRecorder(nil, file, logger)
	return drivers.NewListener(transport, recorder, logger), multiCloser{transport, recorder}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
