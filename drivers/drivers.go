package drivers

import (
	"context"
	"errors"
	"io"

	"plotter/events"
)

const (
	LOG_DIR              = "logs"
	LOG_NAME             = "RAWLOG"
	LOG_EXT              = ".log"
	WRITE_EVERY_N_FRAMES = 100
)

var ErrNoSerialPort = errors.New("no arduino serial ports found")

// Transport carries the plot stream between the firmware side and the listener.
type Transport interface {
	Init() error
	io.ReadWriteCloser
}

// Source feeds decoded snapshots into a hub until it runs dry or ctx is cancelled.
type Source interface {
	Run(ctx context.Context, hub *events.EventHub) error
}
