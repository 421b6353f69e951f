package drivers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"plotter/events"
	"plotter/protocol"
)

// Listen decodes the plot stream from r and broadcasts a snapshot per record. Malformed records
// and deltas that arrive before the first config record are skipped. It returns nil on EOF and
// ctx.Err() once ctx is cancelled; a blocked Read only notices after r is closed.
func Listen(ctx context.Context, r io.Reader, hub *events.EventHub, logger *zap.Logger) error {
	decoder := protocol.NewDecoder(r)
	tracker := protocol.NewTracker()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := decoder.Next()
		if err != nil {
			switch {
			case err == io.EOF:
				return nil
			case errors.Is(err, protocol.ErrMalformedFrame), errors.Is(err, protocol.ErrFrameTooLarge):
				logger.Warn("skipping record", zap.Error(err))
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read frame: %w", err)
		}
		publish(frame, tracker, hub, logger)
	}
}

// publish folds frame into tracker and broadcasts the result. It reports whether anything was sent.
func publish(frame *protocol.Frame, tracker *protocol.Tracker, hub *events.EventHub, logger *zap.Logger) bool {
	snapshot, err := tracker.Apply(frame)
	if err != nil {
		if errors.Is(err, protocol.ErrNoConfig) {
			logger.Debug("waiting for config record", zap.Uint64("t", frame.Time))
		} else {
			logger.Warn("dropping frame", zap.Uint64("t", frame.Time), zap.Error(err))
		}
		return false
	}
	hub.Broadcast(&events.Event{Snapshot: snapshot, Config: frame.IsConfig(), Received: time.Now()})
	return true
}

// Listener runs Listen over a transport, optionally recording what it reads.
type Listener struct {
	transport io.ReadCloser
	record    io.Writer
	logger    *zap.Logger
}

func NewListener(transport io.ReadCloser, record io.Writer, logger *zap.Logger) *Listener {
	return &Listener{
		transport,
		record,
		logger,
	}
}

// Run listens until the transport ends or ctx is cancelled. Cancelling closes the transport and
// counts as a clean stop.
func (l *Listener) Run(ctx context.Context, hub *events.EventHub) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			// unblocks the pending Read
			_ = l.transport.Close()
		case <-done:
		}
	}()

	var reader io.Reader = l.transport
	if l.record != nil {
		reader = io.TeeReader(l.transport, l.record)
	}
	err := Listen(ctx, reader, hub, l.logger)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
