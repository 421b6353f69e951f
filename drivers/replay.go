package drivers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"plotter/config"
	"plotter/events"
	"plotter/protocol"
)

var ErrEmptyReplay = errors.New("replay log has no records to publish")

// Replayer plays a recorded log back into a hub, paced by the record timestamps.
type Replayer struct {
	*config.ReplayFlags
	logger *zap.Logger
	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewReplayer(replayFlags *config.ReplayFlags, logger *zap.Logger) *Replayer {
	return &Replayer{
		replayFlags,
		logger,
		sleepContext,
	}
}

// Run plays the log once, or until ctx is cancelled when looping. A looping pass that publishes
// nothing returns ErrEmptyReplay.
func (r *Replayer) Run(ctx context.Context, hub *events.EventHub) error {
	for {
		published, err := r.playOnce(ctx, hub)
		if err != nil {
			return err
		}
		if !r.Loop {
			return nil
		}
		if published == 0 {
			return fmt.Errorf("%s: %w", r.Path, ErrEmptyReplay)
		}
	}
}

func (r *Replayer) playOnce(ctx context.Context, hub *events.EventHub) (int, error) {
	file, err := os.Open(r.Path)
	if err != nil {
		return 0, fmt.Errorf("open replay: %w", err)
	}
	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			r.logger.Warn("couldn't close replay", zap.Error(err))
		}
	}(file)

	return r.play(ctx, bufio.NewReaderSize(file, 1<<20), hub)
}

// play returns how many snapshots it published.
func (r *Replayer) play(ctx context.Context, reader io.Reader, hub *events.EventHub) (int, error) {
	decoder := protocol.NewDecoder(reader)
	tracker := protocol.NewTracker()

	var (
		first  = true
		prevMS uint64
	)

	frameIndex, published := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		frame, err := decoder.Next()
		if err != nil {
			if err == io.EOF {
				r.logger.Info("end of replay", zap.Int("records", frameIndex), zap.Int("published", published))
				return published, nil
			}
			if errors.Is(err, protocol.ErrMalformedFrame) || errors.Is(err, protocol.ErrFrameTooLarge) {
				r.logger.Warn("skipping record", zap.Error(err))
				continue
			}
			return published, err
		}

		if frameIndex < r.SkipFrames {
			// skipped records still teach the tracker the layout
			_, _ = tracker.Apply(frame)
			frameIndex++
			continue
		}

		if first {
			first = false
			prevMS = frame.Time
		}

		if r.Speed > 0 {
			if frame.Time > prevMS {
				delta := time.Duration(frame.Time-prevMS) * time.Millisecond
				if err := r.sleep(ctx, time.Duration(float64(delta)/r.Speed)); err != nil {
					return published, err
				}
			}
			prevMS = frame.Time
		}

		if publish(frame, tracker, hub, r.logger) {
			published++
		}
		frameIndex++
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
