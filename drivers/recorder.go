package drivers

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"plotter/protocol"
	"plotter/utils"
)

// Recorder tees everything written through it into a raw log. The log is flushed every
// WRITE_EVERY_N_FRAMES complete records, so a replay sees whole records only.
type Recorder struct {
	out     io.Writer
	sink    io.Writer
	log     *bufio.Writer
	logger  *zap.Logger
	records int
}

func NewRecorder(out io.Writer, sink io.Writer, logger *zap.Logger) *Recorder {
	if out == nil {
		out = io.Discard
	}
	return &Recorder{
		out,
		sink,
		bufio.NewWriterSize(sink, 1<<20),
		logger,
		0,
	}
}

// OpenRawLog creates the next free RAWLOG file under dir.
func OpenRawLog(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	filePath := utils.NextAvailableFilename(dir, LOG_NAME, LOG_EXT)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open rawlog: %w", err)
	}
	return file, nil
}

func (r *Recorder) Write(p []byte) (int, error) {
	n, err := r.out.Write(p)
	if n > 0 {
		if _, logErr := r.log.Write(p[:n]); logErr != nil {
			r.logger.Warn("raw write", zap.Error(logErr))
		}
		before := r.records / WRITE_EVERY_N_FRAMES
		r.records += bytes.Count(p[:n], []byte{protocol.OuterKey})
		if r.records/WRITE_EVERY_N_FRAMES != before {
			if flushErr := r.log.Flush(); flushErr != nil {
				r.logger.Warn("raw flush", zap.Error(flushErr))
			}
		}
	}
	return n, err
}

// Records is the number of record terminators seen so far.
func (r *Recorder) Records() int {
	return r.records
}

func (r *Recorder) Flush() error {
	return r.log.Flush()
}

// Close flushes the log and closes the sink if it can be closed. The wrapped output is left open.
func (r *Recorder) Close() error {
	err := r.log.Flush()
	if closer, ok := r.sink.(io.Closer); ok {
		if closeErr := closer.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
