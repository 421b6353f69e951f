package drivers

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
	"go.uber.org/zap"

	"plotter/config"
)

const (
	CAN_NETWORK   = "can"
	MAX_STD_CANID = 0x7FF
)

type frameTransmitter interface {
	TransmitFrame(ctx context.Context, frame can.Frame) error
}

type frameReceiver interface {
	Receive() bool
	HasErrorFrame() bool
	Frame() can.Frame
	Err() error
}

// CAN carries the plot stream over SocketCAN, split into classic 8-byte frames on one ID.
type CAN struct {
	*config.CANFlags
	logger *zap.Logger

	// conn, transmitter and receiver are set once by Init and never cleared, Close may run
	// while another goroutine is blocked in Read.
	ctx         context.Context
	conn        io.Closer
	transmitter frameTransmitter
	receiver    frameReceiver
	closed      atomic.Bool

	pending []byte
}

func NewCAN(canFlags *config.CANFlags, logger *zap.Logger) *CAN {
	return &CAN{
		CANFlags: canFlags,
		logger:   logger,
		ctx:      context.Background(),
	}
}

func (c *CAN) Init() error {
	conn, err := socketcan.DialContext(c.ctx, CAN_NETWORK, c.Interface)
	if err != nil {
		return fmt.Errorf("socketCAN dial %s: %w", c.Interface, err)
	}
	c.conn = conn
	c.transmitter = socketcan.NewTransmitter(conn)
	c.receiver = socketcan.NewReceiver(conn)
	c.logger.Info("connected", zap.String("interface", c.Interface), zap.String("id", fmt.Sprintf("0x%03X", c.FrameID)))
	return nil
}

// Write sends p as consecutive frames, the last one possibly shorter than 8 bytes.
func (c *CAN) Write(p []byte) (int, error) {
	transmitter := c.transmitter
	if transmitter == nil {
		return 0, fmt.Errorf("can write: interface not initialised")
	}
	if c.closed.Load() {
		return 0, net.ErrClosed
	}
	written := 0
	for _, chunk := range chunkFrames(p, uint32(c.FrameID)) {
		if err := transmitter.TransmitFrame(c.ctx, chunk); err != nil {
			return written, fmt.Errorf("transmit frame: %w", err)
		}
		written += int(chunk.Length)
	}
	return written, nil
}

// Read returns payload bytes of frames on the configured ID in arrival order. Once Close has
// been called the stream reads as ended.
func (c *CAN) Read(p []byte) (int, error) {
	receiver := c.receiver
	if receiver == nil {
		return 0, fmt.Errorf("can read: interface not initialised")
	}
	for len(c.pending) == 0 {
		if !receiver.Receive() {
			if c.closed.Load() {
				return 0, io.EOF
			}
			if err := receiver.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		if receiver.HasErrorFrame() {
			c.logger.Debug("skipping error frame")
			continue
		}
		frame := receiver.Frame()
		if frame.ID != uint32(c.FrameID) || frame.IsRemote {
			continue
		}
		c.pending = append(c.pending, frame.Data[:frame.Length]...)
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Close closes the socket once, later calls are no-ops.
func (c *CAN) Close() error {
	if c.conn == nil || c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}

func chunkFrames(p []byte, id uint32) []can.Frame {
	frames := make([]can.Frame, 0, (len(p)+can.MaxDataLength-1)/can.MaxDataLength)
	for len(p) > 0 {
		n := min(len(p), can.MaxDataLength)
		frame := can.Frame{ID: id, Length: uint8(n), IsExtended: id > MAX_STD_CANID}
		copy(frame.Data[:], p[:n])
		frames = append(frames, frame)
		p = p[n:]
	}
	return frames
}
