package drivers

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"plotter/config"
)

// Arduino & clones common VIDs
var preferredVIDs = map[string]bool{
	"2341": true, // Arduino
	"2A03": true, // Arduino (older)
	"1A86": true, // CH340
	"10C4": true, // CP210x
	"0403": true, // FTDI
}

// listPorts is swapped in tests.
var listPorts = enumerator.GetDetailedPortsList

type Serial struct {
	*config.SerialFlags
	logger *zap.Logger
	// port is set once by Init and never cleared, Close may run while Read blocks.
	port   serial.Port
	closed atomic.Bool
}

func NewSerial(serialFlags *config.SerialFlags, logger *zap.Logger) *Serial {
	return &Serial{
		SerialFlags: serialFlags,
		logger:      logger,
	}
}

func (s *Serial) Init() error {
	name := s.SerialPort
	// auto-select Arduino-ish port if requested
	if name == "" || name == "auto" {
		selected, err := autoSelectPort()
		if err != nil {
			return fmt.Errorf("auto-select: %w", err)
		}
		name = selected
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: s.BaudRate})
	if err != nil {
		return fmt.Errorf("couldn't open serial %s: %w", name, err)
	}
	s.port = port
	s.logger.Info("connected", zap.String("port", name), zap.Int("baud", s.BaudRate))
	return nil
}

func (s *Serial) Read(p []byte) (int, error) {
	if s.port == nil {
		return 0, fmt.Errorf("serial read: port not initialised")
	}
	n, err := s.port.Read(p)
	if err != nil && s.closed.Load() {
		return n, io.EOF
	}
	return n, err
}

func (s *Serial) Write(p []byte) (int, error) {
	if s.port == nil {
		return 0, fmt.Errorf("serial write: port not initialised")
	}
	return s.port.Write(p)
}

// Close closes the port once, later calls are no-ops.
func (s *Serial) Close() error {
	if s.port == nil || s.closed.Swap(true) {
		return nil
	}
	return s.port.Close()
}

func autoSelectPort() (string, error) {
	ports, err := listPorts()
	if err != nil {
		return "", fmt.Errorf("enumerate ports: %w", err)
	}
	// first matching "arduino port"
	for _, p := range ports {
		if p.IsUSB && preferredVIDs[strings.ToUpper(p.VID)] {
			return p.Name, nil
		}
	}
	return "", ErrNoSerialPort
}
