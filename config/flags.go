package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type DriverType string

const (
	Serial DriverType = "serial"
	CAN    DriverType = "can"
	Replay DriverType = "replay"
	Stdout DriverType = "stdout"
)

type Flags struct {
	Driver   DriverType
	Addr     string
	LogLevel string
	// Record tees the plot stream into a raw log under LOG_DIR.
	Record bool
}

type SerialFlags struct {
	SerialPort string
	BaudRate   int
}

type CANFlags struct {
	Interface string
	FrameID   uint
}

type ReplayFlags struct {
	Path       string
	Speed      float64
	Loop       bool
	SkipFrames int
}

type PlotFlags struct {
	// Period between two Plot calls of the demo control loop.
	Period         time.Duration
	ConfigInterval int
	ResyncOnChange bool
}

type ExportFlags struct {
	RemoteWriteURL      string
	RemoteWriteInterval time.Duration
}

// Config groups the flags of every concern.
type Config struct {
	*Flags
	Serial *SerialFlags
	CAN    *CANFlags
	Replay *ReplayFlags
	Plot   *PlotFlags
	Export *ExportFlags
}

const (
	DEFAULT_BAUD_RATE       = 115200
	DEFAULT_CAN_FRAME_ID    = 0x6F0
	DEFAULT_PLOT_PERIOD     = 20 * time.Millisecond
	DEFAULT_CONFIG_INTERVAL = 50
)

// LoadEnv reads .env then .env.local, later files win. Missing files are fine.
func LoadEnv() {
	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")
}

// GetFlags registers every flag on fs with defaults taken from PLOTTER_* environment variables
// and parses args.
func GetFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	flags := &Flags{}
	var driverStr string
	fs.StringVar(&driverStr, "driver", getenv("PLOTTER_DRIVER", string(Serial)), "transport: serial, can, replay or stdout")
	fs.StringVar(&flags.Addr, "addr", getenv("PLOTTER_ADDR", ":8080"), "http listen address")
	fs.StringVar(&flags.LogLevel, "log-level", getenv("PLOTTER_LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.BoolVar(&flags.Record, "record", getbool("PLOTTER_RECORD", false), "tee the plot stream into a raw log")

	serial := &SerialFlags{}
	fs.StringVar(&serial.SerialPort, "serial-port", getenv("PLOTTER_SERIAL_PORT", "auto"), "serial device path or 'auto'")
	fs.IntVar(&serial.BaudRate, "baud", getint("PLOTTER_BAUD", DEFAULT_BAUD_RATE), "baud rate")

	can := &CANFlags{}
	fs.StringVar(&can.Interface, "can-interface", getenv("PLOTTER_CAN_INTERFACE", "can0"), "SocketCAN interface")
	fs.UintVar(&can.FrameID, "can-frame-id", uint(getint("PLOTTER_CAN_FRAME_ID", DEFAULT_CAN_FRAME_ID)), "CAN ID carrying the plot stream")

	replay := &ReplayFlags{}
	fs.StringVar(&replay.Path, "replay", getenv("PLOTTER_REPLAY", ""), "path to a recorded log to replay")
	fs.Float64Var(&replay.Speed, "replay-speed", getfloat("PLOTTER_REPLAY_SPEED", 1.0), "replay speed multiplier (0 = as fast as possible)")
	fs.BoolVar(&replay.Loop, "replay-loop", getbool("PLOTTER_REPLAY_LOOP", false), "loop replay at EOF")
	fs.IntVar(&replay.SkipFrames, "replay-skip-frames", getint("PLOTTER_REPLAY_SKIP_FRAMES", 0), "skips X amount of records from start")

	plot := &PlotFlags{}
	fs.DurationVar(&plot.Period, "period", getduration("PLOTTER_PERIOD", DEFAULT_PLOT_PERIOD), "time between two plot records")
	fs.IntVar(&plot.ConfigInterval, "config-interval", getint("PLOTTER_CONFIG_INTERVAL", DEFAULT_CONFIG_INTERVAL), "records per full configuration record")
	fs.BoolVar(&plot.ResyncOnChange, "resync-on-change", getbool("PLOTTER_RESYNC_ON_CHANGE", false), "send configuration right after a graph changes")

	export := &ExportFlags{}
	fs.StringVar(&export.RemoteWriteURL, "remote-write-url", getenv("PLOTTER_REMOTE_WRITE_URL", ""), "Prometheus remote write endpoint, empty disables export")
	fs.DurationVar(&export.RemoteWriteInterval, "remote-write-interval", getduration("PLOTTER_REMOTE_WRITE_INTERVAL", 15*time.Second), "remote write period")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	flags.Driver = DriverType(strings.ToLower(driverStr))

	return &Config{
		Flags:  flags,
		Serial: serial,
		CAN:    can,
		Replay: replay,
		Plot:   plot,
		Export: export,
	}, nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getint(key string, def int) int {
	v, err := strconv.ParseInt(getenv(key, ""), 0, 64)
	if err != nil {
		return def
	}
	return int(v)
}

func getfloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(getenv(key, ""), 64)
	if err != nil {
		return def
	}
	return v
}

func getbool(key string, def bool) bool {
	v, err := strconv.ParseBool(getenv(key, ""))
	if err != nil {
		return def
	}
	return v
}

func getduration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(getenv(key, ""))
	if err != nil {
		return def
	}
	return v
}
