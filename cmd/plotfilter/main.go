package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"plotter/config"
	"plotter/protocol"
)

// plotfilter turns a recorded plot log into one text line per record and graph, keeping only
// graphs whose title contains -title.
func main() {
	in := flag.String("in", "logs/RAWLOG.log", "recorded plot log")
	out := flag.String("out", "", "output file, stdout when empty")
	title := flag.String("title", "", "keep graphs whose title contains this")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	logger, err := config.NewLogger(*level)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	file, err := os.Open(*in)
	if err != nil {
		logger.Fatal("open log", zap.Error(err))
	}
	defer file.Close()

	var dst io.Writer = os.Stdout
	if *out != "" {
		outFile, err := os.Create(*out)
		if err != nil {
			logger.Fatal("create output", zap.Error(err))
		}
		defer outFile.Close()
		dst = outFile
	}

	writer := bufio.NewWriter(dst)
	lines, err := filter(file, writer, *title, logger)
	if flushErr := writer.Flush(); err == nil {
		err = flushErr
	}
	if err != nil {
		logger.Fatal("filter", zap.Error(err))
	}
	logger.Info("done", zap.Int("lines", lines))
}

func filter(r io.Reader, w io.Writer, title string, logger *zap.Logger) (int, error) {
	decoder := protocol.NewDecoder(r)
	tracker := protocol.NewTracker()
	lines := 0

	for {
		frame, err := decoder.Next()
		if err != nil {
			if err == io.EOF {
				return lines, nil
			}
			if errors.Is(err, protocol.ErrMalformedFrame) || errors.Is(err, protocol.ErrFrameTooLarge) {
				logger.Debug("skipping record", zap.Error(err))
				continue
			}
			return lines, err
		}

		snapshot, err := tracker.Apply(frame)
		if err != nil {
			logger.Debug("skipping frame", zap.Uint64("t", frame.Time), zap.Error(err))
			continue
		}

		for _, graph := range snapshot.Graphs {
			if !strings.Contains(graph.Title, title) {
				continue
			}
			if _, err := io.WriteString(w, formatLine(snapshot.Time, graph)); err != nil {
				return lines, err
			}
			lines++
		}
	}
}

func formatLine(t uint64, graph protocol.GraphState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d\t%s", t, graph.Title)
	for i, label := range graph.Labels {
		if i < len(graph.Values) {
			sb.WriteString("\t" + label + "=" + strconv.FormatFloat(graph.Values[i], 'g', -1, 64))
		}
	}
	sb.WriteByte('\n')
	return sb.String()
}
