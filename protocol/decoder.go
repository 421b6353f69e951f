package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MAX_RECORD_SIZE bounds how much the decoder buffers while looking for a trailer.
const MAX_RECORD_SIZE = 64 * 1024

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrFrameTooLarge  = errors.New("frame exceeds maximum record size")
)

// Decoder reads records terminated by OuterKey from a byte stream.
type Decoder struct {
	reader *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: bufio.NewReaderSize(r, 4096)}
}

// Next reads the next record. Bytes before the first '{' (line endings, boot noise, a record cut
// in half by a reset) are discarded. A malformed record returns ErrMalformedFrame and the decoder
// can keep going. io.EOF is returned once the stream ends, a trailing partial record is dropped.
func (d *Decoder) Next() (*Frame, error) {
	raw, err := d.readRecord()
	if err != nil {
		return nil, err
	}

	start := recordStart(raw)
	if start < 0 {
		return nil, fmt.Errorf("no record start in %d bytes: %w", len(raw), ErrMalformedFrame)
	}

	frame := &Frame{}
	if err := json.Unmarshal(raw[start:], frame); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrMalformedFrame)
	}
	return frame, nil
}

func (d *Decoder) readRecord() ([]byte, error) {
	var record []byte
	for {
		chunk, err := d.reader.ReadSlice(OuterKey)
		record = append(record, chunk...)
		if len(record) > MAX_RECORD_SIZE {
			// skip to the next trailer so the decoder resyncs
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = d.reader.ReadSlice(OuterKey)
			}
			return nil, ErrFrameTooLarge
		}
		if err == nil {
			return record[:len(record)-1], nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, err
	}
}

var recordPrefix = []byte(`{"` + TimeKey + `":`)

// recordStart finds the last top level record start in raw. A lost trailer glues two records
// together, only the later one can be complete. Graph records also open with the "t" key but
// their value is a quoted title, a record's is a timestamp.
func recordStart(raw []byte) int {
	end := len(raw)
	for end > 0 {
		i := bytes.LastIndex(raw[:end], recordPrefix)
		if i < 0 {
			return -1
		}
		next := i + len(recordPrefix)
		if next < len(raw) && raw[next] >= '0' && raw[next] <= '9' {
			return i
		}
		end = i
	}
	return -1
}
