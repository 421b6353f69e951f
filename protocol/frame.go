package protocol

import (
	"bytes"
	"math"
	"strconv"
)

// Frame is one decoded record. The pointer fields are only set on config records.
type Frame struct {
	Time        uint64        `json:"t"`
	NumGraphs   *int          `json:"ng,omitempty"`
	LastUpdated *uint64       `json:"lu,omitempty"`
	Graphs      []GraphRecord `json:"g"`
}

// IsConfig reports whether the frame carries the full configuration.
func (f *Frame) IsConfig() bool {
	return f.NumGraphs != nil
}

// GraphRecord is one entry of the "g" array.
type GraphRecord struct {
	Title     string   `json:"t,omitempty"`
	XvY       *int     `json:"xvy,omitempty"`
	MaxPoints int      `json:"pd,omitempty"`
	Size      int      `json:"sz,omitempty"`
	Labels    []string `json:"l,omitempty"`
	Colours   []string `json:"c,omitempty"`
	Data      []Value  `json:"d"`
}

// IsConfig reports whether the record carries title, labels and colours.
func (g *GraphRecord) IsConfig() bool {
	return g.XvY != nil
}

// Value is a decoded number, null decodes as NaN.
type Value float64

func (v *Value) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*v = Value(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*v = Value(f)
	return nil
}
