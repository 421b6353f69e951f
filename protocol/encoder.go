package protocol

import (
	"io"
	"math"
	"strconv"
)

// Encoder builds one record at a time in a reusable buffer. It only knows enough JSON to place
// commas and colons, strings are written verbatim (labels, titles and colours must not contain
// a quote).
type Encoder struct {
	buf []byte
	// counts holds the number of members written at each open object/array level.
	counts []int
	// afterKey is set between a key and its value.
	afterKey bool
}

func NewEncoder() *Encoder {
	return &Encoder{
		buf:    make([]byte, 0, 512),
		counts: make([]int, 0, 4),
	}
}

// Reset drops the buffered record but keeps the allocation.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
	e.counts = e.counts[:0]
	e.afterKey = false
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) String() string {
	return string(e.buf)
}

// WriteTo writes the buffered record to w.
func (e *Encoder) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(e.buf)
	return int64(n), err
}

func (e *Encoder) BeginObject() {
	e.value()
	e.buf = append(e.buf, '{')
	e.counts = append(e.counts, 0)
}

func (e *Encoder) EndObject() {
	e.buf = append(e.buf, '}')
	e.counts = e.counts[:len(e.counts)-1]
}

func (e *Encoder) BeginArray() {
	e.value()
	e.buf = append(e.buf, '[')
	e.counts = append(e.counts, 0)
}

func (e *Encoder) EndArray() {
	e.buf = append(e.buf, ']')
	e.counts = e.counts[:len(e.counts)-1]
}

// Key writes "key": inside the current object.
func (e *Encoder) Key(key string) {
	e.separate()
	e.buf = append(e.buf, '"')
	e.buf = append(e.buf, key...)
	e.buf = append(e.buf, '"', ':')
	e.afterKey = true
}

// Text writes s as a quoted string.
func (e *Encoder) Text(s string) {
	e.value()
	e.buf = append(e.buf, '"')
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, '"')
}

func (e *Encoder) Uint(u uint64) {
	e.value()
	e.buf = strconv.AppendUint(e.buf, u, 10)
}

func (e *Encoder) Int(i int) {
	e.value()
	e.buf = strconv.AppendInt(e.buf, int64(i), 10)
}

// Flag writes a bool as 1 or 0.
func (e *Encoder) Flag(b bool) {
	e.value()
	if b {
		e.buf = append(e.buf, '1')
	} else {
		e.buf = append(e.buf, '0')
	}
}

// Float writes f with Precision fractional digits. NaN and infinities become null.
func (e *Encoder) Float(f float64) {
	e.value()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		e.buf = append(e.buf, "null"...)
		return
	}
	e.buf = strconv.AppendFloat(e.buf, f, 'f', Precision, 64)
}

// Terminate appends the record trailer.
func (e *Encoder) Terminate() {
	e.buf = append(e.buf, OuterKey)
	e.buf = append(e.buf, lineEnding...)
}

func (e *Encoder) value() {
	if e.afterKey {
		e.afterKey = false
		return
	}
	e.separate()
}

func (e *Encoder) separate() {
	if len(e.counts) == 0 {
		return
	}
	top := len(e.counts) - 1
	if e.counts[top] > 0 {
		e.buf = append(e.buf, ',')
	}
	e.counts[top]++
}
