package utils

import "time"

// Clock is a monotonic millisecond counter, like millis() on a microcontroller.
type Clock interface {
	Millis() uint64
}

// ClockFunc adapts a function to a Clock.
type ClockFunc func() uint64

func (f ClockFunc) Millis() uint64 {
	return f()
}

type monotonicClock struct {
	startTime time.Time
}

// NewMonotonicClock counts milliseconds from the moment it is created.
func NewMonotonicClock() Clock {
	return &monotonicClock{startTime: time.Now()}
}

func (c *monotonicClock) Millis() uint64 {
	return uint64(time.Since(c.startTime) / time.Millisecond)
}
