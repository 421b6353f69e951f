package events

import (
	"sync"
	"time"

	"plotter/protocol"
)

const SUBSCRIBER_BUFFER = 16

// Event carries one reconstructed snapshot of the firmware's graphs.
type Event struct {
	// Snapshot is shared between subscribers and must not be modified.
	Snapshot *protocol.Snapshot
	// Config is set when the frame behind the snapshot carried the full configuration.
	Config   bool
	Received time.Time
}

type EventHub struct {
	mu   sync.Mutex
	subs map[int]chan *Event
	next int
	last *Event
}

func NewHub() *EventHub {
	return &EventHub{subs: map[int]chan *Event{}}
}

// Subscribe returns a channel of events, starting with the latest one if any. Slow subscribers
// miss events rather than blocking the source.
func (h *EventHub) Subscribe() (int, <-chan *Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan *Event, SUBSCRIBER_BUFFER)
	if h.last != nil {
		ch <- h.copy(h.last)
	}
	h.subs[id] = ch
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			close(c)
			delete(h.subs, id)
		}
	}
	return id, ch, cancel
}

func (h *EventHub) Broadcast(event *Event) {
	h.mu.Lock()
	h.last = event
	for _, ch := range h.subs {
		select {
		case ch <- h.copy(event):
		default:
		}
	}
	h.mu.Unlock()
}

// Latest returns the last broadcast event, or nil before the first one.
func (h *EventHub) Latest() *Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return nil
	}
	return h.copy(h.last)
}

func (h *EventHub) copy(e *Event) *Event {
	return &Event{e.Snapshot, e.Config, e.Received}
}
