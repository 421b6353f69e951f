package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotter/protocol"
)

func event(t uint64) *Event {
	return &Event{Snapshot: &protocol.Snapshot{Time: t}, Received: time.Unix(0, 0)}
}

func TestSubscribeReplaysLatest(t *testing.T) {
	hub := NewHub()
	assert.Nil(t, hub.Latest())

	hub.Broadcast(event(1))
	hub.Broadcast(event(2))

	_, ch, cancel := hub.Subscribe()
	defer cancel()

	select {
	case e := <-ch:
		assert.Equal(t, uint64(2), e.Snapshot.Time)
	default:
		t.Fatal("expected latest event on subscribe")
	}
	assert.Equal(t, uint64(2), hub.Latest().Snapshot.Time)
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	hub := NewHub()
	_, ch, cancel := hub.Subscribe()

	for i := 0; i < SUBSCRIBER_BUFFER+5; i++ {
		hub.Broadcast(event(uint64(i)))
	}

	assert.Len(t, ch, SUBSCRIBER_BUFFER)
	first := <-ch
	assert.Equal(t, uint64(0), first.Snapshot.Time)

	cancel()
	// drain, then the channel reports closed
	for range ch {
	}
	_, open := <-ch
	assert.False(t, open)

	cancel()
}

func TestSubscribersAreIndependent(t *testing.T) {
	hub := NewHub()
	idA, a, cancelA := hub.Subscribe()
	idB, b, cancelB := hub.Subscribe()
	defer cancelB()
	require.NotEqual(t, idA, idB)

	cancelA()
	hub.Broadcast(event(7))

	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, uint64(7), (<-b).Snapshot.Time)
}
