package events

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerDelivers(t *testing.T) {
	b := NewBroker(10)
	b.Start()
	defer b.Stop()

	sub := b.Subscribe(10)
	assert.Equal(t, 1, b.SubscriberCount())

	b.Publish(&Event{Type: EventNodeStateChanged, Subject: "queue1-dy-c5xlarge-1", From: "IDLE", To: "DOWN"})

	select {
	case ev := <-sub:
		assert.Equal(t, EventNodeStateChanged, ev.Type)
		assert.Equal(t, "DOWN", ev.To)
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())
	_, open := <-sub
	assert.False(t, open)
}

func TestBrokerPublishNeverBlocks(t *testing.T) {
	b := NewBroker(1)
	var dropped atomic.Int32
	b.OnDrop(func(*Event) { dropped.Add(1) })

	// Not started: the queue fills after one event
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			b.Publish(&Event{Type: EventNodeAppeared})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
	assert.Equal(t, int32(4), dropped.Load())
}

func TestBrokerSlowSubscriber(t *testing.T) {
	b := NewBroker(10)
	var dropped atomic.Int32
	b.OnDrop(func(*Event) { dropped.Add(1) })
	b.Start()
	defer b.Stop()

	sub := b.Subscribe(1)
	b.Publish(&Event{Subject: "a"})
	b.Publish(&Event{Subject: "b"})

	require.Eventually(t, func() bool { return dropped.Load() == 1 }, time.Second, 5*time.Millisecond)
	ev := <-sub
	assert.Equal(t, "a", ev.Subject)

	b.Stop()
}
