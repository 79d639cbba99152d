package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventNodeAppeared          EventType = "node.appeared"
	EventNodeRemoved           EventType = "node.removed"
	EventNodeStateChanged      EventType = "node.state_changed"
	EventNodeAddrChanged       EventType = "node.addr_changed"
	EventPartitionStateChanged EventType = "partition.state_changed"
)

// Event is one observed change. Subject is the node or partition name.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Subject   string
	From      string
	To        string
	Reason    string
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker fans published events out to subscribers. Slow subscribers miss
// events rather than stalling the publisher.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	stopOnce    sync.Once
	dropped     func(*Event)
}

// NewBroker creates a broker with a publish queue of the given size
func NewBroker(queue int) *Broker {
	if queue <= 0 {
		queue = 100
	}
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, queue),
		stopCh:      make(chan struct{}),
	}
}

// OnDrop registers a callback for events that could not be queued or delivered
func (b *Broker) OnDrop(fn func(*Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dropped = fn
}

// Start begins the distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the distribution loop. It is safe to call more than once.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// Subscribe creates a subscription buffering up to size events
func (b *Broker) Subscribe(size int) Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, size)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes and closes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish queues an event, assigning its ID and timestamp when unset.
// It never blocks; a full queue drops the event.
func (b *Broker) Publish(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	default:
		b.drop(event)
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			if b.dropped != nil {
				b.dropped(event)
			}
		}
	}
}

func (b *Broker) drop(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.dropped != nil {
		b.dropped(event)
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
