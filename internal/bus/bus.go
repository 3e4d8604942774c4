// Package bus provides a typed publish/subscribe dispatcher shared by the tree, the
// document set and the command flows.
//
// Delivery is synchronous: Publish calls every subscriber of the topic on the publishing
// goroutine, in subscription order, before it returns. Handlers that talk to the remote
// store must hand that work off to another goroutine.
package bus

import (
	"sync"
	"sync/atomic"

	"github.com/crowdwave/reactoxide/internal/metrics"
)

// Topic names an event stream whose payloads are of type T.
type Topic[T any] struct {
	name string
}

// NewTopic declares a topic.
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{name: name}
}

// Name returns the topic name.
func (t Topic[T]) Name() string {
	return t.name
}

type subscription struct {
	id uint64
	fn func(any)
}

// Bus dispatches events to subscribers.
type Bus struct {
	mu        sync.RWMutex
	nextID    uint64
	subs      map[string][]subscription
	observers []subscription
	dropped   atomic.Uint64
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs: make(map[string][]subscription),
	}
}

// Subscribe registers fn for topic and returns a func that removes it.
func Subscribe[T any](b *Bus, topic Topic[T], fn func(T)) func() {
	return b.add(topic.name, func(v any) { fn(v.(T)) })
}

// Publish delivers v to every current subscriber of topic, then to observers.
func Publish[T any](b *Bus, topic Topic[T], v T) {
	b.mu.RLock()
	handlers := append([]subscription(nil), b.subs[topic.name]...)
	observers := append([]subscription(nil), b.observers...)
	b.mu.RUnlock()

	metrics.RecordBusEvent(topic.name)
	for _, s := range handlers {
		s.fn(v)
	}
	for _, o := range observers {
		o.fn(topic.name)
	}
}

// Observe registers fn to be called with the topic name after every publish on any topic.
func (b *Bus) Observe(fn func(topic string)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.observers = append(b.observers, subscription{id: id, fn: func(v any) { fn(v.(string)) }})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		b.observers = remove(b.observers, id)
		b.mu.Unlock()
	}
}

// Stream bridges topic onto a buffered channel. Sends never block the publisher: when the
// buffer is full the event is dropped and counted. cancel unsubscribes and closes the channel.
func Stream[T any](b *Bus, topic Topic[T], buffer int) (<-chan T, func()) {
	ch := make(chan T, buffer)
	var (
		mu     sync.Mutex
		closed bool
	)

	unsubscribe := Subscribe(b, topic, func(v T) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- v:
		default:
			b.dropped.Add(1)
			metrics.RecordBusDrop()
		}
	})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			unsubscribe()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
	return ch, cancel
}

// Count returns the number of subscribers of the named topic.
func (b *Bus) Count(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Dropped returns how many events were dropped for full stream channels.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bus) add(name string, fn func(any)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.subs[name] = remove(b.subs[name], id)
			if len(b.subs[name]) == 0 {
				delete(b.subs, name)
			}
			b.mu.Unlock()
		})
	}
}

func remove(list []subscription, id uint64) []subscription {
	out := make([]subscription, 0, len(list))
	for _, s := range list {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
