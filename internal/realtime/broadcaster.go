package realtime

import "sync"

const subscriberBuffer = 16

// Broadcaster fans events out to subscribers, typically SSE streams.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]struct{}
	keep   func(T) bool
	closed bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{
		subs: make(map[chan T]struct{}),
	}
}

// NewPriorityBroadcaster creates a broadcaster that never drops an event keep accepts. When such
// an event finds a subscriber full, the oldest droppable event queued for it makes room.
func NewPriorityBroadcaster[T any](keep func(T) bool) *Broadcaster[T] {
	b := NewBroadcaster[T]()
	b.keep = keep
	return b
}

// Subscribe registers a new subscriber and returns its event channel. Subscribing to a closed
// broadcaster returns an already closed channel.
func (b *Broadcaster[T]) Subscribe() chan T {
	ch := make(chan T, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster[T]) Unsubscribe(ch chan T) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers an event to all subscribers.
func (b *Broadcaster[T]) Publish(event T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- event:
			continue
		default:
		}
		if b.keep != nil && b.keep(event) {
			b.makeRoom(ch, event)
		}
		// Otherwise drop; the next event will catch the subscriber up.
	}
}

// makeRoom requeues ch's backlog plus event, minus the oldest droppable entries that no longer
// fit. Only Publish sends on ch and it holds b.mu, so the requeue never blocks.
func (b *Broadcaster[T]) makeRoom(ch chan T, event T) {
	backlog := make([]T, 0, cap(ch)+1)
drain:
	for {
		select {
		case v := <-ch:
			backlog = append(backlog, v)
		default:
			break drain
		}
	}
	backlog = append(backlog, event)

	for len(backlog) > cap(ch) {
		victim := 0
		for i, v := range backlog {
			if !b.keep(v) {
				victim = i
				break
			}
		}
		backlog = append(backlog[:victim], backlog[victim+1:]...)
	}
	for _, v := range backlog {
		select {
		case ch <- v:
		default:
		}
	}
}

// Len returns the number of subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close unsubscribes everyone and rejects later subscribers.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	b.closed = true
	b.mu.Unlock()
}
