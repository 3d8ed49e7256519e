package events

import "sync"

// Listener receives core events. Implementations must not block; slow
// consumers should hand off to their own goroutine.
type Listener func(Event)

// Bus is a small synchronous pub/sub hub. Delivery order matches emission
// order, which callers rely on to observe state transitions in sequence.
type Bus struct {
	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[int]Listener)}
}

// Subscribe registers a listener and returns an unsubscribe function.
func (b *Bus) Subscribe(l Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// Publish delivers the event to all current listeners in subscription
// order. Safe for concurrent use; a nil bus drops events.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	ids := make([]int, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	// map iteration is randomized; restore subscription order
	sortInts(ids)
	ls := make([]Listener, 0, len(ids))
	for _, id := range ids {
		ls = append(ls, b.listeners[id])
	}
	b.mu.RUnlock()

	for _, l := range ls {
		l(e)
	}
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
