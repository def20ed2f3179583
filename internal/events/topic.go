package events

import "sync"

// Topic is a typed publish/subscribe channel for a single event kind.
// Payloads are delivered synchronously to every subscriber in subscription
// order; subscribers must not block.
type Topic[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]func(T)
	order  []uint64
}

// Subscription identifies a single subscriber on a topic.
type Subscription struct {
	cancel func()
	once   sync.Once
}

// Unsubscribe removes the subscriber. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.cancel == nil {
		return
	}
	s.once.Do(s.cancel)
}

// NewTopic constructs an empty topic.
func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{subs: make(map[uint64]func(T))}
}

// Subscribe registers fn for every future publish on the topic.
func (t *Topic[T]) Subscribe(fn func(T)) *Subscription {
	if t == nil || fn == nil {
		return &Subscription{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	t.subs[id] = fn
	t.order = append(t.order, id)
	return &Subscription{cancel: func() { t.remove(id) }}
}

func (t *Topic[T]) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subs, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Publish delivers payload to every current subscriber.
func (t *Topic[T]) Publish(payload T) {
	if t == nil {
		return
	}
	t.mu.Lock()
	fns := make([]func(T), 0, len(t.order))
	for _, id := range t.order {
		if fn, ok := t.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}

// SubscriberCount reports how many subscribers are currently attached.
func (t *Topic[T]) SubscriberCount() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}
