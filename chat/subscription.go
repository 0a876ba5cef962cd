package chat

import (
	"sync"
	"sync/atomic"
)

type subscriber struct {
	fn     func([]Message)
	closed atomic.Bool
}

// Broker fans a conversation's snapshots out to live subscribers. Delivery
// happens on the publisher's goroutine; after Unsubscribe at most one
// in-flight snapshot may still arrive, never more.
type Broker struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]*subscriber
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[int]*subscriber)}
}

// Subscribe registers fn for a conversation's future snapshots. It does not
// deliver the current state; stores layer that on top.
func (b *Broker) Subscribe(conversationID string, fn func(snapshot []Message)) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	sub := &subscriber{fn: fn}
	if b.subs[conversationID] == nil {
		b.subs[conversationID] = make(map[int]*subscriber)
	}
	b.subs[conversationID][id] = sub

	return func() {
		sub.closed.Store(true)
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[conversationID], id)
		if len(b.subs[conversationID]) == 0 {
			delete(b.subs, conversationID)
		}
	}
}

// Publish delivers a total snapshot to every live subscriber of the
// conversation. Subscribers must not mutate the slice.
func (b *Broker) Publish(conversationID string, snapshot []Message) {
	b.mu.Lock()
	targets := make([]*subscriber, 0, len(b.subs[conversationID]))
	for _, sub := range b.subs[conversationID] {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		if sub.closed.Load() {
			continue
		}
		sub.fn(snapshot)
	}
}
