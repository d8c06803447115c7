// Package notify is an in-process push-notification channel.
//
// Backends publish the phases of operations they start on their own; clients
// subscribe to topics. Notifications are not durable. A subscription covering
// several topics receives them in publish order.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Topic names one phase of a backend operation.
type Topic string

const (
	TopicAddItemsPending   Topic = "add_items/pending"
	TopicAddItemsFulfilled Topic = "add_items/fulfilled"
	TopicAddItemsRejected  Topic = "add_items/rejected"
)

// AddItemsTopics are the three phases of an add-items operation.
var AddItemsTopics = []Topic{TopicAddItemsPending, TopicAddItemsFulfilled, TopicAddItemsRejected}

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("notification hub is closed")

// Notification is one published phase. Operation correlates the phases of
// one logical operation.
type Notification struct {
	Topic     Topic           `json:"topic"`
	Operation uuid.UUID       `json:"operation"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// New builds a notification, encoding payload as JSON. A nil payload is omitted.
func New(topic Topic, op uuid.UUID, payload any) (Notification, error) {
	n := Notification{Topic: topic, Operation: op}
	if payload == nil {
		return n, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Notification{}, fmt.Errorf("encoding %s payload: %w", topic, err)
	}
	n.Payload = b
	return n, nil
}

// Decode unmarshals the payload into v.
func (n Notification) Decode(v any) error {
	if len(n.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", n.Topic)
	}
	return json.Unmarshal(n.Payload, v)
}

// Publisher is the producing side of the hub.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

type subscriber struct {
	topics map[Topic]bool
	ch     chan Notification

	// mu is held for the whole of a send; ch is only closed under it.
	mu     sync.Mutex
	done   chan struct{}
	closed bool
	once   sync.Once
}

func newSubscriber(buffer int, topics []Topic) *subscriber {
	s := &subscriber{
		topics: make(map[Topic]bool, len(topics)),
		ch:     make(chan Notification, buffer),
		done:   make(chan struct{}),
	}
	for _, t := range topics {
		s.topics[t] = true
	}
	return s
}

// close releases a blocked sender through done, then closes ch once no send
// is in flight.
func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

// send delivers n unless the subscriber is closed first. A closed subscriber
// is skipped without error.
func (s *subscriber) send(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- n:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Hub fans notifications out to subscribers.
type Hub struct {
	mu        sync.RWMutex
	subs      map[uint64]*subscriber
	nextID    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once

	// publishMu keeps deliveries to every subscriber in publish order.
	publishMu sync.Mutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]*subscriber)}
}

// Subscribe registers for topics. The returned function unsubscribes and
// closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(buffer int, topics ...Topic) (<-chan Notification, func()) {
	sub := newSubscriber(buffer, topics)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed.Load() {
		sub.close()
		return sub.ch, func() {}
	}
	id := h.nextID.Add(1)
	h.subs[id] = sub

	return sub.ch, func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		sub.close()
	}
}

// SubscriberCount returns the number of active subscribers to topic.
func (h *Hub) SubscriberCount(topic Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, s := range h.subs {
		if s.topics[topic] {
			n++
		}
	}
	return n
}

// Publish delivers n to every subscriber of its topic. It blocks until each
// has accepted it or ctx is done.
func (h *Hub) Publish(ctx context.Context, n Notification) error {
	if h.closed.Load() {
		return ErrClosed
	}

	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	h.mu.RLock()
	var targets []*subscriber
	for _, s := range h.subs {
		if s.topics[n.Topic] {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if err := s.send(ctx, n); err != nil {
			return fmt.Errorf("publishing %s: %w", n.Topic, err)
		}
	}
	return nil
}

// Close closes the hub and every subscription channel.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.closed.Store(true)

		h.mu.Lock()
		toClose := make([]*subscriber, 0, len(h.subs))
		for _, s := range h.subs {
			toClose = append(toClose, s)
		}
		h.subs = make(map[uint64]*subscriber)
		h.mu.Unlock()

		for _, s := range toClose {
			s.close()
		}
	})
}
