package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrSubscriptionClosed is returned by Next once the subscription is closed.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Option configures a Hub.
type Option func(*Hub)

// WithPublishHook registers fn to be called once per payload queued for a
// subscriber of service.
func WithPublishHook(fn func(service string)) Option {
	return func(h *Hub) { h.onQueued = fn }
}

// Hub fans out log payloads to live subscriptions keyed by service name.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Subscription]struct{}
	onQueued func(service string)
}

// NewHub creates an initialized Hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients: make(map[string]map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscription is one consumer's queue for a service. The queue is unbounded:
// a subscriber that never drains keeps every payload until it is closed.
type Subscription struct {
	ID      string
	Service string

	hub  *Hub
	out  chan []byte
	wake chan struct{}
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	queue [][]byte
	stop  func() bool
}

// Subscribe registers a new queue for service. The subscription is closed
// when ctx ends or Close is called, whichever happens first.
func (h *Hub) Subscribe(ctx context.Context, service string) *Subscription {
	sub := &Subscription{
		ID:      uuid.NewString(),
		Service: service,
		hub:     h,
		out:     make(chan []byte),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go sub.pump()

	h.mu.Lock()
	if _, ok := h.clients[service]; !ok {
		h.clients[service] = make(map[*Subscription]struct{})
	}
	h.clients[service][sub] = struct{}{}
	h.mu.Unlock()

	sub.mu.Lock()
	sub.stop = context.AfterFunc(ctx, sub.Close)
	sub.mu.Unlock()
	return sub
}

func (s *Subscription) enqueue(msg []byte) {
	s.mu.Lock()
	s.queue = append(s.queue, msg)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump moves queued payloads onto out in order and closes out once the
// subscription is closed.
func (s *Subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		var (
			head []byte
			ok   bool
		)
		if len(s.queue) > 0 {
			head, ok = s.queue[0], true
			s.queue[0] = nil
			s.queue = s.queue[1:]
		}
		s.mu.Unlock()

		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		select {
		case s.out <- head:
		case <-s.done:
			return
		}
	}
}

// Pending reports how many payloads are queued and not yet received.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Publish queues payload for every subscription of service without blocking.
// Each subscriber receives its own copy.
func (h *Hub) Publish(service string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.clients[service] {
		msg := make([]byte, len(payload))
		copy(msg, payload)
		sub.enqueue(msg)
		if h.onQueued != nil {
			h.onQueued(service)
		}
	}
}

// Subscribers reports the number of live subscriptions for service.
func (h *Hub) Subscribers(service string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[service])
}

// Total reports the number of live subscriptions across services.
func (h *Hub) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, subs := range h.clients {
		total += len(subs)
	}
	return total
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.clients[sub.Service]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.clients, sub.Service)
		}
	}
	close(sub.done)
}

// C exposes the delivery channel. It is closed when the subscription closes.
func (s *Subscription) C() <-chan []byte {
	return s.out
}

// Next blocks until a payload arrives, ctx ends, or the subscription closes.
func (s *Subscription) Next(ctx context.Context) ([]byte, error) {
	select {
	case payload, ok := <-s.out:
		if !ok {
			return nil, ErrSubscriptionClosed
		}
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close deregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		stop := s.stop
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
		s.hub.remove(s)
	})
}
