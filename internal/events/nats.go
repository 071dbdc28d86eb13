package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes JSON-encoded events to NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the server at url. The connection keeps
// reconnecting in the background; publishes made while disconnected are
// buffered by the client.
func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	defaults := []nats.Option{
		nats.Name("pharmad"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.conn.Publish(topic, data)
}

// Close flushes buffered publishes before closing the connection.
func (p *NATSPublisher) Close() error {
	err := p.conn.FlushTimeout(2 * time.Second)
	p.conn.Close()
	if err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("flushing NATS: %w", err)
	}
	return nil
}

// subscriberBuffer is how many payloads a subscription holds before new ones
// are dropped.
const subscriberBuffer = 64

// NATSSubscriber fans NATS messages out to channels, one per Subscribe call.
// A watcher that falls behind loses messages instead of stalling the
// connection; Dropped reports how many.
type NATSSubscriber struct {
	conn    *nats.Conn
	dropped atomic.Int64

	mu     sync.Mutex
	subs   map[*subscription]struct{}
	closed bool
}

// NewNATSSubscriber connects to the server at url and keeps reconnecting.
// opts are applied after the defaults, so callers can add disconnect and
// reconnect handlers.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	defaults := []nats.Option{
		nats.Name("pharmad-watch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSubscriber{conn: nc, subs: make(map[*subscription]struct{})}, nil
}

// subscription is one channel fed by one NATS subscription. Its lock orders
// deliveries against stop so nothing is sent on a closed channel.
type subscription struct {
	mu      sync.Mutex
	nsub    *nats.Subscription
	out     chan []byte
	stopped bool
}

func (s *subscription) deliver(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return true
	}
	select {
	case s.out <- data:
		return true
	default:
		return false
	}
}

// stop unsubscribes and closes the channel. Payloads already buffered stay
// readable. It is safe to call more than once.
func (s *subscription) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.nsub != nil {
		_ = s.nsub.Unsubscribe()
	}
	close(s.out)
}

// Subscribe delivers payloads published on topic, which may use the NATS
// wildcards * and >, e.g. "pharmacy.stock.*". The subscription is registered
// on the server before Subscribe returns. cancel unsubscribes and closes the
// channel once the buffered payloads are read.
func (n *NATSSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, nil, nats.ErrConnectionClosed
	}

	s := &subscription{out: make(chan []byte, subscriberBuffer)}
	nsub, err := n.conn.Subscribe(topic, func(msg *nats.Msg) {
		if !s.deliver(msg.Data) {
			n.dropped.Add(1)
		}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	s.nsub = nsub
	if err := n.conn.Flush(); err != nil {
		s.stop()
		return nil, nil, fmt.Errorf("registering subscription to %s: %w", topic, err)
	}
	n.subs[s] = struct{}{}

	cancel := func() {
		n.mu.Lock()
		delete(n.subs, s)
		n.mu.Unlock()
		s.stop()
	}
	return s.out, cancel, nil
}

// Dropped returns how many payloads were discarded because a subscriber's
// channel was full.
func (n *NATSSubscriber) Dropped() int64 { return n.dropped.Load() }

// Close stops every open subscription and closes the connection.
func (n *NATSSubscriber) Close() error {
	n.mu.Lock()
	subs := n.subs
	n.subs = nil
	n.closed = true
	n.mu.Unlock()

	for s := range subs {
		s.stop()
	}
	n.conn.Close()
	return nil
}
