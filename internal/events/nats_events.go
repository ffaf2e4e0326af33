// Package events publishes operation lifecycle events over NATS so external
// consumers (dashboards, reconcilers) can follow pipeline progress. Publishing
// is fire-and-forget: a broker outage never blocks a pipeline.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// OperationEvent is one state transition of a journaled pipeline run.
type OperationEvent struct {
	OperationID string    `json:"operation_id"`
	Kind        string    `json:"kind"`
	State       string    `json:"state"`
	ChainID     uint64    `json:"chain_id"`
	Wallet      string    `json:"wallet"`
	TxHash      string    `json:"tx_hash,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher wraps the NATS connection and an in-process fan-out for local
// consumers (the websocket push endpoint). A nil Publisher or a Publisher
// built from an empty URL still serves local subscribers.
type Publisher struct {
	conn *nats.Conn

	mu          sync.Mutex
	nextID      int
	subscribers map[int]chan OperationEvent
}

// Connect establishes the NATS connection. An empty URL disables the broker
// side; local fan-out still works.
func Connect(url string) (*Publisher, error) {
	p := &Publisher{subscribers: make(map[int]chan OperationEvent)}
	if url == "" {
		log.Println("NATS not configured, broker publishing disabled")
		return p, nil
	}
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Printf("✅ NATS connected: %s", url)
	p.conn = conn
	return p, nil
}

// Subscribe registers a local consumer. Events are dropped rather than
// blocking when the consumer falls behind. The returned cancel func must be
// called to release the channel.
func (p *Publisher) Subscribe() (<-chan OperationEvent, func()) {
	if p == nil {
		ch := make(chan OperationEvent)
		close(ch)
		return ch, func() {}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subscribers == nil {
		p.subscribers = make(map[int]chan OperationEvent)
	}
	id := p.nextID
	p.nextID++
	ch := make(chan OperationEvent, 16)
	p.subscribers[id] = ch

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if existing, ok := p.subscribers[id]; ok {
			delete(p.subscribers, id)
			close(existing)
		}
	}
}

// PublishOperation emits the event on vault.operations.<kind> and fans it
// out to local subscribers. Errors are logged and swallowed.
func (p *Publisher) PublishOperation(ev OperationEvent) {
	if p == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	p.mu.Lock()
	for _, ch := range p.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
	p.mu.Unlock()

	if p.conn == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("failed to marshal operation event: %v", err)
		return
	}
	subject := fmt.Sprintf("vault.operations.%s", ev.Kind)
	if err := p.conn.Publish(subject, payload); err != nil {
		log.Printf("failed to publish %s: %v", subject, err)
	}
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
