// Package in_memory is a queue provider backed by a channel, used by tests
// in place of Kafka. All consumers share one feed, so each published message
// is delivered to exactly one of them, matching consumer-group semantics.
package in_memory

import (
	"context"
	"errors"
	"sync"

	"github.com/telemetrydev/propdefs/events/provider"
)

var ErrClosed = errors.New("in-memory queue closed")

type InMemory struct {
	topic string
	data  chan *provider.Message

	mu      sync.Mutex
	failure error
	offset  int64
	closed  bool
}

func NewInMemory(topic string, buffer int) *InMemory {
	return &InMemory{
		topic: topic,
		data:  make(chan *provider.Message, buffer),
	}
}

func (m *InMemory) CreateConsumer(name string) (provider.ConsumerInterface, error) {
	return &consumer{queue: m}, nil
}

// Publish appends a raw message to the queue, blocking when the buffer is full.
func (m *InMemory) Publish(value []byte) {
	m.mu.Lock()
	offset := m.offset
	m.offset++
	m.mu.Unlock()
	m.data <- &provider.Message{
		Value:  value,
		Topic:  m.topic,
		Offset: offset,
	}
}

// Fail simulates a broken consumer connection: every pending and future Recv
// returns err once the buffered messages are drained.
func (m *InMemory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.failure = err
	m.closed = true
	close(m.data)
}

// Close ends the queue without a failure; Recv returns ErrClosed.
func (m *InMemory) Close() {
	m.Fail(nil)
}

func (m *InMemory) failErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failure == nil {
		return ErrClosed
	}
	return m.failure
}

type consumer struct {
	queue *InMemory
}

func (c *consumer) Recv(ctx context.Context) (*provider.Message, error) {
	select {
	case msg, ok := <-c.queue.data:
		if !ok {
			return nil, c.queue.failErr()
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *consumer) Close() error {
	return nil
}
