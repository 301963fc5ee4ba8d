// Package provider abstracts the message queue behind a small consumer
// interface so the pipeline can run against Kafka in production and an
// in-memory queue in tests.
package provider

import "context"

type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int32
	Offset    int64
}

type ProviderInterface interface {
	// CreateConsumer joins the configured consumer group. The name is used
	// for stats and logging only.
	CreateConsumer(name string) (ConsumerInterface, error)
}

type ConsumerInterface interface {
	// Recv blocks until the next message is available. A returned error
	// means the consumer connection is broken and is not locally
	// recoverable; callers are expected to terminate.
	Recv(ctx context.Context) (*Message, error)
	Close() error
}
