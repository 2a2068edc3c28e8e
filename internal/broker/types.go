package broker

import "context"

// Producer publishes JSON-encoded payloads. The payload is marshaled by the
// producer so callers can hand over events, alerts or config updates alike.
type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload interface{}) error
	Close() error
}

// Consumer reads a topic and hands the raw message value to the handler.
// Decoding is the handler's job; the consumer owns retries, DLQ routing and
// offset commits.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, key string, value []byte) error
