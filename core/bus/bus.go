// Package bus defines the transport boundary between the relay and the
// message bus. The relay never asks the bus whether it is "available"; it
// hands an envelope to Publish and acts on the outcome.
package bus

import (
	"context"
	"errors"
)

// ErrNotConnected reports that the transport currently has no live
// connection. Publish failures carrying this error are transient.
var ErrNotConnected = errors.New("bus transport not connected")

// Handler receives one inbound message for a matching subscription.
type Handler func(routingKey string, payload []byte)

// Publisher attempts a single delivery of an encoded envelope. One call is
// one attempt; retry policy lives with the caller.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
}

// Subscriber registers a handler for routing keys matching an AMQP-style
// topic pattern.
type Subscriber interface {
	Subscribe(pattern string, handler Handler) error
}

type Transport interface {
	Publisher
	Subscriber
	Close() error
}
