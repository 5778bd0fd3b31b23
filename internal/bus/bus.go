// Package bus carries message notifications in and event broadcasts out over
// Kafka or NATS.
package bus

import (
	"context"
	"errors"
)

// ErrClosed is returned by Fetch after the subscriber has been closed.
var ErrClosed = errors.New("bus: closed")

// Delivery is one received payload. Ack must be called once handling is done;
// drivers without acknowledgements treat it as a no-op.
type Delivery struct {
	Value []byte
	Key   []byte
	ack   func(ctx context.Context) error
}

// Ack confirms the delivery.
func (d Delivery) Ack(ctx context.Context) error {
	if d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

// Subscriber blocks until the next payload arrives or ctx is done.
type Subscriber interface {
	Fetch(ctx context.Context) (Delivery, error)
	Close() error
}

// Publisher sends one payload per call.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

// Driver names.
const (
	DriverKafka = "kafka"
	DriverNATS  = "nats"
)
