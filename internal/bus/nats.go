package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DialNATS connects to a NATS server and keeps reconnecting in the background.
func DialNATS(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSSubscriber is a queue subscription; processors sharing a queue group
// split the notification stream between them.
type NATSSubscriber struct {
	sub *nats.Subscription
}

// NewNATSSubscriber subscribes to subject. An empty queue makes a plain subscription.
func NewNATSSubscriber(nc *nats.Conn, subject, queue string) (*NATSSubscriber, error) {
	var (
		sub *nats.Subscription
		err error
	)
	if queue == "" {
		sub, err = nc.SubscribeSync(subject)
	} else {
		sub, err = nc.QueueSubscribeSync(subject, queue)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return &NATSSubscriber{sub: sub}, nil
}

// Fetch implements Subscriber.
func (s *NATSSubscriber) Fetch(ctx context.Context) (Delivery, error) {
	msg, err := s.sub.NextMsgWithContext(ctx)
	if err != nil {
		if errors.Is(err, nats.ErrBadSubscription) || errors.Is(err, nats.ErrConnectionClosed) {
			return Delivery{}, ErrClosed
		}
		return Delivery{}, err
	}
	d := Delivery{Value: msg.Data}
	if msg.Header != nil {
		if key := msg.Header.Get("Key"); key != "" {
			d.Key = []byte(key)
		}
	}
	return d, nil
}

// Close implements Subscriber.
func (s *NATSSubscriber) Close() error {
	if err := s.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) && !errors.Is(err, nats.ErrBadSubscription) {
		return err
	}
	return nil
}

// NATSPublisher publishes to one subject.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewNATSPublisher builds a publisher on subject.
func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subject}
}

// Publish implements Publisher. The key is carried as a header.
func (p *NATSPublisher) Publish(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = value
	if len(key) > 0 {
		msg.Header.Set("Key", string(key))
	}
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish to %s: %w", p.subject, err)
	}
	return nil
}

// Close flushes pending publishes. The connection itself is owned by the caller.
func (p *NATSPublisher) Close() error {
	if p.nc.IsClosed() {
		return nil
	}
	return p.nc.Flush()
}
