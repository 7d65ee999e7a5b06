// Package events publishes account lifecycle notifications to NATS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// AccountEvent is the payload of every account lifecycle message.
type AccountEvent struct {
	AccountID  uuid.UUID `json:"account_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers a JSON encoded value on a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
	Close()
}

type conn interface {
	Publish(subj string, data []byte) error
	Drain() error
	Close()
}

// natsConnect is a seam for tests.
var natsConnect = func(url string, opts ...nats.Option) (conn, error) {
	return nats.Connect(url, opts...)
}

// NATSPublisher publishes over a core NATS connection.
type NATSPublisher struct {
	conn conn
}

// NewNATSPublisher connects to url. The connection reconnects on its own;
// messages published while disconnected are buffered by the client.
func NewNATSPublisher(url string, name string) (*NATSPublisher, error) {
	nc, err := natsConnect(url, nats.Name(name), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, v any) error {
	if p == nil || p.conn == nil {
		return errors.New("nil publisher")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, data)
}

// Close drains pending messages before closing the connection.
func (p *NATSPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// NopPublisher is used when no NATS URL is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close()                                     {}
