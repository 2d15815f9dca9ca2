// Package bus publishes job and episode events to NATS.
//
// The bus is optional: when events.nats_url is empty the daemon runs without
// it. Subjects are <prefix>.job.<status> and <prefix>.episode.published.
package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

// Client is a thin NATS connection wrapper.
type Client struct{ nc *nats.Conn }

// Connect dials url and keeps reconnecting for the life of the process.
func Connect(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.Name("briefings"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Client{nc: nc}, nil
}

// Close drains pending messages and closes the connection.
func (c *Client) Close() {
	if c != nil && c.nc != nil {
		_ = c.nc.Drain()
	}
}

// PublishJSON marshals v and publishes it on subject.
func (c *Client) PublishJSON(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.nc.Publish(subject, b)
}

// SubscribeJSON calls handler for every message on subject. Wildcards are
// allowed.
func (c *Client) SubscribeJSON(subject string, handler func(ctx context.Context, subject string, data []byte)) (*nats.Subscription, error) {
	return c.nc.Subscribe(subject, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		handler(ctx, msg.Subject, msg.Data)
	})
}
