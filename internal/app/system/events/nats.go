package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StreamName is the JetStream stream holding social events.
const StreamName = "SOCIAL"

// NatsPublisher publishes events to a JetStream stream.
type NatsPublisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewNatsPublisher connects and makes sure the stream exists (idempotent).
func NewNatsPublisher(ctx context.Context, url string) (*NatsPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("animelist"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPrefix + ">"},
		Storage:  jetstream.FileStorage,
		Replicas: 1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream: %w", err)
	}

	return &NatsPublisher{nc: nc, js: js}, nil
}

// Publish sends e and waits for the server acknowledgement.
func (p *NatsPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := p.js.Publish(ctx, e.Subject(), data); err != nil {
		return fmt.Errorf("nats publish %s: %w", e.Subject(), err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NatsPublisher) Close() error {
	return p.nc.Drain()
}
