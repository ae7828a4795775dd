// Package kafka wraps the franz-go client behind the small surface the
// audit stream needs.
package kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is a thin wrapper over a franz-go client for asynchronous
// production with a delivery callback.
type Producer struct {
	client *kgo.Client
}

// NewProducer connects to the given brokers. The connection is lazy;
// delivery failures surface through the produce promise.
func NewProducer(brokers []string) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Producer{client: client}, nil
}

// Produce sends one record without blocking. The promise runs on a client
// goroutine once delivery is resolved.
func (p *Producer) Produce(ctx context.Context, topic string, key, value []byte, promise func(error)) {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if promise != nil {
			promise(err)
		}
	})
}

// Flush blocks until buffered records are delivered or ctx is done.
func (p *Producer) Flush(ctx context.Context) error {
	return p.client.Flush(ctx)
}

func (p *Producer) Close() {
	p.client.Close()
}
