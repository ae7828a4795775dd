// Package stream fans the audit trail out to a Kafka topic for external
// consumers (SIEM, analytics). Delivery is best-effort: a struggling
// broker opens a circuit breaker and events are dropped, never blocking
// the approval workflow. The store remains the durable record.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	audit "warden/pkg/platform/audit"
)

// Producer is the slice of the Kafka client the stream needs.
// internal/platform/kafka.Producer satisfies it.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte, promise func(error))
}

// Stream publishes audit events to one topic, keyed by community so each
// community's trail stays ordered within a partition.
type Stream struct {
	producer Producer
	topic    string
	breaker  *CircuitBreaker
	sampler  *Sampler
	metrics  *Metrics
	logger   *slog.Logger
}

// Option configures a Stream.
type Option func(*Stream)

// WithLogger sets the logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stream) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches stream metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Stream) {
		s.metrics = m
	}
}

// WithSampler replaces the default keep-everything sampler.
func WithSampler(sampler *Sampler) Option {
	return func(s *Stream) {
		if sampler != nil {
			s.sampler = sampler
		}
	}
}

// WithBreaker replaces the default breaker (5 failures, 1 minute cooldown).
func WithBreaker(breaker *CircuitBreaker) Option {
	return func(s *Stream) {
		if breaker != nil {
			s.breaker = breaker
		}
	}
}

// New creates a stream over an already connected producer.
func New(producer Producer, topic string, opts ...Option) *Stream {
	s := &Stream{
		producer: producer,
		topic:    topic,
		breaker:  NewCircuitBreaker(5, time.Minute),
		sampler:  NewSampler(1.0),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// payload is the wire form of an event. Snake case for consumers outside
// this codebase.
type payload struct {
	ID              string            `json:"id"`
	Timestamp       string            `json:"timestamp"`
	Category        string            `json:"category"`
	Action          string            `json:"action"`
	CommunityID     string            `json:"community_id"`
	CommunityName   string            `json:"community_name,omitempty"`
	ParticipantID   string            `json:"participant_id"`
	ParticipantName string            `json:"participant_name,omitempty"`
	ActorID         string            `json:"actor_id,omitempty"`
	ActorName       string            `json:"actor_name,omitempty"`
	InviterID       string            `json:"inviter_id,omitempty"`
	InviterName     string            `json:"inviter_name,omitempty"`
	Reason          string            `json:"reason,omitempty"`
	Detail          map[string]string `json:"detail,omitempty"`
}

// Publish implements the publisher sink contract. Operations events go
// through the sampler; everything else is always attempted while the
// breaker allows it.
func (s *Stream) Publish(ctx context.Context, event audit.Event) error {
	if event.Category == audit.CategoryOperations && !s.sampler.ShouldSample(event.Action) {
		s.metrics.IncSampled()
		return nil
	}
	if !s.breaker.Allow() {
		s.metrics.IncBreakerDropped()
		return nil
	}

	value, err := json.Marshal(payload{
		ID:              event.ID,
		Timestamp:       event.Timestamp.Format(time.RFC3339Nano),
		Category:        string(event.Category),
		Action:          event.Action,
		CommunityID:     event.CommunityID,
		CommunityName:   event.CommunityName,
		ParticipantID:   event.ParticipantID,
		ParticipantName: event.ParticipantName,
		ActorID:         event.ActorID,
		ActorName:       event.ActorName,
		InviterID:       event.InviterID,
		InviterName:     event.InviterName,
		Reason:          event.Reason,
		Detail:          event.Detail,
	})
	if err != nil {
		return fmt.Errorf("marshal stream payload: %w", err)
	}

	action := event.Action
	s.producer.Produce(ctx, s.topic, []byte(event.CommunityID), value, func(err error) {
		if err != nil {
			s.breaker.RecordFailure()
			s.metrics.IncPublishFailures()
			s.metrics.SetBreakerState(s.breaker.IsOpen())
			s.logger.Warn("audit stream delivery failed", "action", action, "error", err)
			return
		}
		s.breaker.RecordSuccess()
		s.metrics.IncPublished()
		s.metrics.SetBreakerState(false)
	})
	return nil
}
