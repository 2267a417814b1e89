// Package rabbitmq publishes job lifecycle events to a RabbitMQ topic
// exchange so external consumers can observe scheduler activity.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	schederrors "github.com/mediakit/mediasched/errors"
	"github.com/mediakit/mediasched/events"
)

// Sink implements events.Sink for RabbitMQ
type Sink struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	options Options
}

// NewSink creates a new RabbitMQ event sink
func NewSink(options Options) *Sink {
	return &Sink{options: options}
}

// Connect establishes connection to RabbitMQ and declares the exchange
func (s *Sink) Connect(ctx context.Context) error {
	conn, err := amqp.Dial(s.options.URI)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		s.options.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare events exchange: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.channel = channel
	s.mu.Unlock()
	return nil
}

// Close closes the channel and connection
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.channel != nil {
		_ = s.channel.Close()
		s.channel = nil
	}
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// Health checks the connection
func (s *Sink) Health() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil || s.conn.IsClosed() {
		return schederrors.ErrNotConnected
	}
	return nil
}

// Type returns the sink type
func (s *Sink) Type() string {
	return "rabbitmq"
}

// Record publishes one lifecycle event
func (s *Sink) Record(ctx context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.channel == nil {
		return schederrors.ErrNotConnected
	}

	body, err := json.Marshal(e)
	if err != nil {
		return schederrors.NewSinkError(string(e.Kind), err)
	}

	routingKey := fmt.Sprintf("%s.%s", s.options.RoutingKeyPrefix, e.Kind)
	if err := s.channel.PublishWithContext(ctx,
		s.options.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   e.At,
			Body:        body,
		},
	); err != nil {
		return schederrors.NewSinkError(string(e.Kind), err)
	}
	return nil
}
