// Package notify publishes lead events to downstream systems.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/internal/leads"
)

// Defaults for the RabbitMQ topology.
const (
	DefaultExchange   = "leads.events"
	DefaultRoutingKey = "lead"
)

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, leads.LeadEvent) error { return nil }

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher publishes events as persistent JSON on a durable topic
// exchange. The routing key is RoutingKey + "." + event type.
type RabbitPublisher struct {
	conn       *amqp.Connection
	exchange   string
	routingKey string

	mu sync.Mutex
	ch channel
}

// DialRabbit connects to url and declares the exchange.
func DialRabbit(url, exchange, routingKey string) (*RabbitPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	p := newRabbitPublisher(ch, exchange, routingKey)
	p.conn = conn
	logger.Info(context.Background(), logger.CompNotify, "broker.connected",
		slog.String("status", "ok"),
		slog.String("exchange", exchange),
	)
	return p, nil
}

func newRabbitPublisher(ch channel, exchange, routingKey string) *RabbitPublisher {
	if routingKey == "" {
		routingKey = DefaultRoutingKey
	}
	return &RabbitPublisher{ch: ch, exchange: exchange, routingKey: routingKey}
}

// Publish sends ev. Channels are not safe for concurrent publishing.
func (p *RabbitPublisher) Publish(ctx context.Context, ev leads.LeadEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal lead event: %w", err)
	}
	ts := ev.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    ts,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, p.routingKey+"."+ev.Type, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", ev.Type, err)
	}
	logger.Debug(ctx, logger.CompNotify, "publish",
		slog.String("status", "ok"),
		slog.String("type", ev.Type),
		slog.Int64("client_id", ev.ClientID),
	)
	return nil
}

// Close releases the channel and the connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

var (
	_ leads.EventPublisher = Nop{}
	_ leads.EventPublisher = (*RabbitPublisher)(nil)
)
