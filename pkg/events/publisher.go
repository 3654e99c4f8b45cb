// Package events publishes C7's run state-machine transitions to RabbitMQ
// (SPEC_FULL.md §A7). It is a best-effort side channel: a run's outcome
// never depends on whether anyone is listening, so every failure here is
// logged and swallowed rather than propagated.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/pytanis-go/pretalx-core/pkg/config"
)

// Transition describes one run moving between C7 pipeline states
// (Collecting, Building, Writing, Solving, Loading, Emitting, Failed).
type Transition struct {
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits Transitions onto a durable queue. A nil Publisher (the
// default when [events] is absent or events.enabled=false) is a valid
// no-op receiver — every method checks for it.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    string
	log      *zap.Logger
}

// NewPublisher dials the broker named in cfg and declares the durable
// queue it will publish to. It returns (nil, nil) when events are
// disabled, so callers can unconditionally hold a *Publisher field.
func NewPublisher(cfg config.EventsConfig, log *zap.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	queue := cfg.Exchange
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, channel: ch, queue: queue, log: log}, nil
}

// Publish sends one Transition. Marshaling or broker failures are logged
// at Warn and otherwise ignored — a dropped progress event never fails a
// run.
func (p *Publisher) Publish(ctx context.Context, t Transition) {
	if p == nil {
		return
	}

	body, err := json.Marshal(t)
	if err != nil {
		p.log.Warn("events: marshal transition failed", zap.Error(err))
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(publishCtx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    t.Timestamp,
		Body:         body,
	})
	if err != nil {
		p.log.Warn("events: publish transition failed", zap.Error(err), zap.String("run_id", t.RunID))
	}
}

// Close releases the channel and connection. Safe to call on a nil
// Publisher.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
