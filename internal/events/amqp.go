package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AMQP publishes each event as a persistent JSON message to a durable queue named after
// the event. The connection is opened lazily and reopened after it drops.
type AMQP struct {
	url    string
	logger logrus.FieldLogger

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
}

func NewAMQP(url string, logger logrus.FieldLogger) *AMQP {
	return &AMQP{url: url, logger: logger, declared: map[string]bool{}}
}

func (p *AMQP) Publish(ctx context.Context, name string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	if !p.declared[name] {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			p.reset()
			return fmt.Errorf("declare %s: %w", name, err)
		}
		p.declared[name] = true
	}

	err = ch.PublishWithContext(ctx, "", name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}

// channel returns the open channel, dialing when needed. Caller holds p.mu.
func (p *AMQP) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.logger.Debug("events: connected to broker")
	return ch, nil
}

func (p *AMQP) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
	p.declared = map[string]bool{}
}

func (p *AMQP) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
