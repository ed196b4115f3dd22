package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/toll-settlement/internal/logger"
)

// QueueName is the durable queue carrying settlement events.
const QueueName = "settlement.events"

// Publisher delivers events.  Failures are returned for logging only;
// callers never fail a request because an event was lost.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event.  It is used when RabbitMQ is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// RabbitPublisher opens a short-lived connection per event.  Imports and
// resets are rare, so holding a channel open is not worth the reconnect
// handling.
type RabbitPublisher struct {
	url string
	log *logger.Logger
}

// NewRabbitPublisher returns a publisher for the broker at url.
func NewRabbitPublisher(url string, log *logger.Logger) *RabbitPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &RabbitPublisher{url: url, log: log.WithComponent("publisher")}
}

// Publish sends ev to QueueName as a persistent JSON message.
func (p *RabbitPublisher) Publish(ctx context.Context, ev Event) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Error("dial failed", err, nil)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Error("channel open failed", err, nil)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		p.log.Error("queue declare failed", err, nil)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", QueueName, false, false, pub); err != nil {
		p.log.Error("publish failed", err, map[string]interface{}{"type": ev.Type})
		return err
	}
	return nil
}
