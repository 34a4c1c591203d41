package service

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/condo-water-billing/internal/queue"
)

// Publisher delivers billing audit events.  Callers treat publishing as best
// effort: an error is logged and never fails the triggering request.
type Publisher interface {
    Publish(ctx context.Context, ev queue.BillingEvent) error
}

// NopPublisher drops every event.  It is used when the queue is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.BillingEvent) error { return nil }

// AMQPPublisher publishes events to a durable RabbitMQ queue.  It dials per
// publish; billing writes are rare enough that a pooled connection is not
// worth its reconnect handling.
type AMQPPublisher struct {
    URL   string
    Queue string
    Log   *zap.Logger

    // DialTimeout bounds connecting and the AMQP handshake (default 2s) so
    // an unreachable broker does not stall the write that triggered the
    // event.
    DialTimeout time.Duration
}

const defaultPublishDialTimeout = 2 * time.Second

// Publish sends ev as a persistent JSON message through the default exchange.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.BillingEvent) error {
    timeout := p.DialTimeout
    if timeout <= 0 {
        timeout = defaultPublishDialTimeout
    }
    conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(timeout)})
    if err != nil {
        p.Log.Warn("rabbitmq: dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.Log.Warn("rabbitmq: channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        p.Queue, // name
        true,    // durable
        false,   // autoDelete
        false,   // exclusive
        false,   // noWait
        nil,     // args
    ); err != nil {
        p.Log.Warn("rabbitmq: queue declare failed", zap.Error(err))
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Type:         ev.Type,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
        p.Log.Warn("rabbitmq: publish failed", zap.Error(err), zap.String("type", ev.Type))
        return err
    }
    return nil
}
