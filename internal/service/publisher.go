package service

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"

    "github.com/iliyamo/acp-gateway/internal/queue"
)

// Publisher emits domain events.  Errors are returned so callers can log
// them, but no request path fails because of a publish error.
type Publisher interface {
    PublishClick(ctx context.Context, ev queue.ClickEvent) error
    PublishCashback(ctx context.Context, ev queue.CashbackEvent) error
}

// NopPublisher drops every event.  It is used when AMQP is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishClick(context.Context, queue.ClickEvent) error       { return nil }
func (NopPublisher) PublishCashback(context.Context, queue.CashbackEvent) error { return nil }

// AMQPPublisher publishes persistent JSON messages to durable queues on
// the default exchange.  The connection is dialed lazily and redialed
// after it drops.
type AMQPPublisher struct {
    url  string
    log  zerolog.Logger
    mu   sync.Mutex
    conn *amqp.Connection
}

func NewAMQPPublisher(url string, log zerolog.Logger) *AMQPPublisher {
    return &AMQPPublisher{url: url, log: log}
}

func (p *AMQPPublisher) PublishClick(ctx context.Context, ev queue.ClickEvent) error {
    return p.publish(ctx, queue.ClickQueue, ev)
}

func (p *AMQPPublisher) PublishCashback(ctx context.Context, ev queue.CashbackEvent) error {
    return p.publish(ctx, queue.CashbackQueue, ev)
}

// Close releases the underlying connection.
func (p *AMQPPublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn == nil {
        return nil
    }
    err := p.conn.Close()
    p.conn = nil
    return err
}

func (p *AMQPPublisher) connection() (*amqp.Connection, error) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn != nil && !p.conn.IsClosed() {
        return p.conn, nil
    }
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, err
    }
    p.conn = conn
    return conn, nil
}

func (p *AMQPPublisher) publish(ctx context.Context, queueName string, event any) error {
    conn, err := p.connection()
    if err != nil {
        p.log.Warn().Err(err).Msg("rabbitmq: dial failed")
        return err
    }
    ch, err := conn.Channel()
    if err != nil {
        p.log.Warn().Err(err).Msg("rabbitmq: channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
        p.log.Warn().Err(err).Str("queue", queueName).Msg("rabbitmq: queue declare failed")
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
        p.log.Warn().Err(err).Str("queue", queueName).Msg("rabbitmq: publish failed")
        return err
    }
    return nil
}
