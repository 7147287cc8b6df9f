package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"
)

// CashbackHandler applies one conversion.  A returned error rejects the
// message without requeue.
type CashbackHandler func(ctx context.Context, ev CashbackEvent) error

// StartCashbackConsumer connects to RabbitMQ, declares the cashback queue
// and hands every message to handle.  It reconnects with exponential
// backoff (1s up to 30s) and returns only when ctx is cancelled.
func StartCashbackConsumer(ctx context.Context, url string, handle CashbackHandler, log zerolog.Logger) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn().Err(err).Dur("retry_in", backoff).Msg("cashback-consumer: failed to dial broker")
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            backoff = nextBackoff(backoff)
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, handle, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn().Err(err).Msg("cashback-consumer: consume loop ended, reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func nextBackoff(d time.Duration) time.Duration {
    d *= 2
    if d > 30*time.Second {
        d = 30 * time.Second
    }
    return d
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, handle CashbackHandler, log zerolog.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn().Err(err).Msg("cashback-consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(CashbackQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(CashbackQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := HandleMessage(ctx, d.Body, handle); err != nil {
                log.Error().Err(err).Msg("cashback-consumer: handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// HandleMessage decodes body and passes the event to handle.
func HandleMessage(ctx context.Context, body []byte, handle CashbackHandler) error {
    var ev CashbackEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.UserID == "" {
        return errors.New("cashback event without user_id")
    }
    return handle(ctx, ev)
}
