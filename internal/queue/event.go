// Package queue defines message payloads exchanged over the message broker
// and the consumer that applies cashback conversions.
package queue

import (
    "time"

    "github.com/shopspring/decimal"
)

// Queue names.  Both are durable and carry persistent JSON messages.
const (
    ClickQueue    = "affiliate.click"
    CashbackQueue = "cashback.conversion"
)

// ClickEvent is published whenever /redirect forwards a shopper to a
// merchant.  UserID is empty for anonymous or reconstructed sessions.
type ClickEvent struct {
    UserID    string    `json:"user_id,omitempty"`
    TargetURL string    `json:"target_url"`
    ClickedAt time.Time `json:"clicked_at"`
    IP        string    `json:"ip,omitempty"`
}

// CashbackEvent is published by the postback endpoint and consumed to
// credit a user's balance.
type CashbackEvent struct {
    UserID       string          `json:"user_id"`
    Amount       decimal.Decimal `json:"amount"`
    ConversionID string          `json:"conversion_id,omitempty"`
    Description  string          `json:"description,omitempty"`
    ReceivedAt   time.Time       `json:"received_at"`
}
