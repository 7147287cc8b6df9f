package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// CashbackStatus is the lifecycle state of a credited reward.
type CashbackStatus string

const (
    CashbackPending  CashbackStatus = "pending"
    CashbackApproved CashbackStatus = "approved"
    CashbackRejected CashbackStatus = "rejected"
)

// CashbackTransaction models an entry in the `cashback_transactions` table.
// Entries are immutable once written.
type CashbackTransaction struct {
    ID           string          `json:"id"`
    UserID       string          `json:"userId"`
    Amount       decimal.Decimal `json:"amount"`
    Description  string          `json:"description"`
    Status       CashbackStatus  `json:"status"`
    ConversionID string          `json:"conversion_id,omitempty"`
    CreatedAt    time.Time       `json:"created_at"`
}

// PointsFor returns the GO points earned for a cashback amount: one point
// per whole currency unit.
func PointsFor(amount decimal.Decimal) int {
    if amount.Sign() <= 0 {
        return 0
    }
    return int(amount.Floor().IntPart())
}

// CashbackSummary aggregates a user's transactions by status.
type CashbackSummary struct {
    PendingAmount     decimal.Decimal `json:"pending_amount"`
    ApprovedAmount    decimal.Decimal `json:"approved_amount"`
    RejectedAmount    decimal.Decimal `json:"rejected_amount"`
    TotalEarned       decimal.Decimal `json:"total_earned"`
    TransactionsCount int             `json:"transactions_count"`
}

// Summarize folds transactions into a CashbackSummary.  Rejected amounts
// are reported but excluded from TotalEarned.
func Summarize(txs []CashbackTransaction) CashbackSummary {
    s := CashbackSummary{
        PendingAmount:  decimal.Zero,
        ApprovedAmount: decimal.Zero,
        RejectedAmount: decimal.Zero,
        TotalEarned:    decimal.Zero,
    }
    for _, tx := range txs {
        switch tx.Status {
        case CashbackApproved:
            s.ApprovedAmount = s.ApprovedAmount.Add(tx.Amount)
        case CashbackRejected:
            s.RejectedAmount = s.RejectedAmount.Add(tx.Amount)
        default:
            s.PendingAmount = s.PendingAmount.Add(tx.Amount)
        }
    }
    s.TotalEarned = s.PendingAmount.Add(s.ApprovedAmount)
    s.TransactionsCount = len(txs)
    return s
}
