package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/acp-gateway/internal/model"
)

// CashbackRepo is the MySQL implementation of CashbackStore.
type CashbackRepo struct{ DB *sql.DB }

func NewCashbackRepo(db *sql.DB) *CashbackRepo { return &CashbackRepo{DB: db} }

// Credit inserts the transaction and increments the owner's balance and GO
// points inside a single transaction.  The user row is locked so the tier
// is computed from the points actually stored.
func (r *CashbackRepo) Credit(ctx context.Context, ct model.CashbackTransaction) (_ model.CashbackTransaction, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.CashbackTransaction{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var points int
	if err = tx.QueryRowContext(ctx,
		"SELECT go_points FROM users WHERE id=? FOR UPDATE", ct.UserID).Scan(&points); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return model.CashbackTransaction{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO cashback_transactions (id, user_id, amount, description, status, conversion_id, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		ct.ID, ct.UserID, ct.Amount, ct.Description, string(ct.Status), nullString(ct.ConversionID), ct.CreatedAt); err != nil {
		if isDuplicate(err) {
			err = ErrConflict
			return model.CashbackTransaction{}, err
		}
		return model.CashbackTransaction{}, fmt.Errorf("insert cashback: %w", err)
	}

	newPoints := points + model.PointsFor(ct.Amount)
	if _, err = tx.ExecContext(ctx,
		"UPDATE users SET balance=balance+?, go_points=?, go_tier=? WHERE id=?",
		ct.Amount, newPoints, string(model.TierFor(newPoints)), ct.UserID); err != nil {
		return model.CashbackTransaction{}, fmt.Errorf("update balance: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return model.CashbackTransaction{}, err
	}
	return ct, nil
}

// ListByUser returns the user's transactions, newest first.
func (r *CashbackRepo) ListByUser(ctx context.Context, userID string) ([]model.CashbackTransaction, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, amount, description, status, conversion_id, created_at
		 FROM cashback_transactions WHERE user_id=? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.CashbackTransaction, 0)
	for rows.Next() {
		var (
			ct     model.CashbackTransaction
			status string
			conv   sql.NullString
		)
		if err := rows.Scan(&ct.ID, &ct.UserID, &ct.Amount, &ct.Description, &status, &conv, &ct.CreatedAt); err != nil {
			return nil, err
		}
		ct.Status = model.CashbackStatus(status)
		ct.ConversionID = conv.String
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
