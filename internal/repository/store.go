package repository

import (
	"context"
	"time"

	"github.com/iliyamo/acp-gateway/internal/model"
)

// UserStore persists user identity records.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByIdentity(ctx context.Context, ident model.Identity) (model.User, error)
	// Create inserts u.  It returns ErrIdentityExists when the identity
	// field is already taken.
	Create(ctx context.Context, u model.User) error
}

// CashbackStore persists cashback transactions.  Credit writes the
// transaction and adjusts the owner's balance, GO points and tier in one
// unit of work where the backend allows it.
type CashbackStore interface {
	Credit(ctx context.Context, tx model.CashbackTransaction) (model.CashbackTransaction, error)
	ListByUser(ctx context.Context, userID string) ([]model.CashbackTransaction, error)
}

// SessionStore keeps the best-effort log of issued sessions.
type SessionStore interface {
	Record(ctx context.Context, s model.Session) error
	FindByTokenHash(ctx context.Context, tokenHash string) (model.Session, error)
}

// RevocationStore remembers revoked token hashes for at least ttl.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}
