// Package service holds the session and account logic sitting between the
// HTTP handlers and the stores.
package service

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/rs/zerolog"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/acp-gateway/internal/model"
    "github.com/iliyamo/acp-gateway/internal/repository"
    "github.com/iliyamo/acp-gateway/internal/utils"
)

// DefaultSessionTTL is the lifetime of a session token.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SessionManager issues, verifies and revokes session tokens.
type SessionManager struct {
    secret   string
    ttl      time.Duration
    users    repository.UserStore
    sessions repository.SessionStore
    revoked  repository.RevocationStore
    log      zerolog.Logger
    now      func() time.Time
}

// NewSessionManager wires a manager.  A non-positive ttl selects
// DefaultSessionTTL.
func NewSessionManager(secret string, ttl time.Duration, users repository.UserStore, sessions repository.SessionStore, revoked repository.RevocationStore, log zerolog.Logger) *SessionManager {
    if ttl <= 0 {
        ttl = DefaultSessionTTL
    }
    return &SessionManager{
        secret:   secret,
        ttl:      ttl,
        users:    users,
        sessions: sessions,
        revoked:  revoked,
        log:      log,
        now:      time.Now,
    }
}

// WithClock replaces the time source; tests use it to pin "now".
func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
    m.now = now
    return m
}

// Issue signs a token for u and appends a session record.  The record is
// best effort: a store failure is logged and the token is still returned.
func (m *SessionManager) Issue(ctx context.Context, u model.User) (utils.SessionToken, error) {
    now := m.now()
    tok, err := utils.NewSessionToken(m.secret, utils.SessionClaims{
        UserID: u.ID,
        Email:  u.Email,
        Phone:  u.Phone,
        Wallet: u.WalletAddress,
    }, now, m.ttl)
    if err != nil {
        return utils.SessionToken{}, fmt.Errorf("sign session token: %w", err)
    }
    rec := model.Session{
        TokenHash: utils.HashToken(tok.Token),
        UserID:    u.ID,
        ExpiresAt: tok.Exp,
        CreatedAt: now.UTC(),
    }
    if err := m.sessions.Record(ctx, rec); err != nil {
        m.log.Warn().Err(err).Str("user_id", u.ID).Msg("session record failed")
    }
    return tok, nil
}

// Verify resolves token to a user.  Revoked tokens are rejected before
// decoding; a revocation store failure rejects the token as well.  When the
// token is valid but its user is missing from the store (or the store is
// unavailable) a reconstructed user is returned instead.
func (m *SessionManager) Verify(ctx context.Context, token string) (model.User, error) {
    if token == "" {
        return model.User{}, ErrSessionInvalid
    }
    hash := utils.HashToken(token)
    revoked, err := m.revoked.IsRevoked(ctx, hash)
    if err != nil {
        m.log.Error().Err(err).Msg("revocation lookup failed")
        return model.User{}, ErrSessionInvalid
    }
    if revoked {
        return model.User{}, ErrSessionRevoked
    }

    now := m.now()
    claims, err := utils.ParseSessionToken(m.secret, token, now)
    switch {
    case err == nil:
    case errors.Is(err, utils.ErrTokenExpired):
        return model.User{}, ErrSessionExpired
    case errors.Is(err, utils.ErrTokenMalformed):
        return m.verifyLegacy(ctx, hash, now)
    default:
        return model.User{}, ErrSessionInvalid
    }

    u, err := m.users.FindByID(ctx, claims.UserID)
    if err == nil {
        return u, nil
    }
    if !errors.Is(err, repository.ErrNotFound) {
        m.log.Warn().Err(err).Str("user_id", claims.UserID).Msg("user lookup failed, reconstructing from token")
    }
    return reconstruct(claims), nil
}

// verifyLegacy resolves opaque tokens issued before signed tokens existed
// through their session record.
func (m *SessionManager) verifyLegacy(ctx context.Context, hash string, now time.Time) (model.User, error) {
    rec, err := m.sessions.FindByTokenHash(ctx, hash)
    if err != nil {
        return model.User{}, ErrSessionInvalid
    }
    if !now.Before(rec.ExpiresAt) {
        return model.User{}, ErrSessionExpired
    }
    u, err := m.users.FindByID(ctx, rec.UserID)
    if err != nil {
        return model.User{}, ErrSessionInvalid
    }
    return u, nil
}

// Revoke blocks token for the rest of its lifetime.  Tokens whose expiry
// cannot be read are blocked for the default TTL; expired tokens need no
// entry.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
    if token == "" {
        return nil
    }
    ttl := m.ttl
    if exp, ok := utils.PeekExpiry(token); ok {
        ttl = exp.Sub(m.now())
        if ttl <= 0 {
            return nil
        }
    }
    if err := m.revoked.Revoke(ctx, utils.HashToken(token), ttl); err != nil {
        return fmt.Errorf("revoke session: %w", err)
    }
    return nil
}

func reconstruct(c utils.SessionClaims) model.User {
    joined := time.Time{}
    if c.IssuedAt != nil {
        joined = c.IssuedAt.Time.UTC()
    }
    return model.User{
        ID:            c.UserID,
        Email:         c.Email,
        Phone:         c.Phone,
        WalletAddress: c.Wallet,
        Balance:       decimal.Zero,
        GoPoints:      model.NewUserBonus,
        GoTier:        model.TierBronze,
        JoinedAt:      joined,
        Reconstructed: true,
    }
}
