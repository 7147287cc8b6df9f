package service

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/acp-gateway/internal/model"
    "github.com/iliyamo/acp-gateway/internal/queue"
    "github.com/iliyamo/acp-gateway/internal/repository"
    "github.com/iliyamo/acp-gateway/internal/utils"
)

// AccountService implements login, cashback reads and cashback credits.
type AccountService struct {
    users     repository.UserStore
    cashbacks repository.CashbackStore
    sessions  *SessionManager
    log       zerolog.Logger
    now       func() time.Time
}

func NewAccountService(users repository.UserStore, cashbacks repository.CashbackStore, sessions *SessionManager, log zerolog.Logger) *AccountService {
    return &AccountService{users: users, cashbacks: cashbacks, sessions: sessions, log: log, now: time.Now}
}

// LoginResult is returned by Login.  Created is true when the account did
// not exist before this call.
type LoginResult struct {
    User    model.User
    Token   utils.SessionToken
    Created bool
}

// Login finds the user owning ident or creates one, then issues a session.
// Two concurrent first logins for the same identity resolve to the same
// account: whoever loses the insert re-reads the winner's row.
func (s *AccountService) Login(ctx context.Context, ident model.Identity) (LoginResult, error) {
    ident = ident.Normalize()
    if ident.Kind() == model.IdentityNone {
        return LoginResult{}, ErrInvalidIdentity
    }

    u, created, err := s.findOrCreate(ctx, ident)
    if err != nil {
        return LoginResult{}, err
    }
    tok, err := s.sessions.Issue(ctx, u)
    if err != nil {
        return LoginResult{}, err
    }
    if created {
        s.log.Info().Str("user_id", u.ID).Str("kind", string(ident.Kind())).Msg("user created")
    }
    return LoginResult{User: u, Token: tok, Created: created}, nil
}

func (s *AccountService) findOrCreate(ctx context.Context, ident model.Identity) (model.User, bool, error) {
    u, err := s.users.FindByIdentity(ctx, ident)
    if err == nil {
        return u, false, nil
    }
    if !errors.Is(err, repository.ErrNotFound) {
        return model.User{}, false, fmt.Errorf("find user: %w", err)
    }

    u = model.NewUser(uuid.NewString(), ident, s.now())
    err = s.users.Create(ctx, u)
    if err == nil {
        return u, true, nil
    }
    if !errors.Is(err, repository.ErrIdentityExists) {
        return model.User{}, false, fmt.Errorf("create user: %w", err)
    }
    u, err = s.users.FindByIdentity(ctx, ident)
    if err != nil {
        return model.User{}, false, fmt.Errorf("re-read user after conflict: %w", err)
    }
    return u, false, nil
}

// FindByEmail resolves the weaker user_email credential some read routes
// accept.
func (s *AccountService) FindByEmail(ctx context.Context, email string) (model.User, error) {
    return s.users.FindByIdentity(ctx, model.Identity{Email: email})
}

// Cashbacks lists a user's transactions, newest first.
func (s *AccountService) Cashbacks(ctx context.Context, userID string) ([]model.CashbackTransaction, error) {
    txs, err := s.cashbacks.ListByUser(ctx, userID)
    if err != nil {
        return nil, fmt.Errorf("list cashbacks: %w", err)
    }
    if txs == nil {
        txs = []model.CashbackTransaction{}
    }
    return txs, nil
}

// Summary aggregates a user's transactions by status.
func (s *AccountService) Summary(ctx context.Context, userID string) (model.CashbackSummary, []model.CashbackTransaction, error) {
    txs, err := s.Cashbacks(ctx, userID)
    if err != nil {
        return model.CashbackSummary{}, nil, err
    }
    return model.Summarize(txs), txs, nil
}

// CashbackCredit describes an affiliate conversion to be credited.
type CashbackCredit struct {
    UserID       string
    Amount       decimal.Decimal
    ConversionID string
    Description  string
}

// CreditCashback records a pending transaction and bumps the owner's
// balance, GO points and tier.  Replaying a ConversionID returns
// ErrDuplicateCredit.
func (s *AccountService) CreditCashback(ctx context.Context, c CashbackCredit) (model.CashbackTransaction, error) {
    amount := c.Amount.Round(2)
    if amount.Sign() <= 0 {
        return model.CashbackTransaction{}, ErrInvalidAmount
    }
    if c.UserID == "" {
        return model.CashbackTransaction{}, ErrInvalidIdentity
    }
    desc := c.Description
    if desc == "" {
        desc = "Cashback"
    }
    tx := model.CashbackTransaction{
        ID:           uuid.NewString(),
        UserID:       c.UserID,
        Amount:       amount,
        Description:  desc,
        Status:       model.CashbackPending,
        ConversionID: c.ConversionID,
        CreatedAt:    s.now().UTC(),
    }
    out, err := s.cashbacks.Credit(ctx, tx)
    switch {
    case err == nil:
        s.log.Info().Str("user_id", c.UserID).Str("amount", tx.Amount.String()).Str("conversion_id", c.ConversionID).Msg("cashback credited")
        return out, nil
    case errors.Is(err, repository.ErrConflict):
        return model.CashbackTransaction{}, ErrDuplicateCredit
    default:
        return model.CashbackTransaction{}, fmt.Errorf("credit cashback: %w", err)
    }
}

// HandleCashbackEvent credits a queued conversion.  Replayed conversions
// are treated as done so the message is acknowledged.
func (s *AccountService) HandleCashbackEvent(ctx context.Context, ev queue.CashbackEvent) error {
    _, err := s.CreditCashback(ctx, CashbackCredit{
        UserID:       ev.UserID,
        Amount:       ev.Amount,
        ConversionID: ev.ConversionID,
        Description:  ev.Description,
    })
    if errors.Is(err, ErrDuplicateCredit) {
        return nil
    }
    return err
}
