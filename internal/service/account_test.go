package service

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/rs/zerolog"
    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/acp-gateway/internal/model"
    "github.com/iliyamo/acp-gateway/internal/repository"
)

func newAccounts(t *testing.T) (*AccountService, *repository.MemoryStore) {
    t.Helper()
    store := repository.NewMemoryStore()
    sessions := NewSessionManager(secret, 0, store, store, repository.NewMemoryRevocations(), zerolog.Nop())
    return NewAccountService(store, store, sessions, zerolog.Nop()), store
}

func TestLoginCreatesThenFinds(t *testing.T) {
    svc, _ := newAccounts(t)
    ctx := context.Background()

    first, err := svc.Login(ctx, model.Identity{Email: "  New@Example.com "})
    require.NoError(t, err)
    assert.True(t, first.Created)
    assert.Equal(t, "new@example.com", first.User.Email)
    assert.Equal(t, 100, first.User.GoPoints)
    assert.Equal(t, model.TierBronze, first.User.GoTier)
    assert.True(t, first.User.Balance.IsZero())
    assert.NotEmpty(t, first.Token.Token)

    second, err := svc.Login(ctx, model.Identity{Email: "new@example.com"})
    require.NoError(t, err)
    assert.False(t, second.Created)
    assert.Equal(t, first.User.ID, second.User.ID)
}

func TestLoginRejectsEmptyIdentity(t *testing.T) {
    svc, _ := newAccounts(t)
    _, err := svc.Login(context.Background(), model.Identity{Email: "   "})
    assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestConcurrentFirstLoginsShareOneAccount(t *testing.T) {
    svc, _ := newAccounts(t)
    const n = 16
    ids := make([]string, n)
    var wg sync.WaitGroup
    for i := 0; i < n; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            res, err := svc.Login(context.Background(), model.Identity{WalletAddress: "0xABCDEF0123456789abcdef0123456789ABCDEF01"})
            if assert.NoError(t, err) {
                ids[i] = res.User.ID
            }
        }(i)
    }
    wg.Wait()
    for _, id := range ids {
        assert.Equal(t, ids[0], id)
    }
}

func TestCreditCashbackUpdatesBalanceAndTier(t *testing.T) {
    svc, store := newAccounts(t)
    ctx := context.Background()
    res, err := svc.Login(ctx, model.Identity{Email: "c@b.co"})
    require.NoError(t, err)

    _, err = svc.CreditCashback(ctx, CashbackCredit{UserID: res.User.ID, Amount: decimal.RequireFromString("950.75"), ConversionID: "C1"})
    require.NoError(t, err)

    u, err := store.FindByID(ctx, res.User.ID)
    require.NoError(t, err)
    assert.True(t, u.Balance.Equal(decimal.RequireFromString("950.75")))
    assert.Equal(t, 1050, u.GoPoints)
    assert.Equal(t, model.TierSilver, u.GoTier)

    _, err = svc.CreditCashback(ctx, CashbackCredit{UserID: res.User.ID, Amount: decimal.NewFromInt(5), ConversionID: "C1"})
    assert.ErrorIs(t, err, ErrDuplicateCredit)

    _, err = svc.CreditCashback(ctx, CashbackCredit{UserID: res.User.ID, Amount: decimal.Zero})
    assert.ErrorIs(t, err, ErrInvalidAmount)

    _, err = svc.CreditCashback(ctx, CashbackCredit{UserID: "missing", Amount: decimal.NewFromInt(1)})
    assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreditCashbackRejectsAmountRoundingToZero(t *testing.T) {
    svc, store := newAccounts(t)
    ctx := context.Background()
    res, err := svc.Login(ctx, model.Identity{Email: "tiny@b.co"})
    require.NoError(t, err)

    _, err = svc.CreditCashback(ctx, CashbackCredit{UserID: res.User.ID, Amount: decimal.RequireFromString("0.004")})
    assert.ErrorIs(t, err, ErrInvalidAmount)

    txs, err := store.ListByUser(ctx, res.User.ID)
    require.NoError(t, err)
    assert.Empty(t, txs)

    tx, err := svc.CreditCashback(ctx, CashbackCredit{UserID: res.User.ID, Amount: decimal.RequireFromString("0.005")})
    require.NoError(t, err)
    assert.True(t, tx.Amount.Equal(decimal.RequireFromString("0.01")))
}

func TestSummary(t *testing.T) {
    svc, _ := newAccounts(t)
    ctx := context.Background()
    res, err := svc.Login(ctx, model.Identity{Phone: "+66812345678"})
    require.NoError(t, err)

    summary, txs, err := svc.Summary(ctx, res.User.ID)
    require.NoError(t, err)
    assert.Empty(t, txs)
    assert.NotNil(t, txs)
    assert.Equal(t, 0, summary.TransactionsCount)

    svc.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
    _, err = svc.CreditCashback(ctx, CashbackCredit{UserID: res.User.ID, Amount: decimal.NewFromInt(10)})
    require.NoError(t, err)
    svc.now = func() time.Time { return time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC) }
    _, err = svc.CreditCashback(ctx, CashbackCredit{UserID: res.User.ID, Amount: decimal.NewFromInt(20)})
    require.NoError(t, err)

    summary, txs, err = svc.Summary(ctx, res.User.ID)
    require.NoError(t, err)
    require.Len(t, txs, 2)
    assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(20)), "newest first")
    assert.True(t, summary.PendingAmount.Equal(decimal.NewFromInt(30)))
    assert.True(t, summary.TotalEarned.Equal(decimal.NewFromInt(30)))
    assert.Equal(t, 2, summary.TransactionsCount)
}
