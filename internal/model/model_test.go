package model

import (
    "encoding/json"
    "testing"
    "time"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestTierFor(t *testing.T) {
    cases := []struct {
        points int
        want   Tier
    }{
        {0, TierBronze},
        {999, TierBronze},
        {1000, TierSilver},
        {4999, TierSilver},
        {5000, TierGold},
        {19999, TierGold},
        {20000, TierPlatinum},
    }
    for _, c := range cases {
        assert.Equal(t, c.want, TierFor(c.points), c.points)
    }
}

func TestPointsFor(t *testing.T) {
    assert.Equal(t, 12, PointsFor(decimal.RequireFromString("12.99")))
    assert.Equal(t, 0, PointsFor(decimal.RequireFromString("0.5")))
    assert.Equal(t, 0, PointsFor(decimal.NewFromInt(-3)))
}

func TestIdentityNormalize(t *testing.T) {
    id := Identity{Email: " Foo@Bar.COM ", Phone: "+66812345678"}.Normalize()
    assert.Equal(t, Identity{Email: "foo@bar.com"}, id)
    assert.Equal(t, IdentityEmail, id.Kind())

    id = Identity{WalletAddress: " 0xABC "}.Normalize()
    assert.Equal(t, IdentityWallet, id.Kind())
    assert.Equal(t, "0xabc", id.Value())

    assert.Equal(t, IdentityNone, Identity{Email: "  "}.Normalize().Kind())
}

func TestNewUser(t *testing.T) {
    now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("ICT", 7*3600))
    u := NewUser("u1", Identity{Phone: " +66812345678 "}, now)
    assert.Equal(t, "+66812345678", u.Phone)
    assert.Equal(t, NewUserBonus, u.GoPoints)
    assert.Equal(t, TierBronze, u.GoTier)
    assert.True(t, u.Balance.IsZero())
    assert.Equal(t, time.UTC, u.JoinedAt.Location())
}

func TestSummarize(t *testing.T) {
    txs := []CashbackTransaction{
        {Amount: decimal.RequireFromString("10.10"), Status: CashbackPending},
        {Amount: decimal.RequireFromString("5.00"), Status: CashbackApproved},
        {Amount: decimal.RequireFromString("2.50"), Status: CashbackRejected},
        {Amount: decimal.RequireFromString("0.20")},
    }
    s := Summarize(txs)
    assert.True(t, s.PendingAmount.Equal(decimal.RequireFromString("10.30")))
    assert.True(t, s.ApprovedAmount.Equal(decimal.NewFromInt(5)))
    assert.True(t, s.RejectedAmount.Equal(decimal.RequireFromString("2.5")))
    assert.True(t, s.TotalEarned.Equal(decimal.RequireFromString("15.30")))
    assert.Equal(t, 4, s.TransactionsCount)

    empty := Summarize(nil)
    assert.True(t, empty.TotalEarned.IsZero())
    assert.Zero(t, empty.TransactionsCount)
}

func TestUserJSONRendersBalanceAsNumber(t *testing.T) {
    u := NewUser("u1", Identity{Email: "a@b.co"}, time.Now())
    u.Balance = decimal.RequireFromString("12.5")
    b, err := json.Marshal(u)
    require.NoError(t, err)
    assert.Contains(t, string(b), `"balance":12.5`)
    assert.NotContains(t, string(b), "reconstructed")
}

func TestEstimateCashback(t *testing.T) {
    assert.InDelta(t, 49.5, EstimateCashback(990, 0.05), 1e-9)
    assert.InDelta(t, 0.33, EstimateCashback(3.333, 0.1), 1e-9)
}
