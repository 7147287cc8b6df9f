package utils

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestSessionTokenRoundTrip(t *testing.T) {
    now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
    tok, err := NewSessionToken(testSecret, SessionClaims{UserID: "U1", Email: "a@b.co"}, now, time.Hour)
    require.NoError(t, err)
    assert.Equal(t, now.Add(time.Hour), tok.Exp)

    claims, err := ParseSessionToken(testSecret, tok.Token, now.Add(time.Minute))
    require.NoError(t, err)
    assert.Equal(t, "U1", claims.UserID)
    assert.Equal(t, "a@b.co", claims.Email)
    assert.NotEmpty(t, claims.ID)
}

func TestParseSessionTokenExpiryBoundary(t *testing.T) {
    now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
    tok, err := NewSessionToken(testSecret, SessionClaims{UserID: "U1"}, now, time.Hour)
    require.NoError(t, err)

    _, err = ParseSessionToken(testSecret, tok.Token, tok.Exp.Add(-time.Second))
    require.NoError(t, err)

    _, err = ParseSessionToken(testSecret, tok.Token, tok.Exp)
    assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseSessionTokenRejects(t *testing.T) {
    now := time.Now()
    tok, err := NewSessionToken(testSecret, SessionClaims{UserID: "U1"}, now, time.Hour)
    require.NoError(t, err)

    _, err = ParseSessionToken("other-secret", tok.Token, now)
    assert.ErrorIs(t, err, ErrTokenInvalid)

    _, err = ParseSessionToken(testSecret, "not-a-jwt", now)
    assert.ErrorIs(t, err, ErrTokenMalformed)

    noUID, err := NewSessionToken(testSecret, SessionClaims{}, now, time.Hour)
    require.NoError(t, err)
    _, err = ParseSessionToken(testSecret, noUID.Token, now)
    assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPeekExpiryAndHash(t *testing.T) {
    now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
    tok, err := NewSessionToken(testSecret, SessionClaims{UserID: "U1"}, now, time.Hour)
    require.NoError(t, err)
    exp, ok := PeekExpiry(tok.Token)
    require.True(t, ok)
    assert.True(t, exp.Equal(tok.Exp))

    _, ok = PeekExpiry("garbage")
    assert.False(t, ok)

    assert.Len(t, HashToken("abc"), 64)
    assert.Equal(t, HashToken("abc"), HashToken("abc"))
}

func TestValidators(t *testing.T) {
    assert.True(t, ValidEmail("a@b.co"))
    assert.False(t, ValidEmail("not-an-email"))
    assert.True(t, ValidPhone("+66812345678"))
    assert.True(t, ValidPhone("081-234-5678"))
    assert.False(t, ValidPhone("123"))
    assert.True(t, ValidWallet("0x"+"aB"+"0123456789abcdef0123456789abcdef012345"))
    assert.False(t, ValidWallet("0x123"))
}
