package utils // package utils provides the session token codec and identity validation helpers

import (
    "crypto/sha256" // SHA‑256 hashing for stored token digests
    "encoding/hex"  // hex encoding of digests
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/google/uuid"
)

// Token decoding failures.  ErrTokenMalformed means the string is not a
// JWT at all (legacy opaque tokens land here); ErrTokenInvalid covers bad
// signatures and missing claims.
var (
    ErrTokenMalformed = errors.New("token malformed")
    ErrTokenInvalid   = errors.New("token invalid")
    ErrTokenExpired   = errors.New("token expired")
)

// SessionClaims is the payload of a session token.  UserID is required;
// exactly one of the identity fields is normally present.
type SessionClaims struct {
    UserID string `json:"uid"`
    Email  string `json:"email,omitempty"`
    Phone  string `json:"phone,omitempty"`
    Wallet string `json:"wal,omitempty"`
    jwt.RegisteredClaims
}

// SessionToken is a signed token along with its expiry.
type SessionToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewSessionToken signs an HS256 JWT carrying claims.  exp is set to
// now+ttl, iat to now and jti to a random UUID; anything already set on
// claims.RegisteredClaims is overwritten.
func NewSessionToken(secret string, claims SessionClaims, now time.Time, ttl time.Duration) (SessionToken, error) {
    now = now.UTC()
    exp := now.Add(ttl)
    claims.RegisteredClaims = jwt.RegisteredClaims{
        ID:        uuid.NewString(),
        IssuedAt:  jwt.NewNumericDate(now),
        ExpiresAt: jwt.NewNumericDate(exp),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return SessionToken{}, err
    }
    return SessionToken{Token: signed, Exp: exp.Truncate(time.Second)}, nil
}

// ParseSessionToken verifies the signature and expiry of raw against now.
// A token whose expiry equals now is already expired.
func ParseSessionToken(secret, raw string, now time.Time) (SessionClaims, error) {
    var claims SessionClaims
    _, err := jwt.ParseWithClaims(raw, &claims,
        func(*jwt.Token) (any, error) { return []byte(secret), nil },
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithExpirationRequired(),
        jwt.WithTimeFunc(func() time.Time { return now }),
    )
    switch {
    case err == nil:
    case errors.Is(err, jwt.ErrTokenMalformed):
        return SessionClaims{}, ErrTokenMalformed
    case errors.Is(err, jwt.ErrTokenExpired):
        return claims, ErrTokenExpired
    default:
        return SessionClaims{}, ErrTokenInvalid
    }
    if claims.UserID == "" {
        return SessionClaims{}, ErrTokenInvalid
    }
    return claims, nil
}

// PeekExpiry returns the exp claim of raw without verifying anything.  It
// is only used to size revocation entries.
func PeekExpiry(raw string) (time.Time, bool) {
    var claims SessionClaims
    if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
        return time.Time{}, false
    }
    if claims.ExpiresAt == nil {
        return time.Time{}, false
    }
    return claims.ExpiresAt.Time, true
}

// HashToken returns the SHA‑256 hash of a raw token as a hex string.
// Only this digest is ever stored.
func HashToken(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}
