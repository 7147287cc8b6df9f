package model

import "time"

// Session is the best-effort record written whenever a session token is
// issued.  Only the SHA-256 hash of the token is kept.
//
// Fields:
//  TokenHash – SHA-256 hex digest of the raw token.
//  UserID    – owner of the token.
//  ExpiresAt – expiry embedded in the token.
//  CreatedAt – issue time.
type Session struct {
    TokenHash string
    UserID    string
    ExpiresAt time.Time
    CreatedAt time.Time
}
