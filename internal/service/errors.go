package service

import "errors"

// Session failures surfaced to handlers.  All three map to 401.
var (
    ErrSessionInvalid = errors.New("invalid session token")
    ErrSessionExpired = errors.New("session expired")
    ErrSessionRevoked = errors.New("session revoked")
)

// Account failures.
var (
    ErrInvalidIdentity = errors.New("invalid identity")
    ErrInvalidAmount   = errors.New("amount must be positive")
    ErrDuplicateCredit = errors.New("conversion already credited")
)
