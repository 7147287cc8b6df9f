// Package repository defines the storage contracts of the gateway and their
// in-memory, MySQL, MongoDB and Redis implementations.  The sentinel errors
// below let higher layers distinguish failure scenarios without depending
// on a particular backend: ErrNotFound means the record does not exist,
// ErrIdentityExists means a concurrent writer created the same identity
// first, and ErrConflict signals a duplicate idempotency key.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no record.  Handlers and
// services translate it into 401/404 depending on context.
var ErrNotFound = errors.New("not found")

// ErrIdentityExists is returned by UserStore.Create when a user with the
// same email, phone or wallet already exists.
var ErrIdentityExists = errors.New("identity already exists")

// ErrConflict is returned when a cashback credit reuses a conversion id.
var ErrConflict = errors.New("conflict")
