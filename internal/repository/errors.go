// Package repository defines error values shared across repositories.
// These sentinels let handlers distinguish failure scenarios without
// inspecting driver errors: ErrNotFound covers a note or user absent for
// the calling principal, ErrConflict signals a lost concurrent write on a
// note version and is safe to retry, ErrUserExists and ErrInvalidNote map
// to validation responses.
package repository

import "errors"

// ErrNotFound is returned when no row exists for the requested key within
// the caller's scope. Handlers translate it into a 400-class response for
// note operations so cross-user note ids are never confirmed to exist.
var ErrNotFound = errors.New("not found")

// ErrUserExists is returned when registration collides with an existing
// username.
var ErrUserExists = errors.New("username already exists")

// ErrInvalidNote is returned, wrapped with a reason, when a note fails
// validation (title/content too long, expiration in the past).
var ErrInvalidNote = errors.New("invalid note")

// ErrConflict is returned when a concurrent update raced this one on the
// same note and won. The losing request may be retried by the client.
var ErrConflict = errors.New("conflict")
