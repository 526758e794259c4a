// Package store persists refresh-token associations and access-token
// revocation markers behind a small keyed interface with per-entry TTLs.
// Two implementations exist: Redis for deployments and an in-memory map
// for tests and Redis-less development.
package store

import (
	"context"
	"time"

	"github.com/ardato/secure-notes/internal/model"
)

// revokedPrefix namespaces revocation markers so a revoked access token
// can never collide with a stored refresh token of the same string.
const revokedPrefix = "revoked:"

// TokenStore is the keyed storage consumed by the authentication service
// and the request authorizer.
//
// Absence of an entry is reported through the bool return, not an error;
// a non-nil error always means the store itself failed and callers must
// surface it as a service failure rather than treating the token as
// merely unknown.
type TokenStore interface {
	// SaveRefreshToken maps token to the principal it was issued for,
	// expiring after ttl. An existing entry for the same token string is
	// overwritten.
	SaveRefreshToken(ctx context.Context, token string, p model.Principal, ttl time.Duration) error

	// FindRefreshToken returns the principal a refresh token was issued
	// for, or false when no live entry exists.
	FindRefreshToken(ctx context.Context, token string) (model.Principal, bool, error)

	// ConsumeRefreshToken atomically removes the entry for token and
	// returns the principal it held. When two callers race on the same
	// token, exactly one observes true. This is what makes refresh
	// rotation single-use.
	ConsumeRefreshToken(ctx context.Context, token string) (model.Principal, bool, error)

	// InvalidateRefreshToken deletes the entry; subsequent lookups
	// return absent. Deleting an unknown token is not an error.
	InvalidateRefreshToken(ctx context.Context, token string) error

	// MarkAccessTokenRevoked writes a revocation marker expiring after
	// ttl. The caller passes the access-token lifetime so the marker
	// lives exactly as long as the token could still verify.
	MarkAccessTokenRevoked(ctx context.Context, token string, ttl time.Duration) error

	// IsAccessTokenRevoked reports whether a revocation marker exists.
	IsAccessTokenRevoked(ctx context.Context, token string) (bool, error)
}
