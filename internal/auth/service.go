// Package auth composes the signer, the token store and the credential
// directory into the login, registration, refresh-rotation and revocation
// flows.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardato/secure-notes/internal/model"
	"github.com/ardato/secure-notes/internal/repository"
	"github.com/ardato/secure-notes/internal/store"
	"github.com/ardato/secure-notes/internal/utils"
)

var (
	// ErrBadCredentials is returned on login when the username is unknown
	// or the password does not match. The two cases are deliberately not
	// distinguished.
	ErrBadCredentials = errors.New("invalid username or password")

	// ErrInvalidRefreshToken covers every way a refresh can fail: unknown
	// or already-consumed token, bad signature, expiry, or a stored
	// association that no longer matches the token's subject.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrInvalidFormat is returned, wrapped with the concrete reason, when
	// a registration request fails the username or password policy.
	ErrInvalidFormat = errors.New("invalid credential format")
)

// UserDirectory is the slice of the credential directory the service
// needs. *repository.UserRepo satisfies it; tests substitute a fake.
type UserDirectory interface {
	Create(ctx context.Context, username, passwordHash, role string) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// TokenSigner issues and inspects signed tokens.
type TokenSigner interface {
	Issue(subject string, ttl time.Duration, extra map[string]any) (string, error)
	SubjectOf(raw string) (string, error)
}

// Tokens is the access/refresh pair returned by every successful
// authentication operation.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Service implements the authentication flows. All state lives in the
// injected collaborators; the service itself is stateless per call.
type Service struct {
	users      UserDirectory
	signer     TokenSigner
	tokens     store.TokenStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	bcryptCost int
}

func NewService(users UserDirectory, signer TokenSigner, tokens store.TokenStore, accessTTL, refreshTTL time.Duration, bcryptCost int) *Service {
	return &Service{
		users:      users,
		signer:     signer,
		tokens:     tokens,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		bcryptCost: bcryptCost,
	}
}

// Register validates the credential format, creates the user with role
// USER and returns a freshly minted token pair. A taken username
// surfaces as repository.ErrUserExists.
func (s *Service) Register(ctx context.Context, username, password string) (Tokens, error) {
	if !utils.ValidPassword(password) {
		return Tokens{}, fmt.Errorf("%w: password does not meet the required criteria", ErrInvalidFormat)
	}
	if !utils.ValidUsername(username) {
		return Tokens{}, fmt.Errorf("%w: invalid email format", ErrInvalidFormat)
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return Tokens{}, err
	}
	u, err := s.users.Create(ctx, username, hash, model.RoleUser)
	if err != nil {
		return Tokens{}, err
	}
	return s.mintPair(ctx, u)
}

// Login verifies the password against the stored hash and mints a token
// pair. Unknown users and wrong passwords both return ErrBadCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (Tokens, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return Tokens{}, ErrBadCredentials
	}
	if err != nil {
		return Tokens{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Tokens{}, ErrBadCredentials
	}
	return s.mintPair(ctx, u)
}

// Refresh exchanges a refresh token for a new pair, rotating it: the old
// token is consumed atomically so a second refresh with the same token
// fails. The stored association must name the same username as the
// token's signed subject; on mismatch the presented token is left in
// place rather than invalidated, so a crafted request cannot burn
// someone else's live token.
func (s *Service) Refresh(ctx context.Context, oldToken string) (Tokens, error) {
	stored, ok, err := s.tokens.FindRefreshToken(ctx, oldToken)
	if err != nil {
		return Tokens{}, err
	}
	if !ok {
		return Tokens{}, ErrInvalidRefreshToken
	}

	// Subject comes from the signed claims, not from the store.
	subject, err := s.signer.SubjectOf(oldToken)
	if err != nil {
		return Tokens{}, ErrInvalidRefreshToken
	}

	u, err := s.users.GetByUsername(ctx, subject)
	if errors.Is(err, repository.ErrNotFound) {
		return Tokens{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return Tokens{}, err
	}
	if stored.Username != u.Username {
		return Tokens{}, ErrInvalidRefreshToken
	}

	// Check-and-delete; if a concurrent refresh got here first the token
	// is gone and this call loses.
	if _, ok, err = s.tokens.ConsumeRefreshToken(ctx, oldToken); err != nil {
		return Tokens{}, err
	} else if !ok {
		return Tokens{}, ErrInvalidRefreshToken
	}

	return s.mintPair(ctx, u)
}

// RevokeAccess writes a revocation marker for an access token. The
// marker lives exactly as long as the token could still verify.
func (s *Service) RevokeAccess(ctx context.Context, accessToken string) error {
	return s.tokens.MarkAccessTokenRevoked(ctx, accessToken, s.accessTTL)
}

// RevokeRefresh drops a refresh token from the store.
func (s *Service) RevokeRefresh(ctx context.Context, refreshToken string) error {
	return s.tokens.InvalidateRefreshToken(ctx, refreshToken)
}

// mintPair issues the access token with the user's authority claims and
// an opaque-to-the-client refresh token with none, then persists the
// refresh association.
func (s *Service) mintPair(ctx context.Context, u model.User) (Tokens, error) {
	extra := make(map[string]any)
	for _, a := range u.Authorities() {
		extra[a] = true
	}
	access, err := s.signer.Issue(u.Username, s.accessTTL, extra)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := s.signer.Issue(u.Username, s.refreshTTL, nil)
	if err != nil {
		return Tokens{}, err
	}
	if err := s.tokens.SaveRefreshToken(ctx, refresh, model.PrincipalOf(u), s.refreshTTL); err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, RefreshToken: refresh}, nil
}
