package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ardato/secure-notes/internal/model"
	"github.com/ardato/secure-notes/internal/repository"
	"github.com/ardato/secure-notes/internal/store"
	"github.com/ardato/secure-notes/internal/token"
)

// Context keys populated by Authorize for downstream handlers.
const (
	ContextPrincipal = "principal"
	ContextUserID    = "user_id"
	ContextRole      = "role"
)

// PrincipalLoader resolves a token subject to a user record.
// *repository.UserRepo satisfies it; tests substitute a fake.
type PrincipalLoader interface {
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// Authorize returns the per-request authorization gate. It runs once for
// every request, before route-level checks:
//
//  1. No bearer token – pass through unauthenticated; protected groups
//     reject later via RequireAuth.
//  2. Revoked token – 401 immediately, nothing else runs.
//  3. Bad signature or expired – 401.
//  4. Principal loaded by the token's subject; if the subject no longer
//     resolves, the request continues anonymous.
//  5. On success the principal is attached to the echo context.
//
// Store failures and other unexpected errors respond 500 with a generic
// body; details go to the logger only.
func Authorize(signer *token.Signer, tokens store.TokenStore, users PrincipalLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return next(c)
			}
			raw := strings.TrimPrefix(authHeader, "Bearer ")
			ctx := c.Request().Context()

			revoked, err := tokens.IsAccessTokenRevoked(ctx, raw)
			if err != nil {
				c.Logger().Errorf("authorize: revocation check failed: %v", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication error"})
			}
			if revoked {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			subject, err := signer.SubjectOf(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			u, err := users.GetByUsername(ctx, subject)
			if errors.Is(err, repository.ErrNotFound) {
				// Token verifies but the subject is gone; proceed anonymous.
				return next(c)
			}
			if err != nil {
				c.Logger().Errorf("authorize: load principal failed: %v", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication error"})
			}
			if u.Username != subject {
				return next(c)
			}

			c.Set(ContextPrincipal, model.PrincipalOf(u))
			c.Set(ContextUserID, u.ID)
			c.Set(ContextRole, u.Role)
			return next(c)
		}
	}
}

// RequireAuth rejects requests that reached a protected route without an
// attached principal.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := CurrentPrincipal(c); !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			return next(c)
		}
	}
}

// RequireRole additionally enforces that the authenticated principal has
// one of the given roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ContextRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// CurrentPrincipal returns the principal attached by Authorize, if any.
func CurrentPrincipal(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(ContextPrincipal).(model.Principal)
	return p, ok
}
