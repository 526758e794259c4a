package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ardato/secure-notes/internal/auth"
	"github.com/ardato/secure-notes/internal/repository"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth *auth.Service
}

func NewAuthHandler(a *auth.Service) *AuthHandler { return &AuthHandler{Auth: a} }

// ----- DTOs -----

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	Token string `json:"token"`
}
type logoutReq struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	tokens, err := h.Auth.Login(ctx, req.Username, req.Password)
	if errors.Is(err, auth.ErrBadCredentials) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		c.Logger().Errorf("login failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	return c.JSON(http.StatusOK, tokens)
}

// Register creates a user and returns tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	tokens, err := h.Auth.Register(ctx, req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidFormat) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": reasonOf(err, auth.ErrInvalidFormat)})
	}
	if errors.Is(err, repository.ErrUserExists) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user."})
	}
	if err != nil {
		c.Logger().Errorf("register failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "register failed"})
	}
	return c.JSON(http.StatusOK, tokens)
}

// Refresh rotates a refresh token: the presented token is consumed and a
// brand-new pair is returned. A reused or invalid token yields 401.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	tokens, err := h.Auth.Refresh(ctx, strings.TrimSpace(req.Token))
	if errors.Is(err, auth.ErrInvalidRefreshToken) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	if err != nil {
		c.Logger().Errorf("refresh failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	return c.JSON(http.StatusOK, tokens)
}

// Logout revokes whichever tokens the body carries: the access token
// gets a revocation marker, the refresh token is dropped from the store.
// The response is always 200 "Logged out", even when neither is present.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutReq
	_ = c.Bind(&req)

	ctx, cancel := reqContext(c)
	defer cancel()

	if req.AccessToken != "" {
		if err := h.Auth.RevokeAccess(ctx, req.AccessToken); err != nil {
			c.Logger().Errorf("revoke access token failed: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
	}
	if req.RefreshToken != "" {
		if err := h.Auth.RevokeRefresh(ctx, req.RefreshToken); err != nil {
			c.Logger().Errorf("revoke refresh token failed: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
	}
	return c.String(http.StatusOK, "Logged out")
}

// reqContext bounds handler-initiated I/O to a few seconds.
func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// reasonOf strips the sentinel prefix from a wrapped error, leaving the
// human-readable reason for the response body.
func reasonOf(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}
