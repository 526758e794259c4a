package middleware

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardato/secure-notes/internal/model"
	"github.com/ardato/secure-notes/internal/repository"
	"github.com/ardato/secure-notes/internal/store"
	"github.com/ardato/secure-notes/internal/token"
)

type fakeLoader struct {
	users map[string]model.User
}

func (f *fakeLoader) GetByUsername(_ context.Context, username string) (model.User, error) {
	u, ok := f.users[username]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type authFixture struct {
	signer *token.Signer
	store  *store.MemoryStore
	loader *fakeLoader
	mw     echo.MiddlewareFunc
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	signer, err := token.NewSigner(base64.StdEncoding.EncodeToString([]byte("authorize-middleware-test-secret")))
	require.NoError(t, err)
	mem := store.NewMemoryStore()
	loader := &fakeLoader{users: map[string]model.User{
		"alice@example.com": {ID: 1, Username: "alice@example.com", Role: model.RoleUser},
	}}
	return authFixture{
		signer: signer,
		store:  mem,
		loader: loader,
		mw:     Authorize(signer, mem, loader),
	}
}

// invoke runs the Authorize middleware followed by a probe handler that
// records whether a principal was attached.
func (f authFixture) invoke(t *testing.T, authHeader string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	attached := false
	h := f.mw(func(c echo.Context) error {
		_, attached = CurrentPrincipal(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, attached
}

func TestAuthorizeNoHeaderPassesThrough(t *testing.T) {
	f := newAuthFixture(t)

	rec, attached := f.invoke(t, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, attached)
}

func TestAuthorizeValidToken(t *testing.T) {
	f := newAuthFixture(t)

	at, err := f.signer.Issue("alice@example.com", time.Minute, map[string]any{"ROLE_USER": true})
	require.NoError(t, err)

	rec, attached := f.invoke(t, "Bearer "+at)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, attached)
}

func TestAuthorizeRevokedToken(t *testing.T) {
	f := newAuthFixture(t)

	at, err := f.signer.Issue("alice@example.com", time.Minute, nil)
	require.NoError(t, err)
	require.NoError(t, f.store.MarkAccessTokenRevoked(context.Background(), at, time.Minute))

	rec, attached := f.invoke(t, "Bearer "+at)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, attached)
}

func TestAuthorizeTamperedToken(t *testing.T) {
	f := newAuthFixture(t)

	at, err := f.signer.Issue("alice@example.com", time.Minute, nil)
	require.NoError(t, err)
	b := []byte(at)
	i := len(b) / 2
	if b[i] == 'a' {
		b[i] = 'b'
	} else {
		b[i] = 'a'
	}

	rec, attached := f.invoke(t, "Bearer "+string(b))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, attached)
}

func TestAuthorizeExpiredToken(t *testing.T) {
	f := newAuthFixture(t)

	at, err := f.signer.Issue("alice@example.com", -time.Minute, nil)
	require.NoError(t, err)

	rec, attached := f.invoke(t, "Bearer "+at)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, attached)
}

func TestAuthorizeUnknownSubjectStaysAnonymous(t *testing.T) {
	f := newAuthFixture(t)

	at, err := f.signer.Issue("ghost@example.com", time.Minute, nil)
	require.NoError(t, err)

	rec, attached := f.invoke(t, "Bearer "+at)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, attached)
}

func TestRequireAuth(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequireAuth()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set(ContextPrincipal, model.Principal{ID: 1, Username: "alice@example.com", Role: model.RoleUser})
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	h := RequireRole(model.RoleAdmin)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(ContextRole, model.RoleUser)
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set(ContextRole, model.RoleAdmin)
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
