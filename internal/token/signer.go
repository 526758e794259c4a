// Package token implements issuing and verification of compact signed
// tokens. Verification is stateless: signature and expiry are checked
// from the token alone, no store lookup involved. Revocation state is
// layered on top by the store and middleware packages.
package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verification failures. Verify collapses library errors into these
// three so callers can branch without importing the jwt package.
var (
	ErrExpired          = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMalformed        = errors.New("malformed token")
)

// Claims is the decoded, signature-checked claim set of a token.
type Claims struct {
	Subject  string         // sub: the principal's username
	TokenID  string         // jti: unique id minted per token
	IssuedAt time.Time      // iat
	Expiry   time.Time      // exp
	Extra    map[string]any // any additional claims (authority flags)
}

// Signer issues and verifies HS256 tokens with a pre-shared symmetric key.
type Signer struct {
	key []byte
}

// NewSigner decodes the base64 signing secret. The decoded bytes are the
// HMAC key; a secret that does not decode is a configuration error.
func NewSigner(base64Secret string) (*Signer, error) {
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}
	if len(key) == 0 {
		return nil, errors.New("empty signing secret")
	}
	return &Signer{key: key}, nil
}

// Issue produces a signed token for subject expiring after ttl. Extra
// claims are merged into the claim set; a fresh jti is always generated.
// The signature covers the entire claim set, so any tampering invalidates
// the token.
func (s *Signer) Issue(subject string, ttl time.Duration, extra map[string]any) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": subject,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.key)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify decodes raw and checks its signature and expiry. It returns
// ErrExpired for a token past its exp claim, ErrInvalidSignature when the
// MAC does not match, and ErrMalformed for anything that does not parse.
// Verify has no side effects.
func (s *Signer) Verify(raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
			return Claims{}, ErrInvalidSignature
		default:
			return Claims{}, ErrMalformed
		}
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return Claims{}, ErrMalformed
	}
	return claimsFrom(mc)
}

// SubjectOf is a convenience returning Verify(raw).Subject, propagating
// the same failures.
func (s *Signer) SubjectOf(raw string) (string, error) {
	c, err := s.Verify(raw)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

func claimsFrom(mc jwt.MapClaims) (Claims, error) {
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, ErrMalformed
	}
	var c Claims
	c.Subject = sub
	if jti, ok := mc["jti"].(string); ok {
		c.TokenID = jti
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, ErrMalformed
	}
	c.Expiry = exp.Time
	c.Extra = make(map[string]any)
	for k, v := range mc {
		switch k {
		case "sub", "jti", "iat", "exp":
		default:
			c.Extra[k] = v
		}
	}
	return c, nil
}
