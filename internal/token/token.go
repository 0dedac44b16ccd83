// Package token issues and verifies signed, expiring bearer tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/gophpress/internal/errs"
)

// DefaultTTL is the lifetime of an access token when none is configured.
const DefaultTTL = 10 * time.Hour

// Verification failures. All of them match errs.ErrUnauthorized; the distinction is for logs only.
var (
	ErrMalformed = fmt.Errorf("token malformed: %w", errs.ErrUnauthorized)
	ErrSignature = fmt.Errorf("token signature invalid: %w", errs.ErrUnauthorized)
	ErrExpired   = fmt.Errorf("token expired: %w", errs.ErrUnauthorized)
	ErrClaims    = fmt.Errorf("token claims invalid: %w", errs.ErrUnauthorized)
)

// UserClaim is the single identity claim carried by a token.
type UserClaim struct {
	ID string `json:"id"`
}

// Claims is the token payload: {"user":{"id":...},"iat":...,"exp":...}.
type Claims struct {
	User UserClaim `json:"user"`
	jwt.RegisteredClaims
}

// Service signs and verifies HS256 tokens with one immutable secret.
type Service struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a token service. The key must be non-empty.
func New(key []byte, ttl time.Duration, opts ...Option) (*Service, error) {
	if len(key) == 0 {
		return nil, errors.New("token: empty signing key")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{key: append([]byte(nil), key...), ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue creates a signed token for userID expiring after the configured TTL.
func (s *Service) Issue(userID uuid.UUID) (string, time.Time, error) {
	if userID == uuid.Nil {
		return "", time.Time{}, errors.New("token: nil user id")
	}
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		User: UserClaim{ID: userID.String()},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks structure, signature and expiry in that order and returns the user id.
// A token is valid strictly before its expiry instant.
func (s *Service) Verify(raw string) (uuid.UUID, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return uuid.Nil, ErrMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return uuid.Nil, ErrSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return uuid.Nil, ErrExpired
		default:
			return uuid.Nil, ErrClaims
		}
	}
	id, err := uuid.FromString(claims.User.ID)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrClaims
	}
	return id, nil
}
