// Package auth turns a raw bearer token into an authenticated identity.
package auth

import (
	"context"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/model"
)

// Header names a token may arrive in.
const (
	HeaderToken         = "x-auth-token"
	HeaderAuthorization = "authorization"
)

// Verifier checks a raw token and returns the user it was issued to.
type Verifier interface {
	Verify(raw string) (uuid.UUID, error)
}

// Guard authenticates requests. It holds no mutable state.
type Guard struct {
	v   Verifier
	log *zap.Logger
	// onFail is called with the internal failure for metrics; may be nil.
	onFail func(reason string)
}

// NewGuard constructs a Guard.
func NewGuard(v Verifier, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{v: v, log: log}
}

// OnFailure registers a callback receiving the reason of each rejected token.
func (g *Guard) OnFailure(fn func(reason string)) { g.onFail = fn }

// Authenticate resolves rawToken to an identity. Callers only learn missing vs invalid.
func (g *Guard) Authenticate(_ context.Context, rawToken string) (model.Identity, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		g.failed(errs.ReasonMissingToken)
		return model.Identity{}, errs.WithReason(errs.ErrUnauthorized, errs.ReasonMissingToken)
	}
	id, err := g.v.Verify(rawToken)
	if err != nil {
		g.log.Debug("token rejected", zap.Error(err))
		g.failed(errs.ReasonInvalidToken)
		return model.Identity{}, errs.WithReason(errs.ErrUnauthorized, errs.ReasonInvalidToken)
	}
	return model.Identity{UserID: id}, nil
}

func (g *Guard) failed(reason string) {
	if g.onFail != nil {
		g.onFail(reason)
	}
}

// TokenFromHeaders picks the token from x-auth-token, falling back to "Authorization: Bearer".
func TokenFromHeaders(xAuthToken, authorization string) string {
	if t := strings.TrimSpace(xAuthToken); t != "" {
		return t
	}
	v := strings.TrimSpace(authorization)
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}
