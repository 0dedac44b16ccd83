package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/model"
	"github.com/and161185/gophpress/internal/token"
)

func newGuard(t *testing.T) (*Guard, *token.Service) {
	t.Helper()
	ts, err := token.New([]byte("secret"), time.Hour)
	require.NoError(t, err)
	return NewGuard(ts, zaptest.NewLogger(t)), ts
}

func TestGuard_Authenticate_OK(t *testing.T) {
	t.Parallel()

	g, ts := newGuard(t)
	uid := uuid.Must(uuid.NewV4())
	tok, _, err := ts.Issue(uid)
	require.NoError(t, err)

	id, err := g.Authenticate(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, uid, id.UserID)
}

func TestGuard_Authenticate_Missing(t *testing.T) {
	t.Parallel()

	g, _ := newGuard(t)
	var reasons []string
	g.OnFailure(func(r string) { reasons = append(reasons, r) })

	_, err := g.Authenticate(context.Background(), "   ")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	assert.Equal(t, errs.ReasonMissingToken, errs.Reason(err))
	assert.Equal(t, []string{errs.ReasonMissingToken}, reasons)
}

func TestGuard_Authenticate_InvalidHidesCause(t *testing.T) {
	t.Parallel()

	g, _ := newGuard(t)
	_, err := g.Authenticate(context.Background(), "abc.def.ghi")
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	assert.Equal(t, errs.ReasonInvalidToken, errs.Reason(err))
	assert.False(t, errors.Is(err, token.ErrMalformed), "internal reason must not leak")
}

func TestIdentityCtx(t *testing.T) {
	t.Parallel()

	_, ok := IdentityFromCtx(context.Background())
	assert.False(t, ok)

	want := model.Identity{UserID: uuid.Must(uuid.NewV4())}
	got, ok := IdentityFromCtx(WithIdentity(context.Background(), want))
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestTokenFromHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, xAuth, authz, want string
	}{
		{"x-auth-token wins", "tok1", "Bearer tok2", "tok1"},
		{"bearer fallback", "", "Bearer tok2", "tok2"},
		{"bearer case-insensitive", "", "bearer   tok3 ", "tok3"},
		{"basic ignored", "", "Basic foo", ""},
		{"empty bearer", "", "Bearer   ", ""},
		{"nothing", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenFromHeaders(tt.xAuth, tt.authz))
		})
	}
}
