// Package service contains application services for credentials and posts.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/limiter"
	"github.com/and161185/gophpress/internal/logging"
	"github.com/and161185/gophpress/internal/model"
	"github.com/and161185/gophpress/internal/observability"
	"github.com/and161185/gophpress/internal/repository"
)

// PasswordHasher hashes and verifies passwords. *crypto.Pool implements it.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, hash string) (bool, error)
	NeedsRehash(hash string) bool
}

// TokenIssuer mints access tokens. *token.Service implements it.
type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, time.Time, error)
}

// RegisterInput is the payload of account creation.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// SettingsInput is the payload of a credential change.
type SettingsInput struct {
	Email       string
	OldPassword string
	NewPassword string
}

// AuthService defines account and credential operations.
type AuthService interface {
	// Register creates a user and signs them in.
	Register(ctx context.Context, in RegisterInput) (model.Tokens, model.User, error)
	// Login applies rate limiting and authenticates by email and password.
	Login(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error)
	// Me loads the account of an authenticated user.
	Me(ctx context.Context, userID uuid.UUID) (model.User, error)
	// UpdateSettings replaces email and password after re-checking the old password.
	UpdateSettings(ctx context.Context, userID uuid.UUID, in SettingsInput) (model.User, error)
}

type AuthServiceImpl struct {
	users   repository.UserRepository
	hasher  PasswordHasher
	tokens  TokenIssuer
	lim     limiter.Limiter
	log     *zap.Logger
	metrics *observability.Metrics

	dummyMu   sync.Mutex
	dummyHash string
}

// AuthOption customizes AuthServiceImpl.
type AuthOption func(*AuthServiceImpl)

// WithAuthMetrics records login outcomes on m.
func WithAuthMetrics(m *observability.Metrics) AuthOption {
	return func(s *AuthServiceImpl) { s.metrics = m }
}

// NewAuthService constructs AuthService with required dependencies. A nil lim disables throttling.
func NewAuthService(
	users repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer,
	lim limiter.Limiter, log *zap.Logger, opts ...AuthOption,
) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &AuthServiceImpl{users: users, hasher: hasher, tokens: tokens, lim: lim, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// dummyPassword is hashed once and verified against when the email is unknown,
// so both login failure paths do the same hashing work.
const dummyPassword = "gophpress-timing-equalizer"

func (s *AuthServiceImpl) dummy(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash != "" {
		return s.dummyHash
	}
	// a failed attempt is retried by the next caller
	h, err := s.hasher.Hash(context.WithoutCancel(ctx), dummyPassword)
	if err != nil {
		s.log.Warn("dummy hash unavailable", zap.Error(err))
		return ""
	}
	s.dummyHash = h
	return h
}

// Register validates input, rejects a taken email, stores the hashed password and issues a token.
func (s *AuthServiceImpl) Register(ctx context.Context, in RegisterInput) (_ model.Tokens, _ model.User, err error) {
	ctx, span := observability.StartSpan(ctx, "auth.Register")
	defer func() { observability.EndSpan(span, err) }()

	if err := validateRegister(in); err != nil {
		return model.Tokens{}, model.User{}, err
	}
	email := strings.TrimSpace(in.Email)

	switch _, err := s.users.GetByEmail(ctx, email); {
	case err == nil:
		return model.Tokens{}, model.User{}, errs.WithReason(errs.ErrConflict, errs.ReasonEmailTaken)
	case !errors.Is(err, errs.ErrNotFound):
		return model.Tokens{}, model.User{}, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	u := &model.User{
		ID:           uid,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, errs.ErrAlreadyExists) {
			return model.Tokens{}, model.User{}, errs.WithReason(errs.ErrConflict, errs.ReasonEmailTaken)
		}
		return model.Tokens{}, model.User{}, err
	}
	span.SetAttributes(attribute.String("user.id", uid.String()))

	tok, err := s.issue(uid)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tok, publicUser(*u), nil
}

// Login authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, ip string) (_ model.Tokens, _ model.User, err error) {
	ctx, span := observability.StartSpan(ctx, "auth.Login")
	defer func() { observability.EndSpan(span, err) }()

	if err := validateLogin(email, password); err != nil {
		return model.Tokens{}, model.User{}, err
	}
	key := model.NormalizeEmail(email)
	ipHash := limiter.HashIP(ip)

	allowed, retryAfter, err := s.lim.Allow(ctx, key, ipHash)
	if err != nil {
		s.metrics.Login("error")
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		s.metrics.Login("rate_limited")
		return model.Tokens{}, model.User{}, errs.WithReason(errs.ErrRateLimited, errs.ReasonRateLimited, "retry_after", retryAfter)
	}

	u, err := s.users.GetByEmail(ctx, key)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		u, err = nil, nil
	case err != nil:
		s.metrics.Login("error")
		return model.Tokens{}, model.User{}, err
	}

	var ok bool
	if u != nil {
		ok, err = s.hasher.Verify(ctx, password, u.PasswordHash)
	} else if dummy := s.dummy(ctx); dummy != "" {
		_, err = s.hasher.Verify(ctx, password, dummy)
	}
	if err != nil {
		// only ctx cancellation while waiting for a hashing slot
		s.metrics.Login("error")
		return model.Tokens{}, model.User{}, err
	}
	if !ok {
		if blocked, d, ferr := s.lim.Failure(ctx, key, ipHash); ferr == nil && blocked {
			s.metrics.Login("rate_limited")
			return model.Tokens{}, model.User{}, errs.WithReason(errs.ErrRateLimited, errs.ReasonRateLimited, "retry_after", d)
		} else if ferr != nil {
			logging.Error(s.log, "limiter failure not recorded", ferr)
		}
		s.metrics.Login(errs.ReasonBadCredentials)
		// unknown email and wrong password look the same to the caller
		return model.Tokens{}, model.User{}, errs.WithReason(errs.ErrUnauthorized, errs.ReasonBadCredentials)
	}

	if err := s.lim.Success(ctx, key, ipHash); err != nil {
		logging.Error(s.log, "limiter reset failed", err)
	}
	s.rehash(ctx, u, password)

	tok, err := s.issue(u.ID)
	if err != nil {
		s.metrics.Login("error")
		return model.Tokens{}, model.User{}, err
	}
	s.metrics.Login("ok")
	span.SetAttributes(attribute.String("user.id", u.ID.String()))
	return tok, publicUser(*u), nil
}

// rehash upgrades a stored hash made with weaker parameters. It only replaces the hash
// that was verified, so a concurrent settings change is never undone. Failures are logged only.
func (s *AuthServiceImpl) rehash(ctx context.Context, u *model.User, password string) {
	if !s.hasher.NeedsRehash(u.PasswordHash) {
		return
	}
	h, err := s.hasher.Hash(ctx, password)
	var swapped bool
	if err == nil {
		swapped, err = s.users.UpdatePasswordHash(ctx, u.ID, u.PasswordHash, h)
	}
	if err != nil {
		logging.Error(s.log, "password rehash failed", err, zap.String("user_id", u.ID.String()))
		return
	}
	if !swapped {
		// credentials changed since they were read; the newer write wins
		s.log.Debug("password rehash skipped", zap.String("user_id", u.ID.String()))
		return
	}
	u.PasswordHash = h
}

// Me returns the user without the password hash.
func (s *AuthServiceImpl) Me(ctx context.Context, userID uuid.UUID) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.User{}, errs.WithReason(errs.ErrNotFound, errs.ReasonUserNotFound, "user_id", userID)
		}
		return model.User{}, err
	}
	return publicUser(*u), nil
}

// UpdateSettings checks the old password and writes the new email and hash in one update.
func (s *AuthServiceImpl) UpdateSettings(ctx context.Context, userID uuid.UUID, in SettingsInput) (_ model.User, err error) {
	ctx, span := observability.StartSpan(ctx, "auth.UpdateSettings",
		attribute.String("user.id", userID.String()))
	defer func() { observability.EndSpan(span, err) }()

	if err := validateSettings(in); err != nil {
		return model.User{}, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.User{}, errs.WithReason(errs.ErrNotFound, errs.ReasonUserNotFound, "user_id", userID)
		}
		return model.User{}, err
	}

	ok, err := s.hasher.Verify(ctx, in.OldPassword, u.PasswordHash)
	if err != nil {
		return model.User{}, err
	}
	if !ok {
		return model.User{}, errs.WithReason(errs.ErrForbidden, errs.ReasonBadCredentials)
	}

	email := strings.TrimSpace(in.Email)
	if model.NormalizeEmail(email) != model.NormalizeEmail(u.Email) {
		other, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil && other.ID != u.ID:
			return model.User{}, errs.WithReason(errs.ErrConflict, errs.ReasonEmailTaken)
		case err != nil && !errors.Is(err, errs.ErrNotFound):
			return model.User{}, err
		}
	}

	hash, err := s.hasher.Hash(ctx, in.NewPassword)
	if err != nil {
		return model.User{}, err
	}
	if err := s.users.UpdateCredentials(ctx, u.ID, email, hash); err != nil {
		switch {
		case errors.Is(err, errs.ErrAlreadyExists):
			return model.User{}, errs.WithReason(errs.ErrConflict, errs.ReasonEmailTaken)
		case errors.Is(err, errs.ErrNotFound):
			return model.User{}, errs.WithReason(errs.ErrNotFound, errs.ReasonUserNotFound, "user_id", userID)
		}
		return model.User{}, err
	}
	u.Email = email
	return publicUser(*u), nil
}

func (s *AuthServiceImpl) issue(userID uuid.UUID) (model.Tokens, error) {
	access, exp, err := s.tokens.Issue(userID)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, nil
}

func publicUser(u model.User) model.User {
	u.PasswordHash = ""
	return u
}
