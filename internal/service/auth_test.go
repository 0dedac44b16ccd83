package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/limiter"
	"github.com/and161185/gophpress/internal/model"
	"github.com/and161185/gophpress/internal/repository"
	"github.com/and161185/gophpress/internal/repository/memory"
	"github.com/and161185/gophpress/internal/token"
)

// fakeHasher stores "h:<pw>" and treats "old:<pw>" as a weaker legacy hash.
type fakeHasher struct {
	hashErr     error
	verifyCalls atomic.Int32
	hashCalls   atomic.Int32
}

func (h *fakeHasher) Hash(_ context.Context, pw string) (string, error) {
	h.hashCalls.Add(1)
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "h:" + pw, nil
}

func (h *fakeHasher) Verify(_ context.Context, pw, hash string) (bool, error) {
	h.verifyCalls.Add(1)
	return hash == "h:"+pw || hash == "old:"+pw, nil
}

func (h *fakeHasher) NeedsRehash(hash string) bool { return strings.HasPrefix(hash, "old:") }

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
	lastEmail    string
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(_ context.Context, email string, _ []byte) (bool, time.Duration, error) {
	l.allowCalls++
	l.lastEmail = email
	return l.allowOK, time.Minute, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, time.Minute, l.failErr
}

// brokenUsers fails every call with err.
type brokenUsers struct{ err error }

var _ repository.UserRepository = brokenUsers{}

func (b brokenUsers) Create(context.Context, *model.User) error { return b.err }
func (b brokenUsers) GetByID(context.Context, uuid.UUID) (*model.User, error) {
	return nil, b.err
}
func (b brokenUsers) GetByEmail(context.Context, string) (*model.User, error) {
	return nil, b.err
}
func (b brokenUsers) UpdateCredentials(context.Context, uuid.UUID, string, string) error {
	return b.err
}
func (b brokenUsers) UpdatePasswordHash(context.Context, uuid.UUID, string, string) (bool, error) {
	return false, b.err
}

// racingHasher runs onRehash once, right before login decides to upgrade a hash.
type racingHasher struct {
	*fakeHasher
	onRehash func()
	fired    atomic.Bool
}

func (h *racingHasher) NeedsRehash(hash string) bool {
	if h.fakeHasher.NeedsRehash(hash) && h.onRehash != nil && h.fired.CompareAndSwap(false, true) {
		h.onRehash()
	}
	return h.fakeHasher.NeedsRehash(hash)
}

func newTokens(t *testing.T) *token.Service {
	t.Helper()
	ts, err := token.New([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	if err != nil {
		t.Fatalf("token.New: %v", err)
	}
	return ts
}

func newAuth(t *testing.T, users repository.UserRepository, lim limiter.Limiter) (*AuthServiceImpl, *fakeHasher, *token.Service) {
	t.Helper()
	h := &fakeHasher{}
	ts := newTokens(t)
	return NewAuthService(users, h, ts, lim, nil), h, ts
}

var joInput = RegisterInput{FirstName: "Jo", LastName: "X", Email: "jo@example.com", Password: "correct horse"}

func TestAuth_Register(t *testing.T) {
	t.Parallel()
	users := memory.NewUserRepo()
	s, _, ts := newAuth(t, users, nil)
	ctx := context.Background()

	tok, u, err := s.Register(ctx, joInput)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.PasswordHash != "" {
		t.Fatalf("hash leaked to caller")
	}
	if u.DisplayName() != "Jo X" || u.Email != "jo@example.com" {
		t.Fatalf("bad user: %+v", u)
	}
	got, err := ts.Verify(tok.AccessToken)
	if err != nil || got != u.ID {
		t.Fatalf("token does not identify user: %v %v", got, err)
	}

	stored, _ := users.GetByID(ctx, u.ID)
	if stored.PasswordHash != "h:correct horse" {
		t.Fatalf("stored hash=%q", stored.PasswordHash)
	}
}

func TestAuth_Register_DuplicateEmailIsConflict(t *testing.T) {
	t.Parallel()
	users := memory.NewUserRepo()
	s, _, _ := newAuth(t, users, nil)
	ctx := context.Background()

	_, first, err := s.Register(ctx, joInput)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	dup := joInput
	dup.Email = "  JO@example.com"
	dup.Password = "another password"
	_, _, err = s.Register(ctx, dup)
	if !errors.Is(err, errs.ErrConflict) || errs.Reason(err) != errs.ReasonEmailTaken {
		t.Fatalf("want conflict/email_taken, got %v (%q)", err, errs.Reason(err))
	}

	stored, _ := users.GetByID(ctx, first.ID)
	if stored.PasswordHash != "h:correct horse" {
		t.Fatalf("first record modified: %+v", stored)
	}
}

func TestAuth_Register_Validation(t *testing.T) {
	t.Parallel()
	s, h, _ := newAuth(t, memory.NewUserRepo(), nil)

	cases := map[string]RegisterInput{
		"empty":          {},
		"bad email":      {FirstName: "a", LastName: "b", Email: "not-an-email", Password: "longenough"},
		"named email":    {FirstName: "a", LastName: "b", Email: "Jo <jo@example.com>", Password: "longenough"},
		"short password": {FirstName: "a", LastName: "b", Email: "a@example.com", Password: "short"},
		"blank name":     {FirstName: "  ", LastName: "b", Email: "a@example.com", Password: "longenough"},
	}
	for name, in := range cases {
		_, _, err := s.Register(context.Background(), in)
		if !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("%s: want validation error, got %v", name, err)
		}
		var ve *errs.ValidationError
		if !errors.As(err, &ve) || len(ve.Fields) == 0 {
			t.Fatalf("%s: want field errors, got %v", name, err)
		}
	}
	if h.hashCalls.Load() != 0 {
		t.Fatalf("hashing must not happen on invalid input")
	}
}

func TestAuth_Register_RepoErrorsPropagate(t *testing.T) {
	t.Parallel()
	boom := errors.New("db down")
	s, _, _ := newAuth(t, brokenUsers{err: boom}, nil)

	if _, _, err := s.Register(context.Background(), joInput); !errors.Is(err, boom) {
		t.Fatalf("want db error, got %v", err)
	}
}

func TestAuth_Login_RateLimiterAndCreds(t *testing.T) {
	t.Parallel()
	users := memory.NewUserRepo()
	lim := &fakeLimiter{allowOK: true}
	s, h, _ := newAuth(t, users, lim)
	ctx := context.Background()
	if _, _, err := s.Register(ctx, joInput); err != nil {
		t.Fatalf("Register: %v", err)
	}

	lim.allowErr = errors.New("lim-err")
	if _, _, err := s.Login(ctx, "jo@example.com", "correct horse", "1.2.3.4"); err == nil {
		t.Fatalf("want limiter error propagate")
	}
	lim.allowErr = nil

	lim.allowOK = false
	if _, _, err := s.Login(ctx, "jo@example.com", "correct horse", "1.2.3.4"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	lim.allowOK = true

	before := h.verifyCalls.Load()
	_, _, err := s.Login(ctx, "nobody@example.com", "x", "")
	if !errors.Is(err, errs.ErrUnauthorized) || errs.Reason(err) != errs.ReasonBadCredentials {
		t.Fatalf("want bad_credentials on unknown email, got %v", err)
	}
	if h.verifyCalls.Load() == before {
		t.Fatalf("unknown email must still run a verification")
	}

	lim.failBlocked = true
	if _, _, err := s.Login(ctx, "jo@example.com", "wrong", ""); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited on blocked after failure, got %v", err)
	}
	lim.failBlocked = false

	_, _, err = s.Login(ctx, "jo@example.com", "wrong", "")
	if !errors.Is(err, errs.ErrUnauthorized) || errs.Reason(err) != errs.ReasonBadCredentials {
		t.Fatalf("want ErrUnauthorized on wrong password, got %v", err)
	}

	tok, u, err := s.Login(ctx, " JO@Example.com ", "correct horse", "127.0.0.1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tok.AccessToken == "" || !tok.ExpiresAt.After(time.Now()) {
		t.Fatalf("bad token: %+v", tok)
	}
	if u.DisplayName() != "Jo X" || u.PasswordHash != "" {
		t.Fatalf("bad user: %+v", u)
	}
	if lim.lastEmail != "jo@example.com" {
		t.Fatalf("limiter key not normalized: %q", lim.lastEmail)
	}
	if lim.successCalls != 1 || lim.failureCalls != 3 {
		t.Fatalf("limiter calls: success=%d failure=%d", lim.successCalls, lim.failureCalls)
	}
}

func TestAuth_Login_EmptyFieldsAreValidation(t *testing.T) {
	t.Parallel()
	s, _, _ := newAuth(t, memory.NewUserRepo(), nil)
	if _, _, err := s.Login(context.Background(), "", "", ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation, got %v", err)
	}
}

func TestAuth_Login_RehashesLegacyHash(t *testing.T) {
	t.Parallel()
	users := memory.NewUserRepo()
	s, _, _ := newAuth(t, users, nil)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	if err := users.Create(ctx, &model.User{ID: id, FirstName: "Jo", LastName: "X", Email: "jo@example.com", PasswordHash: "old:pw123456"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, _, err := s.Login(ctx, "jo@example.com", "pw123456", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}
	stored, _ := users.GetByID(ctx, id)
	if stored.PasswordHash != "h:pw123456" {
		t.Fatalf("hash not upgraded: %q", stored.PasswordHash)
	}
}

func TestAuth_Login_RehashDoesNotUndoSettingsChange(t *testing.T) {
	t.Parallel()
	users := memory.NewUserRepo()
	h := &racingHasher{fakeHasher: &fakeHasher{}}
	s := NewAuthService(users, h, newTokens(t), nil, nil)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	if err := users.Create(ctx, &model.User{ID: id, FirstName: "Jo", LastName: "X", Email: "jo@example.com", PasswordHash: "old:oldpassword1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.onRehash = func() {
		if _, err := s.UpdateSettings(ctx, id, SettingsInput{
			Email: "new@example.com", OldPassword: "oldpassword1", NewPassword: "newpassword1",
		}); err != nil {
			t.Errorf("UpdateSettings: %v", err)
		}
	}

	if _, _, err := s.Login(ctx, "jo@example.com", "oldpassword1", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !h.fired.Load() {
		t.Fatalf("settings change did not run during login")
	}

	stored, _ := users.GetByID(ctx, id)
	if stored.Email != "new@example.com" || stored.PasswordHash != "h:newpassword1" {
		t.Fatalf("settings change undone: %+v", stored)
	}
	if _, _, err := s.Login(ctx, "new@example.com", "newpassword1", ""); err != nil {
		t.Fatalf("login with new credentials: %v", err)
	}
	if _, _, err := s.Login(ctx, "jo@example.com", "oldpassword1", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("old credentials still work: %v", err)
	}
}

func TestAuth_Login_DummyHashRetriedAfterFailure(t *testing.T) {
	t.Parallel()
	s, h, _ := newAuth(t, memory.NewUserRepo(), nil)
	ctx := context.Background()

	h.hashErr = context.Canceled
	if _, _, err := s.Login(ctx, "ghost@example.com", "whatever1", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want unauthorized, got %v", err)
	}
	if h.verifyCalls.Load() != 0 {
		t.Fatalf("verify ran without a dummy hash")
	}

	h.hashErr = nil
	if _, _, err := s.Login(ctx, "ghost@example.com", "whatever1", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want unauthorized, got %v", err)
	}
	if h.verifyCalls.Load() != 1 {
		t.Fatalf("unknown email skipped hashing: verify calls=%d", h.verifyCalls.Load())
	}
}

func TestAuth_Me(t *testing.T) {
	t.Parallel()
	users := memory.NewUserRepo()
	s, _, _ := newAuth(t, users, nil)
	ctx := context.Background()
	_, reg, _ := s.Register(ctx, joInput)

	u, err := s.Me(ctx, reg.ID)
	if err != nil || u.ID != reg.ID || u.PasswordHash != "" {
		t.Fatalf("Me: %+v %v", u, err)
	}
	_, err = s.Me(ctx, uuid.Must(uuid.NewV4()))
	if !errors.Is(err, errs.ErrNotFound) || errs.Reason(err) != errs.ReasonUserNotFound {
		t.Fatalf("want user_not_found, got %v", err)
	}
}

func TestAuth_UpdateSettings_ThenLogin(t *testing.T) {
	t.Parallel()
	users := memory.NewUserRepo()
	s, _, _ := newAuth(t, users, nil)
	ctx := context.Background()
	_, jo, err := s.Register(ctx, joInput)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	u, err := s.UpdateSettings(ctx, jo.ID, SettingsInput{Email: "jo.x@example.com", OldPassword: "correct horse", NewPassword: "battery staple"})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if u.Email != "jo.x@example.com" {
		t.Fatalf("email=%q", u.Email)
	}

	if _, _, err := s.Login(ctx, "jo.x@example.com", "battery staple", ""); err != nil {
		t.Fatalf("login with new credentials: %v", err)
	}
	if _, _, err := s.Login(ctx, "jo.x@example.com", "correct horse", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("old password must fail, got %v", err)
	}
	if _, _, err := s.Login(ctx, "jo@example.com", "battery staple", ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("old email must fail, got %v", err)
	}
}

func TestAuth_UpdateSettings_Errors(t *testing.T) {
	t.Parallel()
	users := memory.NewUserRepo()
	s, _, _ := newAuth(t, users, nil)
	ctx := context.Background()
	_, jo, _ := s.Register(ctx, joInput)
	sam := joInput
	sam.FirstName, sam.Email = "Sam", "sam@example.com"
	if _, _, err := s.Register(ctx, sam); err != nil {
		t.Fatalf("Register sam: %v", err)
	}

	_, err := s.UpdateSettings(ctx, jo.ID, SettingsInput{Email: "jo@example.com", OldPassword: "wrong", NewPassword: "battery staple"})
	if !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("want forbidden on wrong old password, got %v", err)
	}

	_, err = s.UpdateSettings(ctx, jo.ID, SettingsInput{Email: "Sam@example.com", OldPassword: "correct horse", NewPassword: "battery staple"})
	if !errors.Is(err, errs.ErrConflict) || errs.Reason(err) != errs.ReasonEmailTaken {
		t.Fatalf("want email_taken, got %v", err)
	}

	_, err = s.UpdateSettings(ctx, uuid.Must(uuid.NewV4()), SettingsInput{Email: "z@example.com", OldPassword: "x", NewPassword: "battery staple"})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}

	_, err = s.UpdateSettings(ctx, jo.ID, SettingsInput{Email: "jo@example.com", OldPassword: "correct horse", NewPassword: "short"})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation, got %v", err)
	}

	// keeping the same email only changes the password
	if _, err := s.UpdateSettings(ctx, jo.ID, SettingsInput{Email: "JO@example.com", OldPassword: "correct horse", NewPassword: "battery staple"}); err != nil {
		t.Fatalf("same email update: %v", err)
	}
}

func TestAuth_UpdateSettings_HashFailureWritesNothing(t *testing.T) {
	t.Parallel()
	users := memory.NewUserRepo()
	s, h, _ := newAuth(t, users, nil)
	ctx := context.Background()
	_, jo, _ := s.Register(ctx, joInput)

	h.hashErr = errors.New("hash boom")
	if _, err := s.UpdateSettings(ctx, jo.ID, SettingsInput{Email: "new@example.com", OldPassword: "correct horse", NewPassword: "battery staple"}); err == nil {
		t.Fatalf("want hash error")
	}
	stored, _ := users.GetByID(ctx, jo.ID)
	if stored.Email != "jo@example.com" || stored.PasswordHash != "h:correct horse" {
		t.Fatalf("partial update: %+v", stored)
	}
}
