package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/model"
	"github.com/and161185/gophpress/internal/observability"
	"github.com/and161185/gophpress/internal/repository"
)

// PostService defines operations over posts and their edit history.
type PostService interface {
	// Create stores a post authored by editorID with an empty history.
	Create(ctx context.Context, editorID uuid.UUID, fields model.PostFields) (model.Post, error)
	// Get returns one post with its history.
	Get(ctx context.Context, id uuid.UUID) (model.Post, error)
	// ListPublished returns published posts, newest first.
	ListPublished(ctx context.Context) ([]model.Post, error)
	// ListAll returns every post regardless of status, newest first.
	ListAll(ctx context.Context) ([]model.Post, error)
	// ListByCategory returns published posts of one category, newest first.
	ListByCategory(ctx context.Context, category uuid.UUID) ([]model.Post, error)
	// Edit replaces the content and records editorID at the head of the history.
	Edit(ctx context.Context, editorID, id uuid.UUID, fields model.PostFields) (model.Post, error)
	// Delete removes a post and its history.
	Delete(ctx context.Context, id uuid.UUID) error
	// History returns the revisions of a post, newest first.
	History(ctx context.Context, id uuid.UUID) ([]model.Revision, error)
}

type PostServiceImpl struct {
	posts   repository.PostRepository
	users   repository.UserRepository
	log     *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time

	retries     uint64
	retryBase   time.Duration
	retryMaxGap time.Duration
}

// PostOption customizes PostServiceImpl.
type PostOption func(*PostServiceImpl)

// WithPostMetrics counts appended revisions on m.
func WithPostMetrics(m *observability.Metrics) PostOption {
	return func(s *PostServiceImpl) { s.metrics = m }
}

// WithClock overrides the time source used for revision timestamps.
func WithClock(now func() time.Time) PostOption {
	return func(s *PostServiceImpl) { s.now = now }
}

// WithEditRetries sets how often an edit is retried on write contention and the first delay.
func WithEditRetries(retries uint64, base time.Duration) PostOption {
	return func(s *PostServiceImpl) { s.retries, s.retryBase = retries, base }
}

// NewPostService constructs PostService. users resolves author and editor display names.
func NewPostService(posts repository.PostRepository, users repository.UserRepository, log *zap.Logger, opts ...PostOption) *PostServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	s := &PostServiceImpl{
		posts:       posts,
		users:       users,
		log:         log,
		now:         time.Now,
		retries:     5,
		retryBase:   10 * time.Millisecond,
		retryMaxGap: 500 * time.Millisecond,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *PostServiceImpl) displayName(ctx context.Context, userID uuid.UUID) (string, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", errs.WithReason(errs.ErrNotFound, errs.ReasonUserNotFound, "user_id", userID)
		}
		return "", err
	}
	return u.DisplayName(), nil
}

func postNotFound(err error, id uuid.UUID) error {
	if errors.Is(err, errs.ErrNotFound) {
		return errs.WithReason(errs.ErrNotFound, errs.ReasonPostNotFound, "post_id", id)
	}
	return err
}

// Create validates fields and snapshots the author's display name.
func (s *PostServiceImpl) Create(ctx context.Context, editorID uuid.UUID, fields model.PostFields) (_ model.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "posts.Create")
	defer func() { observability.EndSpan(span, err) }()

	if err := validatePostFields(fields); err != nil {
		return model.Post{}, err
	}
	name, err := s.displayName(ctx, editorID)
	if err != nil {
		return model.Post{}, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return model.Post{}, err
	}
	p := model.Post{ID: id, Status: model.StatusDraft, Author: model.Author{ID: editorID, Name: name}, Tags: []string{}}
	fields.Apply(&p)
	if err := s.posts.Create(ctx, &p); err != nil {
		return model.Post{}, err
	}
	span.SetAttributes(attribute.String("post.id", id.String()))
	return p, nil
}

// Get loads one post.
func (s *PostServiceImpl) Get(ctx context.Context, id uuid.UUID) (model.Post, error) {
	p, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return model.Post{}, postNotFound(err, id)
	}
	return *p, nil
}

// ListPublished returns published posts, newest first.
func (s *PostServiceImpl) ListPublished(ctx context.Context) ([]model.Post, error) {
	return s.posts.List(ctx, model.PostFilter{Status: model.StatusPublished})
}

// ListAll returns all posts, newest first.
func (s *PostServiceImpl) ListAll(ctx context.Context) ([]model.Post, error) {
	return s.posts.List(ctx, model.PostFilter{})
}

// ListByCategory returns the published posts of category, newest first.
func (s *PostServiceImpl) ListByCategory(ctx context.Context, category uuid.UUID) ([]model.Post, error) {
	return s.posts.List(ctx, model.PostFilter{Status: model.StatusPublished, Category: &category})
}

// Edit applies fields and records the edit. Existence is checked inside the same
// repository unit that writes the revision, so a missing post records nothing.
// Write contention on the same post is retried with capped exponential backoff.
func (s *PostServiceImpl) Edit(ctx context.Context, editorID, id uuid.UUID, fields model.PostFields) (_ model.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "posts.Edit",
		attribute.String("post.id", id.String()), attribute.String("editor.id", editorID.String()))
	defer func() { observability.EndSpan(span, err) }()

	if err := validatePostFields(fields); err != nil {
		return model.Post{}, err
	}
	name, err := s.displayName(ctx, editorID)
	if err != nil {
		return model.Post{}, err
	}
	rev := model.Revision{EditorID: editorID, EditorName: name, EditedAt: s.now().UTC()}

	var (
		out      *model.Post
		attempts int
	)
	err = retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		attempts++
		p, err := s.posts.UpdateContentAndAppendRevision(ctx, id, fields, rev)
		if errors.Is(err, errs.ErrVersionConflict) {
			s.log.Debug("edit contention, retrying", zap.String("post_id", id.String()), zap.Int("attempt", attempts))
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	span.SetAttributes(attribute.Int("edit.attempts", attempts))
	if err != nil {
		return model.Post{}, postNotFound(err, id)
	}
	s.metrics.RevisionAppended()
	return *out, nil
}

func (s *PostServiceImpl) backoff() retry.Backoff {
	b := retry.NewExponential(s.retryBase)
	b = retry.WithJitterPercent(20, b)
	b = retry.WithCappedDuration(s.retryMaxGap, b)
	return retry.WithMaxRetries(s.retries, b)
}

// Delete removes a post. Any authenticated user may delete.
func (s *PostServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.posts.Delete(ctx, id); err != nil {
		return postNotFound(err, id)
	}
	return nil
}

// History returns the revisions of a post, newest first.
func (s *PostServiceImpl) History(ctx context.Context, id uuid.UUID) ([]model.Revision, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Revisions == nil {
		return []model.Revision{}, nil
	}
	return p.Revisions, nil
}
