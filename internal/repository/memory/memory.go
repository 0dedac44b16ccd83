// Package memory contains in-process implementations of repository interfaces.
// Writes to the same record serialize on a per-record mutex; different records never contend.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepo is a map-backed UserRepository.
type UserRepo struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]model.User
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

// NewUserRepo returns an empty user store.
func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[uuid.UUID]model.User),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

// Create inserts u. A taken email yields errs.ErrAlreadyExists.
func (r *UserRepo) Create(_ context.Context, u *model.User) error {
	key := model.NormalizeEmail(u.Email)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[key]; ok {
		return errs.ErrAlreadyExists
	}
	if _, ok := r.byID[u.ID]; ok {
		return errs.ErrAlreadyExists
	}
	u.CreatedAt = r.now().UTC()
	r.byID[u.ID] = *u
	r.byEmail[key] = u.ID
	return nil
}

// GetByID loads a user by ID.
func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

// GetByEmail loads a user by case-insensitive email.
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return nil, errs.ErrNotFound
	}
	u := r.byID[id]
	return &u, nil
}

// UpdateCredentials replaces email and hash together under the store lock.
func (r *UserRepo) UpdateCredentials(_ context.Context, id uuid.UUID, email, passwordHash string) error {
	key := model.NormalizeEmail(email)
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	if owner, taken := r.byEmail[key]; taken && owner != id {
		return errs.ErrAlreadyExists
	}
	delete(r.byEmail, model.NormalizeEmail(u.Email))
	u.Email = email
	u.PasswordHash = passwordHash
	r.byID[id] = u
	r.byEmail[key] = id
	return nil
}

// UpdatePasswordHash replaces the hash if it still equals oldHash.
func (r *UserRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, oldHash, newHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok || u.PasswordHash != oldHash {
		return false, nil
	}
	u.PasswordHash = newHash
	r.byID[id] = u
	return true, nil
}

type postRecord struct {
	mu      sync.Mutex
	post    model.Post
	deleted bool
}

// PostRepo is a map-backed PostRepository with one mutex per post.
type PostRepo struct {
	mu    sync.RWMutex
	posts map[uuid.UUID]*postRecord
	now   func() time.Time
}

// NewPostRepo returns an empty post store.
func NewPostRepo() *PostRepo {
	return &PostRepo{posts: make(map[uuid.UUID]*postRecord), now: time.Now}
}

// Create inserts p with an empty history.
func (r *PostRepo) Create(_ context.Context, p *model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[p.ID]; ok {
		return errs.ErrAlreadyExists
	}
	p.CreatedAt = r.now().UTC()
	p.Revisions = nil
	if p.Tags == nil {
		p.Tags = []string{}
	}
	r.posts[p.ID] = &postRecord{post: p.Clone()}
	return nil
}

func (r *PostRepo) record(id uuid.UUID) (*postRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.posts[id]
	return rec, ok
}

// GetByID returns a copy of the post.
func (r *PostRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Post, error) {
	rec, ok := r.record(id)
	if !ok {
		return nil, errs.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return nil, errs.ErrNotFound
	}
	p := rec.post.Clone()
	return &p, nil
}

// List returns copies of matching posts, newest first.
func (r *PostRepo) List(_ context.Context, filter model.PostFilter) ([]model.Post, error) {
	r.mu.RLock()
	recs := make([]*postRecord, 0, len(r.posts))
	for _, rec := range r.posts {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	out := make([]model.Post, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		p, deleted := rec.post.Clone(), rec.deleted
		rec.mu.Unlock()
		if deleted || !matches(p, filter) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func matches(p model.Post, f model.PostFilter) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Category != nil && (p.Category == nil || *p.Category != *f.Category) {
		return false
	}
	return true
}

// UpdateContentAndAppendRevision holds the post's mutex across the existence
// check, the content update and the head insertion of rev.
func (r *PostRepo) UpdateContentAndAppendRevision(
	_ context.Context, id uuid.UUID, fields model.PostFields, rev model.Revision,
) (*model.Post, error) {
	rec, ok := r.record(id)
	if !ok {
		return nil, errs.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.deleted {
		return nil, errs.ErrNotFound
	}
	next := rec.post.Clone()
	fields.Apply(&next)
	rec.post = model.AppendRevision(next, rev)
	p := rec.post.Clone()
	return &p, nil
}

// Delete removes a post and its history.
func (r *PostRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	rec, ok := r.posts[id]
	if ok {
		delete(r.posts, id)
	}
	r.mu.Unlock()
	if !ok {
		return errs.ErrNotFound
	}
	rec.mu.Lock()
	rec.deleted = true
	rec.mu.Unlock()
	return nil
}
