package repository

import (
	"context"

	"github.com/and161185/gophpress/internal/model"
	"github.com/gofrs/uuid/v5"
)

// PostRepository stores posts and their revision history.
type PostRepository interface {
	// Create inserts a new post with an empty history.
	Create(ctx context.Context, p *model.Post) error
	// GetByID loads a post with revisions newest first.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Post, error)
	// List returns posts matching filter, newest first, with revisions.
	List(ctx context.Context, filter model.PostFilter) ([]model.Post, error)
	// UpdateContentAndAppendRevision applies fields and prepends rev as one unit.
	// A missing post yields errs.ErrNotFound and nothing is written.
	UpdateContentAndAppendRevision(ctx context.Context, id uuid.UUID, fields model.PostFields, rev model.Revision) (*model.Post, error)
	// Delete removes a post and its history.
	Delete(ctx context.Context, id uuid.UUID) error
}
