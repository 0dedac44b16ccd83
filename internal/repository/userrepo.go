// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/gophpress/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides access to user accounts.
type UserRepository interface {
	// Create inserts a new user. A taken email yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by email, compared case-insensitively.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdateCredentials replaces email and password hash in one atomic write.
	UpdateCredentials(ctx context.Context, id uuid.UUID, email, passwordHash string) error
	// UpdatePasswordHash swaps the hash only while the stored one still equals oldHash.
	// It reports false when the row changed or is gone. Email is never touched.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, oldHash, newHash string) (bool, error)
}
