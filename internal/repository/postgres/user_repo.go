package postgres

import (
	"context"
	"errors"

	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, first_name, last_name, email, password_hash, created_at`

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, first_name, last_name, email, password_hash)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`
	err := r.db.Pool.QueryRow(ctx, q, u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by case-insensitive email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE lower(email)=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, model.NormalizeEmail(email)))
}

// UpdateCredentials replaces email and password hash in a single statement.
func (r *UserRepo) UpdateCredentials(ctx context.Context, id uuid.UUID, email, passwordHash string) error {
	const q = `
UPDATE users
SET email = $2, password_hash = $3
WHERE id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, id, email, passwordHash)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// UpdatePasswordHash is a compare-and-swap on password_hash.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, oldHash, newHash string) (bool, error) {
	const q = `
UPDATE users
SET password_hash = $3
WHERE id = $1 AND password_hash = $2`
	tag, err := r.db.Pool.Exec(ctx, q, id, oldHash, newHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
