package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "first_name", "last_name", "email", "password_hash", "created_at"}

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()
	u := &model.User{
		ID:           uuid.Must(uuid.NewV4()),
		FirstName:    "Jo",
		LastName:     "X",
		Email:        "jo@example.com",
		PasswordHash: "$argon2id$...",
	}

	// OK
	mock.ExpectQuery(`INSERT INTO users \(id, first_name, last_name, email, password_hash\) VALUES \(\$1, \$2, \$3, \$4, \$5\) RETURNING created_at`).
		WithArgs(u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
	require.NoError(t, r.Create(ctx, u))
	require.Equal(t, now, u.CreatedAt)

	// Unique violation
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	err := r.Create(ctx, u)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
	require.ErrorIs(t, err, errs.ErrConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT id, first_name, last_name, email, password_hash, created_at FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(id, "Jo", "X", "jo@example.com", "hash", time.Now()))
	u, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, u.ID)
	require.Equal(t, "Jo X", u.DisplayName())

	mock.ExpectQuery(`SELECT id, first_name, last_name, email, password_hash, created_at FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, id)
	require.ErrorIs(t, err, errs.ErrNotFound)

	boom := errors.New("conn reset")
	mock.ExpectQuery(`FROM users WHERE id=\$1`).
		WithArgs(id).
		WillReturnError(boom)
	_, err = r.GetByID(ctx, id)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_GetByEmail_Normalizes(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT id, first_name, last_name, email, password_hash, created_at FROM users WHERE lower\(email\)=\$1`).
		WithArgs("jo@example.com").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(id, "Jo", "X", "Jo@Example.com", "hash", time.Now()))
	u, err := r.GetByEmail(ctx, "  Jo@Example.COM ")
	require.NoError(t, err)
	require.Equal(t, id, u.ID)

	mock.ExpectQuery(`FROM users WHERE lower\(email\)=\$1`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_UpdateCredentials(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`UPDATE users SET email = \$2, password_hash = \$3 WHERE id = \$1`).
		WithArgs(id, "new@example.com", "h2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.UpdateCredentials(ctx, id, "new@example.com", "h2"))

	mock.ExpectExec(`UPDATE users SET email = \$2, password_hash = \$3 WHERE id = \$1`).
		WithArgs(id, "new@example.com", "h2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.UpdateCredentials(ctx, id, "new@example.com", "h2"), errs.ErrNotFound)

	mock.ExpectExec(`UPDATE users`).
		WithArgs(id, "taken@example.com", "h2").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.UpdateCredentials(ctx, id, "taken@example.com", "h2"), errs.ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_UpdatePasswordHash(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`UPDATE users SET password_hash = \$3 WHERE id = \$1 AND password_hash = \$2`).
		WithArgs(id, "h1", "h2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := r.UpdatePasswordHash(ctx, id, "h1", "h2")
	require.NoError(t, err)
	require.True(t, ok)

	// stored hash already replaced by a settings change
	mock.ExpectExec(`UPDATE users SET password_hash = \$3 WHERE id = \$1 AND password_hash = \$2`).
		WithArgs(id, "h1", "h2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	ok, err = r.UpdatePasswordHash(ctx, id, "h1", "h2")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}
