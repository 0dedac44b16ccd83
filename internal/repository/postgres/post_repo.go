package postgres

import (
	"context"
	"errors"

	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// PostRepo implements PostRepository using PostgreSQL.
type PostRepo struct{ db *DB }

// NewPostRepo constructs a post repository.
func NewPostRepo(db *DB) *PostRepo { return &PostRepo{db: db} }

// querier is the read surface shared by the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const postCols = `id, title, body, status, author_id, author_name, image, category_id, tags, created_at`

// Create inserts a new post with an empty revision history.
func (r *PostRepo) Create(ctx context.Context, p *model.Post) error {
	const q = `
INSERT INTO posts (id, title, body, status, author_id, author_name, image, category_id, tags)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at`
	return r.db.Pool.QueryRow(ctx, q,
		p.ID, p.Title, p.Text, string(p.Status), p.Author.ID, p.Author.Name,
		p.Image, nullUUID(p.Category), tagsOrEmpty(p.Tags),
	).Scan(&p.CreatedAt)
}

// GetByID loads a post with its revisions newest first.
func (r *PostRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	return getPost(ctx, r.db.Pool, id)
}

// List returns posts matching filter ordered by creation time, newest first.
func (r *PostRepo) List(ctx context.Context, filter model.PostFilter) ([]model.Post, error) {
	const q = `
SELECT ` + postCols + `
FROM posts
WHERE ($1 = '' OR status = $1) AND ($2::uuid IS NULL OR category_id = $2)
ORDER BY created_at DESC, id`
	rows, err := r.db.Pool.Query(ctx, q, string(filter.Status), nullUUID(filter.Category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out []model.Post
		ids []uuid.UUID
	)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	const rq = `
SELECT post_id, editor_id, editor_name, edited_at
FROM post_revisions
WHERE post_id = ANY($1)
ORDER BY post_id, seq DESC`
	rrows, err := r.db.Pool.Query(ctx, rq, ids)
	if err != nil {
		return nil, err
	}
	defer rrows.Close()

	byPost := make(map[uuid.UUID][]model.Revision, len(ids))
	for rrows.Next() {
		var (
			postID uuid.UUID
			rev    model.Revision
		)
		if err := rrows.Scan(&postID, &rev.EditorID, &rev.EditorName, &rev.EditedAt); err != nil {
			return nil, err
		}
		byPost[postID] = append(byPost[postID], rev)
	}
	if err := rrows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Revisions = byPost[out[i].ID]
	}
	return out, nil
}

// UpdateContentAndAppendRevision locks the post row, applies fields and inserts rev at the head.
func (r *PostRepo) UpdateContentAndAppendRevision(
	ctx context.Context, id uuid.UUID, fields model.PostFields, rev model.Revision,
) (post *model.Post, err error) {
	const sel = `SELECT revision_count FROM posts WHERE id=$1 FOR UPDATE`
	const upd = `
UPDATE posts SET
  title = $2,
  body = $3,
  status = COALESCE(NULLIF($4, ''), status),
  image = COALESCE($5, image),
  category_id = COALESCE($6, category_id),
  tags = COALESCE($7, tags),
  revision_count = $8
WHERE id = $1`
	const ins = `
INSERT INTO post_revisions (post_id, seq, editor_id, editor_name, edited_at)
VALUES ($1, $2, $3, $4, $5)`

	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		var count int
		if err := tx.QueryRow(ctx, sel, id).Scan(&count); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		seq := count + 1
		if _, err := tx.Exec(ctx, upd, id, fields.Title, fields.Text, string(fields.Status),
			fields.Image, nullUUID(fields.Category), fields.Tags, seq); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, ins, id, seq, rev.EditorID, rev.EditorName, rev.EditedAt); err != nil {
			return err
		}
		p, err := getPost(ctx, tx, id)
		if err != nil {
			return err
		}
		post = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes a post; its revisions go with it (ON DELETE CASCADE).
func (r *PostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func getPost(ctx context.Context, q querier, id uuid.UUID) (*model.Post, error) {
	const sel = `SELECT ` + postCols + ` FROM posts WHERE id=$1`
	p, err := scanPost(q.QueryRow(ctx, sel, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}

	const rq = `
SELECT editor_id, editor_name, edited_at
FROM post_revisions
WHERE post_id=$1
ORDER BY seq DESC`
	rows, err := q.Query(ctx, rq, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var rev model.Revision
		if err := rows.Scan(&rev.EditorID, &rev.EditorName, &rev.EditedAt); err != nil {
			return nil, err
		}
		p.Revisions = append(p.Revisions, rev)
	}
	return p, rows.Err()
}

func scanPost(row pgx.Row) (*model.Post, error) {
	var (
		p      model.Post
		status string
		cat    uuid.NullUUID
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Text, &status, &p.Author.ID, &p.Author.Name,
		&p.Image, &cat, &p.Tags, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Status = model.PostStatus(status)
	if cat.Valid {
		c := cat.UUID
		p.Category = &c
	}
	return &p, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
