package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront-admin/internal/domain"
	"storefront-admin/internal/repository"
)

const createPostsTable = `
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	price TEXT NOT NULL,
	image TEXT NOT NULL DEFAULT '',
	contact TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT 'General',
	is_active BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_active_created ON posts(is_active, created_at);
`

const selectPost = `
SELECT id, title, description, price, image, contact, category, is_active, created_at, updated_at
FROM posts`

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostsTable); err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (int64, error) {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO posts (title, description, price, image, contact, category, is_active, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.Title,
		post.Description,
		post.Price,
		post.Image,
		post.Contact,
		post.Category,
		post.IsActive,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("post last insert id: %w", err)
	}
	post.ID = id
	return id, nil
}

func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	post.UpdatedAt = time.Now().UTC()
	return r.exec(ctx, "update post", `
UPDATE posts
SET title = ?, description = ?, price = ?, image = ?, contact = ?, category = ?, is_active = ?, updated_at = ?
WHERE id = ?`,
		post.Title,
		post.Description,
		post.Price,
		post.Image,
		post.Contact,
		post.Category,
		post.IsActive,
		post.UpdatedAt,
		post.ID,
	)
}

func (r *PostRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.exec(ctx, "set post active", `UPDATE posts SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id)
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, "delete post", `DELETE FROM posts WHERE id = ?`, id)
}

func (r *PostRepository) Get(ctx context.Context, id int64) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, selectPost+`
WHERE id = ?`, id)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

// List returns posts newest first. Ties on created_at fall back to id so
// posts inserted within the same clock tick keep insertion order.
func (r *PostRepository) List(ctx context.Context, includeInactive bool) ([]domain.Post, error) {
	query := selectPost
	if !includeInactive {
		query += `
WHERE is_active = 1`
	}
	query += `
ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func (r *PostRepository) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanPost(row rowScanner) (*domain.Post, error) {
	var post domain.Post
	if err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Description,
		&post.Price,
		&post.Image,
		&post.Contact,
		&post.Category,
		&post.IsActive,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return &post, nil
}
