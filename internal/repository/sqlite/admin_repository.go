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

// The singleton column can only ever hold 1 and is unique, so the table
// accepts at most one row no matter how many writers race on an empty store.
const createAdminsTable = `
CREATE TABLE IF NOT EXISTS admins (
	id TEXT PRIMARY KEY,
	singleton INTEGER NOT NULL DEFAULT 1 UNIQUE CHECK (singleton = 1),
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_setup BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const selectAdmin = `
SELECT id, username, password_hash, is_setup, created_at, updated_at
FROM admins`

type AdminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) repository.AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAdminsTable); err != nil {
		return fmt.Errorf("create admins table: %w", err)
	}
	return nil
}

func (r *AdminRepository) FindSingleton(ctx context.Context) (*domain.Admin, error) {
	return scanAdmin(r.db.QueryRowContext(ctx, selectAdmin+` LIMIT 1`))
}

// FindByUsername matches the username exactly; sqlite's default BINARY
// collation keeps the comparison case-sensitive.
func (r *AdminRepository) FindByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	return scanAdmin(r.db.QueryRowContext(ctx, selectAdmin+`
WHERE username = ?`, username))
}

func (r *AdminRepository) FindByID(ctx context.Context, id string) (*domain.Admin, error) {
	return scanAdmin(r.db.QueryRowContext(ctx, selectAdmin+`
WHERE id = ?`, id))
}

func (r *AdminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	now := time.Now().UTC()
	admin.CreatedAt = now
	admin.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO admins (id, username, password_hash, is_setup, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		admin.ID,
		admin.Username,
		admin.PasswordHash,
		admin.IsSetup,
		admin.CreatedAt,
		admin.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert admin: %w", repository.ErrAlreadyExists)
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (r *AdminRepository) Save(ctx context.Context, admin *domain.Admin) error {
	admin.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
UPDATE admins
SET username = ?, password_hash = ?, is_setup = ?, updated_at = ?
WHERE id = ?`,
		admin.Username,
		admin.PasswordHash,
		admin.IsSetup,
		admin.UpdatedAt,
		admin.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update admin: %w", repository.ErrAlreadyExists)
		}
		return fmt.Errorf("update admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update admin rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanAdmin(row rowScanner) (*domain.Admin, error) {
	var admin domain.Admin
	if err := row.Scan(
		&admin.ID,
		&admin.Username,
		&admin.PasswordHash,
		&admin.IsSetup,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan admin: %w", err)
	}
	return &admin, nil
}
