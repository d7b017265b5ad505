// internal/repository/postgres/account_repo.go
package postgres

import (
	"context"
	"errors"

	"pillflow-service/internal/domain/account"
	xerrors "pillflow-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account. A duplicate email returns ErrDuplicateEntry.
func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	query := `
		INSERT INTO accounts (id, email, full_name, password_hash, status)
		VALUES ($1, LOWER($2), $3, $4, $5)
		RETURNING email, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, a.ID, a.Email, a.FullName, a.PasswordHash, a.Status).
		Scan(&a.Email, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return xerrors.ErrDuplicateEntry
		}
		return xerrors.NewPersistenceError("failed to create account", err)
	}

	return nil
}

// FindByEmail retrieves an account by email, case-insensitively
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	query := `
		SELECT id, email, full_name, password_hash, status, created_at, updated_at
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`
	return r.findOne(ctx, query, email)
}

// FindByID retrieves an account by ID
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*account.Account, error) {
	query := `
		SELECT id, email, full_name, password_hash, status, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	return r.findOne(ctx, query, id)
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg string) (*account.Account, error) {
	var a account.Account
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.FullName, &a.PasswordHash, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, xerrors.NewPersistenceError("failed to find account", err)
	}

	return &a, nil
}
