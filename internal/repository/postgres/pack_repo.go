// internal/repository/postgres/pack_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pillflow-service/internal/domain/pack"
	xerrors "pillflow-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const packColumns = `id, owner_id, pack_name, customer_id, status, last_collection_date, next_collection_date, created_at, updated_at`

type PackRepository struct {
	db *pgxpool.Pool
}

func NewPackRepository(db *pgxpool.Pool) *PackRepository {
	return &PackRepository{db: db}
}

func scanPack(row pgx.Row, p *pack.Pack) error {
	return row.Scan(
		&p.ID, &p.AccountID, &p.PackName, &p.CustomerID, &p.Status,
		&p.LastCollectionDate, &p.NextCollectionDate, &p.CreatedAt, &p.UpdatedAt,
	)
}

// Create inserts a new pack definition
func (r *PackRepository) Create(ctx context.Context, p *pack.Pack) error {
	query := `
		INSERT INTO webster_packs (id, owner_id, pack_name, customer_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, p.ID, p.AccountID, p.PackName, p.CustomerID, p.Status).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return xerrors.NewPersistenceError("failed to create pack", err)
	}

	return nil
}

// FindByID retrieves a pack by ID regardless of owner
func (r *PackRepository) FindByID(ctx context.Context, id string) (*pack.Pack, error) {
	query := `SELECT ` + packColumns + ` FROM webster_packs WHERE id = $1`

	var p pack.Pack
	err := scanPack(r.db.QueryRow(ctx, query, id), &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, xerrors.NewPersistenceError("failed to find pack", err)
	}

	return &p, nil
}

// FindByCode resolves a scanned code to one of the account's packs. A code
// matches a pack id exactly or a pack name case-insensitively; id matches win.
func (r *PackRepository) FindByCode(ctx context.Context, accountID, code string) (*pack.Pack, error) {
	query := `
		SELECT ` + packColumns + `
		FROM webster_packs
		WHERE owner_id = $1 AND (id = $2 OR LOWER(pack_name) = LOWER($2))
		ORDER BY (id = $2) DESC, created_at
		LIMIT 1
	`

	var p pack.Pack
	err := scanPack(r.db.QueryRow(ctx, query, accountID, code), &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, xerrors.NewPersistenceError("failed to resolve pack code", err)
	}

	return &p, nil
}

// Update rewrites the editable fields of a pack
func (r *PackRepository) Update(ctx context.Context, p *pack.Pack) error {
	query := `
		UPDATE webster_packs
		SET pack_name = $1, customer_id = $2, status = $3, updated_at = $4
		WHERE id = $5 AND owner_id = $6
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query, p.PackName, p.CustomerID, p.Status, time.Now(), p.ID, p.AccountID).
		Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return xerrors.ErrNotFound
	}
	if err != nil {
		return xerrors.NewPersistenceError("failed to update pack", err)
	}

	return nil
}

// UpdateSchedule stores the projected schedule on the pack. Nil values clear
// the columns.
func (r *PackRepository) UpdateSchedule(ctx context.Context, accountID, id string, last, next *time.Time) error {
	query := `
		UPDATE webster_packs
		SET last_collection_date = $1, next_collection_date = $2, updated_at = $3
		WHERE id = $4 AND owner_id = $5
	`

	result, err := r.db.Exec(ctx, query, last, next, time.Now(), id, accountID)
	if err != nil {
		return xerrors.NewPersistenceError("failed to update pack schedule", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// List retrieves an account's packs with filters
func (r *PackRepository) List(ctx context.Context, accountID string, filters *pack.PackListFilters) ([]pack.Pack, int64, error) {
	conditions := []string{"owner_id = $1"}
	args := []interface{}{accountID}
	argPos := 2

	if filters.CustomerID != "" {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argPos))
		args = append(args, filters.CustomerID)
		argPos++
	}

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filters.Status)
		argPos++
	}

	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("pack_name ILIKE $%d", argPos))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM webster_packs WHERE %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, xerrors.NewPersistenceError("failed to count packs", err)
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	offset := (filters.Page - 1) * filters.PageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM webster_packs
		WHERE %s
		ORDER BY pack_name, id
		LIMIT $%d OFFSET $%d
	`, packColumns, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, xerrors.NewPersistenceError("failed to list packs", err)
	}
	defer rows.Close()

	packs := []pack.Pack{}
	for rows.Next() {
		var p pack.Pack
		if err := scanPack(rows, &p); err != nil {
			return nil, 0, xerrors.NewPersistenceError("failed to scan pack", err)
		}
		packs = append(packs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, xerrors.NewPersistenceError("failed to list packs", err)
	}

	return packs, total, nil
}

// ListDue returns active packs whose next collection falls in [from, to],
// earliest first, with the customer's name attached.
func (r *PackRepository) ListDue(ctx context.Context, accountID string, from, to time.Time) ([]pack.DuePack, error) {
	query := `
		SELECT p.id, p.owner_id, p.pack_name, p.customer_id, p.status,
		       p.last_collection_date, p.next_collection_date, p.created_at, p.updated_at,
		       c.full_name
		FROM webster_packs p
		LEFT JOIN customers c ON c.id = p.customer_id AND c.owner_id = p.owner_id
		WHERE p.owner_id = $1
		  AND p.status = 'active'
		  AND p.next_collection_date >= $2
		  AND p.next_collection_date <= $3
		ORDER BY p.next_collection_date, p.id
	`

	rows, err := r.db.Query(ctx, query, accountID, from, to)
	if err != nil {
		return nil, xerrors.NewPersistenceError("failed to list due packs", err)
	}
	defer rows.Close()

	due := []pack.DuePack{}
	for rows.Next() {
		var d pack.DuePack
		err := rows.Scan(
			&d.ID, &d.AccountID, &d.PackName, &d.CustomerID, &d.Status,
			&d.LastCollectionDate, &d.NextCollectionDate, &d.CreatedAt, &d.UpdatedAt,
			&d.CustomerName,
		)
		if err != nil {
			return nil, xerrors.NewPersistenceError("failed to scan due pack", err)
		}
		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.NewPersistenceError("failed to list due packs", err)
	}

	return due, nil
}

// Count returns the number of active packs of an account
func (r *PackRepository) Count(ctx context.Context, accountID string) (int, error) {
	var total int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM webster_packs WHERE owner_id = $1 AND status = 'active'`,
		accountID,
	).Scan(&total)
	if err != nil {
		return 0, xerrors.NewPersistenceError("failed to count packs", err)
	}

	return total, nil
}
