// internal/repository/postgres/customer_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pillflow-service/internal/domain/customer"
	xerrors "pillflow-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const customerColumns = `id, owner_id, full_name, email, phone, address, avatar_url, status, created_at, updated_at`

type CustomerRepository struct {
	db *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func scanCustomer(row pgx.Row, c *customer.Customer) error {
	return row.Scan(
		&c.ID, &c.AccountID, &c.FullName, &c.Email, &c.Phone, &c.Address,
		&c.AvatarURL, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
}

// Create creates a new customer
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	query := `
		INSERT INTO customers (
			id, owner_id, full_name, email, phone, address, avatar_url, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		c.ID, c.AccountID, c.FullName, c.Email, c.Phone, c.Address, c.AvatarURL, c.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return xerrors.NewPersistenceError("failed to create customer", err)
	}

	return nil
}

// FindByID retrieves a customer by ID regardless of owner. Callers check
// ownership so a foreign id surfaces as an authorization failure.
func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*customer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	var c customer.Customer
	err := scanCustomer(r.db.QueryRow(ctx, query, id), &c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, xerrors.NewPersistenceError("failed to find customer", err)
	}

	return &c, nil
}

// Update updates a customer's profile fields
func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) error {
	query := `
		UPDATE customers
		SET full_name = $1, email = $2, phone = $3, address = $4, avatar_url = $5, updated_at = $6
		WHERE id = $7 AND owner_id = $8
	`

	result, err := r.db.Exec(
		ctx, query,
		c.FullName, c.Email, c.Phone, c.Address, c.AvatarURL, time.Now(), c.ID, c.AccountID,
	)
	if err != nil {
		return xerrors.NewPersistenceError("failed to update customer", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// UpdateStatus switches a customer between active and inactive
func (r *CustomerRepository) UpdateStatus(ctx context.Context, accountID, id, status string) error {
	query := `UPDATE customers SET status = $1, updated_at = $2 WHERE id = $3 AND owner_id = $4`

	result, err := r.db.Exec(ctx, query, status, time.Now(), id, accountID)
	if err != nil {
		return xerrors.NewPersistenceError("failed to update status", err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// List retrieves an account's customers with filters
func (r *CustomerRepository) List(ctx context.Context, accountID string, filters *customer.CustomerListFilters) ([]customer.Customer, int64, error) {
	conditions := []string{"owner_id = $1"}
	args := []interface{}{accountID}
	argPos := 2

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("COALESCE(status, 'active') = $%d", argPos))
		args = append(args, filters.Status)
		argPos++
	}

	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(full_name ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d)",
			argPos, argPos, argPos,
		))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM customers WHERE %s", whereClause)
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, xerrors.NewPersistenceError("failed to count customers", err)
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	offset := (filters.Page - 1) * filters.PageSize

	// sort_by is restricted by the request binding
	sortBy := "full_name"
	if filters.SortBy != "" {
		sortBy = filters.SortBy
	}
	sortOrder := "ASC"
	if strings.EqualFold(filters.SortOrder, "desc") {
		sortOrder = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM customers
		WHERE %s
		ORDER BY %s %s, id
		LIMIT $%d OFFSET $%d
	`, customerColumns, whereClause, sortBy, sortOrder, argPos, argPos+1)

	args = append(args, filters.PageSize, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, xerrors.NewPersistenceError("failed to list customers", err)
	}
	defer rows.Close()

	customers := []customer.Customer{}
	for rows.Next() {
		var c customer.Customer
		if err := scanCustomer(rows, &c); err != nil {
			return nil, 0, xerrors.NewPersistenceError("failed to scan customer", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, xerrors.NewPersistenceError("failed to list customers", err)
	}

	return customers, total, nil
}

// OwnersOf maps each known customer id to its owning account. Unknown ids
// are absent from the result.
func (r *CustomerRepository) OwnersOf(ctx context.Context, ids []string) (map[string]string, error) {
	owners := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return owners, nil
	}

	rows, err := r.db.Query(ctx, `SELECT id, owner_id FROM customers WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, xerrors.NewPersistenceError("failed to resolve customer owners", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, owner string
		if err := rows.Scan(&id, &owner); err != nil {
			return nil, xerrors.NewPersistenceError("failed to scan customer owner", err)
		}
		owners[id] = owner
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.NewPersistenceError("failed to resolve customer owners", err)
	}

	return owners, nil
}

// GetStats retrieves customer statistics for an account
func (r *CustomerRepository) GetStats(ctx context.Context, accountID string) (*customer.CustomerStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN COALESCE(status, 'active') = 'active' THEN 1 END) AS active,
			COUNT(CASE WHEN status = 'inactive' THEN 1 END) AS inactive,
			COUNT(CASE WHEN created_at >= date_trunc('month', NOW()) THEN 1 END) AS new_this_month
		FROM customers
		WHERE owner_id = $1
	`

	var stats customer.CustomerStats
	err := r.db.QueryRow(ctx, query, accountID).Scan(
		&stats.TotalCustomers,
		&stats.ActiveCustomers,
		&stats.InactiveCustomers,
		&stats.NewThisMonth,
	)
	if err != nil {
		return nil, xerrors.NewPersistenceError("failed to get customer stats", err)
	}

	return &stats, nil
}
