// internal/repository/postgres/event_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pillflow-service/internal/domain/event"
	"pillflow-service/internal/domain/report"
	xerrors "pillflow-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// eventTable maps an event kind onto its table. Collections and checks are
// stored apart and read back into the same shape.
type eventTable struct {
	name     string
	date     string
	operator string
	packType string
	count    string
	notes    string
}

var eventTables = map[event.Kind]eventTable{
	event.KindCollection: {
		name:     "collections",
		date:     "collection_date",
		operator: "collected_by",
		packType: "COALESCE(pack_type, '')",
		count:    "COALESCE(pack_count, 1)",
		notes:    "NULL::text",
	},
	event.KindCheck: {
		name:     "pack_checks",
		date:     "check_date",
		operator: "checked_by",
		packType: "''::text",
		count:    "0",
		notes:    "notes",
	},
}

func tableFor(kind event.Kind) (eventTable, error) {
	t, ok := eventTables[kind]
	if !ok {
		return eventTable{}, xerrors.NewValidationError("kind", fmt.Sprintf("unknown event kind %q", kind))
	}
	return t, nil
}

func (t eventTable) columns() string {
	return fmt.Sprintf(
		"id, owner_id, pack_code, pack_id, customer_id, %s, %s, %s, %s, %s, status, created_at, updated_at",
		t.date, t.operator, t.packType, t.count, t.notes,
	)
}

func scanEvent(row pgx.Row, kind event.Kind, e *event.Event) error {
	var packType string
	err := row.Scan(
		&e.ID, &e.AccountID, &e.PackCode, &e.PackID, &e.CustomerID,
		&e.OccurredAt, &e.Operator, &packType, &e.PackCount, &e.Notes,
		&e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	e.Kind = kind
	e.PackType = event.PackType(packType)
	return nil
}

type EventRepository struct {
	db *pgxpool.Pool
}

func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Insert appends an event to its kind's table
func (r *EventRepository) Insert(ctx context.Context, e *event.Event) error {
	var (
		query string
		args  []interface{}
	)

	switch e.Kind {
	case event.KindCollection:
		query = `
			INSERT INTO collections (
				id, owner_id, pack_code, pack_id, customer_id,
				collection_date, collected_by, pack_type, pack_count, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at
		`
		args = []interface{}{
			e.ID, e.AccountID, e.PackCode, e.PackID, e.CustomerID,
			e.OccurredAt, e.Operator, string(e.PackType), e.PackCount, e.Status,
		}
	case event.KindCheck:
		query = `
			INSERT INTO pack_checks (
				id, owner_id, pack_code, pack_id, customer_id,
				check_date, checked_by, notes, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at, updated_at
		`
		args = []interface{}{
			e.ID, e.AccountID, e.PackCode, e.PackID, e.CustomerID,
			e.OccurredAt, e.Operator, e.Notes, e.Status,
		}
	default:
		return xerrors.NewValidationError("kind", fmt.Sprintf("unknown event kind %q", e.Kind))
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return xerrors.NewPersistenceError(fmt.Sprintf("failed to insert %s", e.Kind), err)
	}

	return nil
}

// FindByID retrieves one event regardless of owner
func (r *EventRepository) FindByID(ctx context.Context, kind event.Kind, id string) (*event.Event, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", t.columns(), t.name)

	var e event.Event
	err = scanEvent(r.db.QueryRow(ctx, query, id), kind, &e)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, xerrors.NewPersistenceError(fmt.Sprintf("failed to find %s", kind), err)
	}

	return &e, nil
}

// UpdateStatus is the only mutation events accept
func (r *EventRepository) UpdateStatus(ctx context.Context, kind event.Kind, accountID, id, status string) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		"UPDATE %s SET status = $1, updated_at = $2 WHERE id = $3 AND owner_id = $4",
		t.name,
	)

	result, err := r.db.Exec(ctx, query, status, time.Now(), id, accountID)
	if err != nil {
		return xerrors.NewPersistenceError(fmt.Sprintf("failed to update %s status", kind), err)
	}

	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// List retrieves an account's events of one kind with filters
func (r *EventRepository) List(ctx context.Context, accountID string, filters *event.EventListFilters) ([]event.Event, int64, error) {
	kind := filters.Kind
	if kind == "" {
		kind = event.KindCollection
	}
	t, err := tableFor(kind)
	if err != nil {
		return nil, 0, err
	}

	conditions := []string{"owner_id = $1"}
	args := []interface{}{accountID}
	argPos := 2

	if filters.CustomerID != "" {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argPos))
		args = append(args, filters.CustomerID)
		argPos++
	}

	if filters.PackCode != "" {
		conditions = append(conditions, fmt.Sprintf("pack_code = $%d", argPos))
		args = append(args, filters.PackCode)
		argPos++
	}

	if filters.PackID != "" {
		conditions = append(conditions, fmt.Sprintf("pack_id = $%d", argPos))
		args = append(args, filters.PackID)
		argPos++
	}

	if len(filters.PackTypes) > 0 && kind == event.KindCollection {
		conditions = append(conditions, fmt.Sprintf("pack_type = ANY($%d)", argPos))
		args = append(args, pq.Array(filters.PackTypes))
		argPos++
	}

	if filters.From != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", t.date, argPos))
		args = append(args, *filters.From)
		argPos++
	}

	if filters.To != nil {
		conditions = append(conditions, fmt.Sprintf("%s <= $%d", t.date, argPos))
		args = append(args, *filters.To)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", t.name, whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, xerrors.NewPersistenceError(fmt.Sprintf("failed to count %s events", kind), err)
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 50
	}
	offset := (filters.Page - 1) * filters.PageSize

	sortOrder := "DESC"
	if strings.EqualFold(filters.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY %s %s, id %s
		LIMIT $%d OFFSET $%d
	`, t.columns(), t.name, whereClause, t.date, sortOrder, sortOrder, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	events, err := r.query(ctx, kind, query, args...)
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// ListRange returns the account's non-voided events of one kind with
// occurred_at in [from, to].
func (r *EventRepository) ListRange(ctx context.Context, accountID string, kind event.Kind, from, to time.Time) ([]event.Event, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1 AND status <> 'voided' AND %s >= $2 AND %s <= $3
		ORDER BY %s
	`, t.columns(), t.name, t.date, t.date, t.date)

	return r.query(ctx, kind, query, accountID, from, to)
}

// ListCollectionsByPack returns the full non-voided collection history of a
// pack, oldest first.
func (r *EventRepository) ListCollectionsByPack(ctx context.Context, accountID, packID string) ([]event.Event, error) {
	t := eventTables[event.KindCollection]

	query := fmt.Sprintf(`
		SELECT %s
		FROM collections
		WHERE owner_id = $1 AND pack_id = $2 AND status <> 'voided'
		ORDER BY collection_date
	`, t.columns())

	return r.query(ctx, event.KindCollection, query, accountID, packID)
}

// Recent merges the newest collections and checks of an account
func (r *EventRepository) Recent(ctx context.Context, accountID string, limit int) ([]event.Event, error) {
	if limit < 1 {
		limit = 10
	}

	collections := eventTables[event.KindCollection]
	checks := eventTables[event.KindCheck]

	query := fmt.Sprintf(`
		SELECT kind, %[1]s FROM (
			SELECT 'collection' AS kind, id, owner_id, pack_code, pack_id, customer_id,
			       %[2]s AS occurred_at, %[3]s AS operator, %[4]s AS pack_type, %[5]s AS pack_count,
			       %[6]s AS notes, status, created_at, updated_at
			FROM collections WHERE owner_id = $1
			UNION ALL
			SELECT 'check' AS kind, id, owner_id, pack_code, pack_id, customer_id,
			       %[7]s, %[8]s, %[9]s, %[10]s, %[11]s, status, created_at, updated_at
			FROM pack_checks WHERE owner_id = $1
		) merged
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2
	`,
		"id, owner_id, pack_code, pack_id, customer_id, occurred_at, operator, pack_type, pack_count, notes, status, created_at, updated_at",
		collections.date, collections.operator, collections.packType, collections.count, collections.notes,
		checks.date, checks.operator, checks.packType, checks.count, checks.notes,
	)

	rows, err := r.db.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, xerrors.NewPersistenceError("failed to list recent activity", err)
	}
	defer rows.Close()

	events := []event.Event{}
	for rows.Next() {
		var (
			e        event.Event
			kind     string
			packType string
		)
		err := rows.Scan(
			&kind, &e.ID, &e.AccountID, &e.PackCode, &e.PackID, &e.CustomerID,
			&e.OccurredAt, &e.Operator, &packType, &e.PackCount, &e.Notes,
			&e.Status, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, xerrors.NewPersistenceError("failed to scan recent activity", err)
		}
		e.Kind = event.Kind(kind)
		e.PackType = event.PackType(packType)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.NewPersistenceError("failed to list recent activity", err)
	}

	return events, nil
}

// CountChecks returns the number of non-voided checks with check_date in
// [from, to)
func (r *EventRepository) CountChecks(ctx context.Context, accountID string, from, to time.Time) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM pack_checks
		WHERE owner_id = $1 AND check_date >= $2 AND check_date < $3
		  AND status <> 'voided'
	`, accountID, from, to).Scan(&total)
	if err != nil {
		return 0, xerrors.NewPersistenceError("failed to count checks", err)
	}

	return total, nil
}

// CountDistinctCheckedPacks counts the packs that have at least one check.
// Unresolved codes count by their raw value.
func (r *EventRepository) CountDistinctCheckedPacks(ctx context.Context, accountID string) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT COALESCE(pack_id, pack_code)) FROM pack_checks
		WHERE owner_id = $1 AND status <> 'voided'
	`, accountID).Scan(&total)
	if err != nil {
		return 0, xerrors.NewPersistenceError("failed to count checked packs", err)
	}

	return total, nil
}

// CustomerActivity groups collections per customer, most recent first.
// Customers without collections are omitted.
func (r *EventRepository) CustomerActivity(ctx context.Context, accountID string) ([]report.CustomerActivity, error) {
	query := `
		SELECT c.id, c.full_name, COUNT(col.id), MAX(col.collection_date)
		FROM collections col
		JOIN customers c ON c.id = col.customer_id AND c.owner_id = col.owner_id
		WHERE col.owner_id = $1 AND col.status <> 'voided'
		GROUP BY c.id, c.full_name
		ORDER BY MAX(col.collection_date) DESC, c.id
	`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, xerrors.NewPersistenceError("failed to load customer activity", err)
	}
	defer rows.Close()

	activity := []report.CustomerActivity{}
	for rows.Next() {
		var a report.CustomerActivity
		if err := rows.Scan(&a.CustomerID, &a.FullName, &a.Collections, &a.LastCollectionAt); err != nil {
			return nil, xerrors.NewPersistenceError("failed to scan customer activity", err)
		}
		activity = append(activity, a)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.NewPersistenceError("failed to load customer activity", err)
	}

	return activity, nil
}

func (r *EventRepository) query(ctx context.Context, kind event.Kind, query string, args ...interface{}) ([]event.Event, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, xerrors.NewPersistenceError(fmt.Sprintf("failed to list %s events", kind), err)
	}
	defer rows.Close()

	events := []event.Event{}
	for rows.Next() {
		var e event.Event
		if err := scanEvent(rows, kind, &e); err != nil {
			return nil, xerrors.NewPersistenceError(fmt.Sprintf("failed to scan %s", kind), err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.NewPersistenceError(fmt.Sprintf("failed to list %s events", kind), err)
	}

	return events, nil
}
