package guestbook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PostgresRepository implements Repository on PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create stores a new record and assigns its ID.
func (r *PostgresRepository) Create(ctx context.Context, rec *GuestBook) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO guest_book (owner, name, amount, date, area, attend, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		rec.Owner, rec.Name, rec.Amount, rec.Date, rec.Area, rec.Attend, rec.Description,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert guest book entry: %w", err)
	}
	return nil
}

// GetByID returns the owner's record with the given ID.
func (r *PostgresRepository) GetByID(ctx context.Context, owner string, id int64) (*GuestBook, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner, name, amount, date, area, attend, description
		FROM guest_book WHERE owner = $1 AND id = $2`,
		owner, id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get guest book entry: %w", err)
	}
	return rec, nil
}

// Update replaces the owner's record identified by rec.ID.
func (r *PostgresRepository) Update(ctx context.Context, rec *GuestBook) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE guest_book
		SET name = $1, amount = $2, date = $3, area = $4, attend = $5, description = $6
		WHERE owner = $7 AND id = $8`,
		rec.Name, rec.Amount, rec.Date, rec.Area, rec.Attend, rec.Description, rec.Owner, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update guest book entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the owner's record with the given ID.
func (r *PostgresRepository) Delete(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM guest_book WHERE owner = $1 AND id = $2", owner, id)
	if err != nil {
		return fmt.Errorf("delete guest book entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the owner's records matching the filter plus the total match
// count before pagination.
func (r *PostgresRepository) List(ctx context.Context, owner string, filter Filter) ([]*GuestBook, int, error) {
	where, args := buildWhere(owner, filter)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM guest_book"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count guest book entries: %w", err)
	}

	query := "SELECT id, owner, name, amount, date, area, attend, description FROM guest_book" +
		where + orderClause(filter.Ordering)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PageSize, (page-1)*filter.PageSize)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query guest book entries: %w", err)
	}
	defer rows.Close()

	var recs []*GuestBook
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan guest book entry: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate guest book entries: %w", err)
	}
	return recs, total, nil
}

// Count returns the number of records the owner holds.
func (r *PostgresRepository) Count(ctx context.Context, owner string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM guest_book WHERE owner = $1", owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("count guest book entries: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*GuestBook, error) {
	var (
		rec    GuestBook
		amount sql.NullInt64
		date   sql.NullTime
	)
	err := row.Scan(&rec.ID, &rec.Owner, &rec.Name, &amount, &date, &rec.Area, &rec.Attend, &rec.Description)
	if err != nil {
		return nil, err
	}
	if amount.Valid {
		v := amount.Int64
		rec.Amount = &v
	}
	if date.Valid {
		t := date.Time
		rec.Date = &t
	}
	return &rec, nil
}

func buildWhere(owner string, filter Filter) (string, []any) {
	conds := []string{"owner = $1"}
	args := []any{owner}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.NameContains != "" {
		conds = append(conds, "name ILIKE "+arg("%"+filter.NameContains+"%"))
	}
	if filter.AreaContains != "" {
		conds = append(conds, "area ILIKE "+arg("%"+filter.AreaContains+"%"))
	}
	if filter.DescriptionContains != "" {
		conds = append(conds, "description ILIKE "+arg("%"+filter.DescriptionContains+"%"))
	}
	if filter.StartDate != nil {
		conds = append(conds, "date >= "+arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		conds = append(conds, "date <= "+arg(*filter.EndDate))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(ordering string) string {
	field := strings.TrimPrefix(ordering, "-")
	if !OrderingFields[field] {
		return " ORDER BY id ASC"
	}
	if strings.HasPrefix(ordering, "-") {
		return " ORDER BY " + field + " DESC"
	}
	return " ORDER BY " + field + " ASC"
}
