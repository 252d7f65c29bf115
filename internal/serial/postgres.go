package serial

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
func (r *PostgresRepository) Create(ctx context.Context, rec *Serial) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO serial (owner, type, title, value, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		rec.Owner, rec.Type, rec.Title, rec.Value, rec.Description,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert serial: %w", err)
	}
	return nil
}

// GetByID returns the owner's record with the given ID.
func (r *PostgresRepository) GetByID(ctx context.Context, owner string, id int64) (*Serial, error) {
	var rec Serial
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner, type, title, value, description
		FROM serial WHERE owner = $1 AND id = $2`,
		owner, id,
	).Scan(&rec.ID, &rec.Owner, &rec.Type, &rec.Title, &rec.Value, &rec.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get serial: %w", err)
	}
	return &rec, nil
}

// Update replaces the owner's record identified by rec.ID.
func (r *PostgresRepository) Update(ctx context.Context, rec *Serial) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE serial SET type = $1, title = $2, value = $3, description = $4
		WHERE owner = $5 AND id = $6`,
		rec.Type, rec.Title, rec.Value, rec.Description, rec.Owner, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update serial: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the owner's record with the given ID.
func (r *PostgresRepository) Delete(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM serial WHERE owner = $1 AND id = $2", owner, id)
	if err != nil {
		return fmt.Errorf("delete serial: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the owner's records matching the filter plus the total match
// count before pagination.
func (r *PostgresRepository) List(ctx context.Context, owner string, filter Filter) ([]*Serial, int, error) {
	where, args := buildWhere(owner, filter)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM serial"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count serials: %w", err)
	}

	query := "SELECT id, owner, type, title, value, description FROM serial" +
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
		return nil, 0, fmt.Errorf("query serials: %w", err)
	}
	defer rows.Close()

	var recs []*Serial
	for rows.Next() {
		var rec Serial
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.Type, &rec.Title, &rec.Value, &rec.Description); err != nil {
			return nil, 0, fmt.Errorf("scan serial: %w", err)
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate serials: %w", err)
	}
	return recs, total, nil
}

// Count returns the number of records the owner holds.
func (r *PostgresRepository) Count(ctx context.Context, owner string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM serial WHERE owner = $1", owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("count serials: %w", err)
	}
	return n, nil
}

func buildWhere(owner string, filter Filter) (string, []any) {
	conds := []string{"owner = $1"}
	args := []any{owner}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.TitleContains != "" {
		conds = append(conds, "title ILIKE "+arg("%"+filter.TitleContains+"%"))
	}
	if filter.Value != "" {
		conds = append(conds, "value = "+arg(filter.Value))
	}
	if filter.Description != "" {
		conds = append(conds, "description = "+arg(filter.Description))
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
