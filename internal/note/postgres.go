package note

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

// Create stores a new record, assigning its ID and date server-side.
func (r *PostgresRepository) Create(ctx context.Context, rec *Note) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO note (owner, title, note, date)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, date`,
		rec.Owner, rec.Title, rec.Note,
	).Scan(&rec.ID, &rec.Date)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// GetByID returns the owner's record with the given ID.
func (r *PostgresRepository) GetByID(ctx context.Context, owner string, id int64) (*Note, error) {
	var rec Note
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner, title, note, date FROM note WHERE owner = $1 AND id = $2`,
		owner, id,
	).Scan(&rec.ID, &rec.Owner, &rec.Title, &rec.Note, &rec.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return &rec, nil
}

// Update replaces the owner's record identified by rec.ID. The original
// date is kept.
func (r *PostgresRepository) Update(ctx context.Context, rec *Note) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE note SET title = $1, note = $2 WHERE owner = $3 AND id = $4`,
		rec.Title, rec.Note, rec.Owner, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the owner's record with the given ID.
func (r *PostgresRepository) Delete(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM note WHERE owner = $1 AND id = $2", owner, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the owner's records matching the filter plus the total match
// count before pagination.
func (r *PostgresRepository) List(ctx context.Context, owner string, filter Filter) ([]*Note, int, error) {
	where, args := buildWhere(owner, filter)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM note"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}

	query := "SELECT id, owner, title, note, date FROM note" + where + orderClause(filter.Ordering)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PageSize, (page-1)*filter.PageSize)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var recs []*Note
	for rows.Next() {
		var rec Note
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.Title, &rec.Note, &rec.Date); err != nil {
			return nil, 0, fmt.Errorf("scan note: %w", err)
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notes: %w", err)
	}
	return recs, total, nil
}

// Count returns the number of records the owner holds.
func (r *PostgresRepository) Count(ctx context.Context, owner string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM note WHERE owner = $1", owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
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
	if filter.Note != "" {
		conds = append(conds, "note = "+arg(filter.Note))
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
