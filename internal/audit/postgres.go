package audit

import (
	"context"
	"database/sql"
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

// Insert appends an entry, assigning its ID and timestamp server-side.
func (r *PostgresRepository) Insert(ctx context.Context, entry Entry) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO audit_log (actor, ip, category, sub_category, action, result, date)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id`,
		entry.Actor, ipArg(entry.IP), entry.Category, entry.SubCategory, entry.Action, int(entry.Result),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert audit entry: %w", err)
	}
	return id, nil
}

// ipArg converts the optional IP to a nullable int64 column value.
// uint32 does not fit the driver's int64 mapping directly when nil.
func ipArg(ip *uint32) any {
	if ip == nil {
		return nil
	}
	return int64(*ip)
}

// List returns the entries matching the filter plus the total match count
// before pagination.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Entry, int, error) {
	where, args := buildWhere(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM audit_log" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	query := "SELECT id, actor, ip, category, sub_category, action, result, date FROM audit_log" +
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
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e      Entry
			actor  sql.NullString
			ip     sql.NullInt64
			result int
		)
		if err := rows.Scan(&e.ID, &actor, &ip, &e.Category, &e.SubCategory, &e.Action, &result, &e.Date); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		if actor.Valid {
			e.Actor = &actor.String
		}
		if ip.Valid {
			n := uint32(ip.Int64)
			e.IP = &n
		}
		e.Result = Result(result)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, total, nil
}

// Count returns the total number of entries in the trail.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log").Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return n, nil
}

// buildWhere translates the filter into a WHERE clause with positional args.
func buildWhere(filter Filter) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserContains != "" {
		conds = append(conds, "actor ILIKE "+arg("%"+filter.UserContains+"%"))
	}
	if filter.IP != "" {
		if start, end, ok := CIDRRange(filter.IP); ok {
			conds = append(conds, "ip >= "+arg(int64(start)), "ip <= "+arg(int64(end)))
		} else {
			// Unparsable expression matches nothing rather than everything.
			conds = append(conds, "FALSE")
		}
	}
	if filter.Category != "" {
		conds = append(conds, "category = "+arg(filter.Category))
	}
	if filter.SubCategory != "" {
		conds = append(conds, "sub_category = "+arg(filter.SubCategory))
	}
	if filter.ActionContains != "" {
		conds = append(conds, "action ILIKE "+arg("%"+filter.ActionContains+"%"))
	}
	if filter.Result != nil {
		conds = append(conds, "result = "+arg(int(*filter.Result)))
	}
	if filter.StartDate != nil {
		conds = append(conds, "date >= "+arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		conds = append(conds, "date <= "+arg(*filter.EndDate))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// orderClause maps the requested ordering to a SQL ORDER BY against the
// allow-list. Unknown fields fall back to id ascending.
func orderClause(ordering string) string {
	field := strings.TrimPrefix(ordering, "-")
	if !OrderingFields[field] {
		return " ORDER BY id ASC"
	}
	col := field
	if field == "user" {
		col = "actor"
	}
	if strings.HasPrefix(ordering, "-") {
		return " ORDER BY " + col + " DESC"
	}
	return " ORDER BY " + col + " ASC"
}
