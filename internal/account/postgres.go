package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// PostgresRepository implements Repository on PostgreSQL. Roles live in the
// user_roles join table and are aggregated into an array on read.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `u.id, u.username, u.password_hash, u.name, u.email, u.is_active, u.is_superuser,
	COALESCE(array_agg(ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}'),
	u.created_at, u.last_login`

const userFrom = ` FROM users u LEFT JOIN user_roles ur ON ur.user_id = u.id`

// Create stores a new user and assigns its ID.
func (r *PostgresRepository) Create(ctx context.Context, user *User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, name, email, is_active, is_superuser, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at`,
		user.Username, user.PasswordHash, user.Name, user.Email, user.Active, user.Superuser,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert user: %w", err)
	}

	if err := insertRoles(ctx, tx, user.ID, user.Roles); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByID returns the user with the given ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getOne(ctx, "u.id = $1", id)
}

// GetByUsername returns the user with the given username.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, "u.username = $1", username)
}

func (r *PostgresRepository) getOne(ctx context.Context, cond string, arg any) (*User, error) {
	query := "SELECT " + userColumns + userFrom + " WHERE " + cond + " GROUP BY u.id"
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Update replaces the stored user identified by user.ID, roles included.
func (r *PostgresRepository) Update(ctx context.Context, user *User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET username = $1, password_hash = $2, name = $3, email = $4, is_active = $5, is_superuser = $6
		WHERE id = $7`,
		user.Username, user.PasswordHash, user.Name, user.Email, user.Active, user.Superuser, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id = $1", user.ID); err != nil {
		return fmt.Errorf("clear roles: %w", err)
	}
	if err := insertRoles(ctx, tx, user.ID, user.Roles); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Delete removes the user with the given ID. Role rows cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the users matching the filter plus the total match count
// before pagination.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]*User, int, error) {
	where, args := buildUserWhere(filter)

	var total int
	countQuery := "SELECT COUNT(DISTINCT u.id)" + userFrom + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := "SELECT " + userColumns + userFrom + where + " GROUP BY u.id" + userOrderClause(filter.Ordering)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PageSize, (page-1)*filter.PageSize)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}
	return users, total, nil
}

// Count returns the total number of users.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// TouchLastLogin stamps the user's last login time.
func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET last_login = $1 WHERE id = $2", at, id)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func insertRoles(ctx context.Context, tx *sql.Tx, userID int64, roles []string) error {
	for _, role := range roles {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_roles (user_id, role) VALUES ($1, $2)", userID, role); err != nil {
			return fmt.Errorf("insert role: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u         User
		roles     pq.StringArray
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Email,
		&u.Active, &u.Superuser, &roles, &u.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	u.Roles = []string(roles)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// buildUserWhere translates the filter into a WHERE clause with positional
// args. The role constraint uses a subquery so the outer join stays intact
// for aggregation.
func buildUserWhere(filter Filter) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UsernameContains != "" {
		conds = append(conds, "u.username ILIKE "+arg("%"+filter.UsernameContains+"%"))
	}
	if filter.NameContains != "" {
		conds = append(conds, "u.name ILIKE "+arg("%"+filter.NameContains+"%"))
	}
	if filter.EmailContains != "" {
		conds = append(conds, "u.email ILIKE "+arg("%"+filter.EmailContains+"%"))
	}
	if filter.Active != nil {
		conds = append(conds, "u.is_active = "+arg(*filter.Active))
	}
	if filter.Role != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM user_roles x WHERE x.user_id = u.id AND x.role = "+arg(filter.Role)+")")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// userOrderClause maps the requested ordering to SQL against the allow-list.
func userOrderClause(ordering string) string {
	field := strings.TrimPrefix(ordering, "-")
	if !OrderingFields[field] {
		return " ORDER BY u.id ASC"
	}

	col := map[string]string{
		"id":         "u.id",
		"user_id":    "u.username",
		"name":       "u.name",
		"email":      "u.email",
		"status":     "u.is_active",
		"permission": "(CASE WHEN u.is_superuser THEN 2 WHEN bool_or(ur.role = '관리자') THEN 1 ELSE 0 END)",
		"created_at": "u.created_at",
		"last_login": "u.last_login",
	}[field]

	dir := " ASC"
	if strings.HasPrefix(ordering, "-") {
		dir = " DESC"
	}
	return " ORDER BY " + col + dir
}
