package bankaccount

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
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
func (r *PostgresRepository) Create(ctx context.Context, rec *BankAccount) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO bank_account (owner, bank, account, account_holder, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		rec.Owner, rec.Bank, rec.Account, rec.AccountHolder, rec.Description,
	).Scan(&rec.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert bank account: %w", err)
	}
	return nil
}

// GetByID returns the owner's record with the given ID.
func (r *PostgresRepository) GetByID(ctx context.Context, owner string, id int64) (*BankAccount, error) {
	var rec BankAccount
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner, bank, account, account_holder, description
		FROM bank_account WHERE owner = $1 AND id = $2`,
		owner, id,
	).Scan(&rec.ID, &rec.Owner, &rec.Bank, &rec.Account, &rec.AccountHolder, &rec.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bank account: %w", err)
	}
	return &rec, nil
}

// Update replaces the owner's record identified by rec.ID.
func (r *PostgresRepository) Update(ctx context.Context, rec *BankAccount) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bank_account
		SET bank = $1, account = $2, account_holder = $3, description = $4
		WHERE owner = $5 AND id = $6`,
		rec.Bank, rec.Account, rec.AccountHolder, rec.Description, rec.Owner, rec.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update bank account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the owner's record with the given ID.
func (r *PostgresRepository) Delete(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM bank_account WHERE owner = $1 AND id = $2", owner, id)
	if err != nil {
		return fmt.Errorf("delete bank account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the owner's records matching the filter plus the total match
// count before pagination.
func (r *PostgresRepository) List(ctx context.Context, owner string, filter Filter) ([]*BankAccount, int, error) {
	where, args := buildWhere(owner, filter)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bank_account"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bank accounts: %w", err)
	}

	query := "SELECT id, owner, bank, account, account_holder, description FROM bank_account" +
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
		return nil, 0, fmt.Errorf("query bank accounts: %w", err)
	}
	defer rows.Close()

	var recs []*BankAccount
	for rows.Next() {
		var rec BankAccount
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.Bank, &rec.Account, &rec.AccountHolder, &rec.Description); err != nil {
			return nil, 0, fmt.Errorf("scan bank account: %w", err)
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate bank accounts: %w", err)
	}
	return recs, total, nil
}

// Count returns the number of records the owner holds.
func (r *PostgresRepository) Count(ctx context.Context, owner string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bank_account WHERE owner = $1", owner).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bank accounts: %w", err)
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

	if filter.BankContains != "" {
		conds = append(conds, "bank ILIKE "+arg("%"+filter.BankContains+"%"))
	}
	if filter.HolderContains != "" {
		conds = append(conds, "account_holder ILIKE "+arg("%"+filter.HolderContains+"%"))
	}
	if filter.Account != "" {
		conds = append(conds, "account = "+arg(filter.Account))
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

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
