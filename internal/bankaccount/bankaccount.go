// Package bankaccount stores bank account records. The account number and
// description columns hold ciphertext; encryption and decryption happen at
// the handler layer so the repository only ever sees opaque strings.
package bankaccount

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// Repository errors.
var (
	ErrNotFound  = errors.New("bank account not found")
	ErrDuplicate = errors.New("bank account already exists")
)

// BankAccount is one stored record. Owner is the username of the creator and
// is never taken from client input.
type BankAccount struct {
	ID            int64
	Owner         string
	Bank          string
	Account       string // ciphertext
	AccountHolder string
	Description   string // ciphertext
}

// Filter narrows and orders queries. Exact matchers compare ciphertext, so
// callers filtering encrypted columns must encrypt the probe value first.
type Filter struct {
	BankContains   string
	HolderContains string
	Account        string
	Description    string

	Ordering string
	Page     int
	PageSize int
}

// OrderingFields is the allow-list of sortable fields.
var OrderingFields = map[string]bool{
	"id":             true,
	"bank":           true,
	"account_holder": true,
}

// Repository defines storage operations for bank account records. All reads
// and writes except Create are scoped to an owner.
type Repository interface {
	// Create stores a new record and assigns its ID. Returns ErrDuplicate
	// when a record with the same bank and account already exists.
	Create(ctx context.Context, rec *BankAccount) error

	// GetByID returns the owner's record with the given ID or ErrNotFound.
	GetByID(ctx context.Context, owner string, id int64) (*BankAccount, error)

	// Update replaces the owner's record identified by rec.ID.
	Update(ctx context.Context, rec *BankAccount) error

	// Delete removes the owner's record with the given ID or ErrNotFound.
	Delete(ctx context.Context, owner string, id int64) error

	// List returns the owner's records matching the filter plus the total
	// match count before pagination.
	List(ctx context.Context, owner string, filter Filter) ([]*BankAccount, int, error)

	// Count returns the number of records the owner holds.
	Count(ctx context.Context, owner string) (int, error)
}

// containsFold matches the case-insensitive ILIKE semantics of the Postgres
// implementation.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (f Filter) matches(rec *BankAccount) bool {
	if f.BankContains != "" && !containsFold(rec.Bank, f.BankContains) {
		return false
	}
	if f.HolderContains != "" && !containsFold(rec.AccountHolder, f.HolderContains) {
		return false
	}
	if f.Account != "" && rec.Account != f.Account {
		return false
	}
	if f.Description != "" && rec.Description != f.Description {
		return false
	}
	return true
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	recs   map[int64]*BankAccount
	nextID int64
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{recs: make(map[int64]*BankAccount), nextID: 1}
}

// Create stores a new record and assigns its ID.
func (r *InMemoryRepository) Create(ctx context.Context, rec *BankAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.recs {
		if existing.Bank == rec.Bank && existing.Account == rec.Account {
			return ErrDuplicate
		}
	}

	rec.ID = r.nextID
	r.nextID++
	c := *rec
	r.recs[rec.ID] = &c
	return nil
}

// GetByID returns the owner's record with the given ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, owner string, id int64) (*BankAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.recs[id]
	if !ok || rec.Owner != owner {
		return nil, ErrNotFound
	}
	c := *rec
	return &c, nil
}

// Update replaces the owner's record identified by rec.ID.
func (r *InMemoryRepository) Update(ctx context.Context, rec *BankAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.recs[rec.ID]
	if !ok || stored.Owner != rec.Owner {
		return ErrNotFound
	}
	for _, existing := range r.recs {
		if existing.ID != rec.ID && existing.Bank == rec.Bank && existing.Account == rec.Account {
			return ErrDuplicate
		}
	}
	c := *rec
	r.recs[rec.ID] = &c
	return nil
}

// Delete removes the owner's record with the given ID.
func (r *InMemoryRepository) Delete(ctx context.Context, owner string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.recs[id]
	if !ok || rec.Owner != owner {
		return ErrNotFound
	}
	delete(r.recs, id)
	return nil
}

// List returns the owner's records matching the filter plus the total match
// count.
func (r *InMemoryRepository) List(ctx context.Context, owner string, filter Filter) ([]*BankAccount, int, error) {
	r.mu.RLock()
	var matched []*BankAccount
	for _, rec := range r.recs {
		if rec.Owner == owner && filter.matches(rec) {
			c := *rec
			matched = append(matched, &c)
		}
	}
	r.mu.RUnlock()

	sortRecords(matched, filter.Ordering)

	total := len(matched)
	matched = paginate(matched, filter.Page, filter.PageSize)
	return matched, total, nil
}

// Count returns the number of records the owner holds.
func (r *InMemoryRepository) Count(ctx context.Context, owner string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, rec := range r.recs {
		if rec.Owner == owner {
			n++
		}
	}
	return n, nil
}

func sortRecords(recs []*BankAccount, ordering string) {
	field := strings.TrimPrefix(ordering, "-")
	desc := strings.HasPrefix(ordering, "-")
	if !OrderingFields[field] {
		field, desc = "id", false
	}

	less := func(a, b *BankAccount) bool {
		switch field {
		case "bank":
			return a.Bank < b.Bank
		case "account_holder":
			return a.AccountHolder < b.AccountHolder
		default:
			return a.ID < b.ID
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if desc {
			return less(recs[j], recs[i])
		}
		return less(recs[i], recs[j])
	})
}

func paginate(recs []*BankAccount, page, pageSize int) []*BankAccount {
	if pageSize <= 0 {
		return recs
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(recs) {
		return nil
	}
	end := start + pageSize
	if end > len(recs) {
		end = len(recs)
	}
	return recs[start:end]
}
