// Package note stores personal notes. The note body column holds ciphertext;
// encryption and decryption happen at the handler layer.
package note

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when no record matches the owner and ID.
var ErrNotFound = errors.New("note not found")

// Note is one stored record. Owner is the username of the creator and is
// never taken from client input. Date is assigned at creation.
type Note struct {
	ID    int64
	Owner string
	Title string
	Note  string // ciphertext
	Date  time.Time
}

// Filter narrows and orders queries. The Note matcher compares ciphertext,
// so callers must encrypt the probe value first.
type Filter struct {
	TitleContains string
	Note          string
	StartDate     *time.Time
	EndDate       *time.Time

	Ordering string
	Page     int
	PageSize int
}

// OrderingFields is the allow-list of sortable fields.
var OrderingFields = map[string]bool{
	"id":    true,
	"title": true,
	"date":  true,
}

// Repository defines storage operations for notes, scoped to an owner.
type Repository interface {
	Create(ctx context.Context, rec *Note) error
	GetByID(ctx context.Context, owner string, id int64) (*Note, error)
	Update(ctx context.Context, rec *Note) error
	Delete(ctx context.Context, owner string, id int64) error
	List(ctx context.Context, owner string, filter Filter) ([]*Note, int, error)
	Count(ctx context.Context, owner string) (int, error)
}

// containsFold matches the case-insensitive ILIKE semantics of the Postgres
// implementation.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (f Filter) matches(rec *Note) bool {
	if f.TitleContains != "" && !containsFold(rec.Title, f.TitleContains) {
		return false
	}
	if f.Note != "" && rec.Note != f.Note {
		return false
	}
	if f.StartDate != nil && rec.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && rec.Date.After(*f.EndDate) {
		return false
	}
	return true
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	recs   map[int64]*Note
	nextID int64
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{recs: make(map[int64]*Note), nextID: 1}
}

// Create stores a new record, assigning its ID and date.
func (r *InMemoryRepository) Create(ctx context.Context, rec *Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.ID = r.nextID
	r.nextID++
	if rec.Date.IsZero() {
		rec.Date = time.Now().UTC()
	}
	c := *rec
	r.recs[rec.ID] = &c
	return nil
}

// GetByID returns the owner's record with the given ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, owner string, id int64) (*Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.recs[id]
	if !ok || rec.Owner != owner {
		return nil, ErrNotFound
	}
	c := *rec
	return &c, nil
}

// Update replaces the owner's record identified by rec.ID. The original
// date is kept.
func (r *InMemoryRepository) Update(ctx context.Context, rec *Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.recs[rec.ID]
	if !ok || stored.Owner != rec.Owner {
		return ErrNotFound
	}
	c := *rec
	c.Date = stored.Date
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
func (r *InMemoryRepository) List(ctx context.Context, owner string, filter Filter) ([]*Note, int, error) {
	r.mu.RLock()
	var matched []*Note
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

func sortRecords(recs []*Note, ordering string) {
	field := strings.TrimPrefix(ordering, "-")
	desc := strings.HasPrefix(ordering, "-")
	if !OrderingFields[field] {
		field, desc = "id", false
	}

	less := func(a, b *Note) bool {
		switch field {
		case "title":
			return a.Title < b.Title
		case "date":
			return a.Date.Before(b.Date)
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

func paginate(recs []*Note, page, pageSize int) []*Note {
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
