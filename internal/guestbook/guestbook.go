// Package guestbook stores wedding guest book entries: who attended, what
// they gave and where they sat. Nothing here is encrypted.
package guestbook

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when no record matches the owner and ID.
var ErrNotFound = errors.New("guest book entry not found")

// Attendance codes as stored.
const (
	AttendYes     = "Y"
	AttendNo      = "N"
	AttendUnknown = "-"
)

// AttendDisplay maps an attendance code to its display form. Unknown codes
// render as undecided.
func AttendDisplay(code string) string {
	switch code {
	case AttendYes:
		return "참석"
	case AttendNo:
		return "미참석"
	}
	return "미정"
}

// ValidAttend reports whether the code is one of Y, N or -.
func ValidAttend(code string) bool {
	return code == AttendYes || code == AttendNo || code == AttendUnknown
}

// GuestBook is one stored record. Owner is the username of the creator and
// is never taken from client input. Amount and Date are optional.
type GuestBook struct {
	ID          int64
	Owner       string
	Name        string
	Amount      *int64
	Date        *time.Time
	Area        string
	Attend      string
	Description string
}

// Filter narrows and orders queries.
type Filter struct {
	NameContains        string
	AreaContains        string
	DescriptionContains string
	StartDate           *time.Time
	EndDate             *time.Time

	Ordering string
	Page     int
	PageSize int
}

// OrderingFields is the allow-list of sortable fields.
var OrderingFields = map[string]bool{
	"id":          true,
	"name":        true,
	"amount":      true,
	"area":        true,
	"attend":      true,
	"description": true,
	"date":        true,
}

// Repository defines storage operations for guest book entries, scoped to
// an owner.
type Repository interface {
	Create(ctx context.Context, rec *GuestBook) error
	GetByID(ctx context.Context, owner string, id int64) (*GuestBook, error)
	Update(ctx context.Context, rec *GuestBook) error
	Delete(ctx context.Context, owner string, id int64) error
	List(ctx context.Context, owner string, filter Filter) ([]*GuestBook, int, error)
	Count(ctx context.Context, owner string) (int, error)
}

// containsFold matches the case-insensitive ILIKE semantics of the Postgres
// implementation.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (f Filter) matches(rec *GuestBook) bool {
	if f.NameContains != "" && !containsFold(rec.Name, f.NameContains) {
		return false
	}
	if f.AreaContains != "" && !containsFold(rec.Area, f.AreaContains) {
		return false
	}
	if f.DescriptionContains != "" && !containsFold(rec.Description, f.DescriptionContains) {
		return false
	}
	if f.StartDate != nil && (rec.Date == nil || rec.Date.Before(*f.StartDate)) {
		return false
	}
	if f.EndDate != nil && (rec.Date == nil || rec.Date.After(*f.EndDate)) {
		return false
	}
	return true
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	recs   map[int64]*GuestBook
	nextID int64
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{recs: make(map[int64]*GuestBook), nextID: 1}
}

// Create stores a new record and assigns its ID.
func (r *InMemoryRepository) Create(ctx context.Context, rec *GuestBook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.ID = r.nextID
	r.nextID++
	r.recs[rec.ID] = copyRecord(rec)
	return nil
}

// GetByID returns the owner's record with the given ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, owner string, id int64) (*GuestBook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.recs[id]
	if !ok || rec.Owner != owner {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

// Update replaces the owner's record identified by rec.ID.
func (r *InMemoryRepository) Update(ctx context.Context, rec *GuestBook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.recs[rec.ID]
	if !ok || stored.Owner != rec.Owner {
		return ErrNotFound
	}
	r.recs[rec.ID] = copyRecord(rec)
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
func (r *InMemoryRepository) List(ctx context.Context, owner string, filter Filter) ([]*GuestBook, int, error) {
	r.mu.RLock()
	var matched []*GuestBook
	for _, rec := range r.recs {
		if rec.Owner == owner && filter.matches(rec) {
			matched = append(matched, copyRecord(rec))
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

func copyRecord(rec *GuestBook) *GuestBook {
	c := *rec
	if rec.Amount != nil {
		v := *rec.Amount
		c.Amount = &v
	}
	if rec.Date != nil {
		t := *rec.Date
		c.Date = &t
	}
	return &c
}

func sortRecords(recs []*GuestBook, ordering string) {
	field := strings.TrimPrefix(ordering, "-")
	desc := strings.HasPrefix(ordering, "-")
	if !OrderingFields[field] {
		field, desc = "id", false
	}

	less := func(a, b *GuestBook) bool {
		switch field {
		case "name":
			return a.Name < b.Name
		case "amount":
			return amountOf(a) < amountOf(b)
		case "area":
			return a.Area < b.Area
		case "attend":
			return a.Attend < b.Attend
		case "description":
			return a.Description < b.Description
		case "date":
			return dateOf(a).Before(dateOf(b))
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

func amountOf(rec *GuestBook) int64 {
	if rec.Amount == nil {
		return 0
	}
	return *rec.Amount
}

func dateOf(rec *GuestBook) time.Time {
	if rec.Date == nil {
		return time.Time{}
	}
	return *rec.Date
}

func paginate(recs []*GuestBook, page, pageSize int) []*GuestBook {
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
