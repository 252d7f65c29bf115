package audit

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Filter narrows and orders audit trail queries. Zero values mean "no
// constraint". IP accepts a bare IPv4 address for exact match or CIDR
// notation for an inclusive [network, broadcast] range.
type Filter struct {
	UserContains   string
	IP             string
	Category       string
	SubCategory    string
	ActionContains string
	Result         *Result
	StartDate      *time.Time
	EndDate        *time.Time

	// Ordering is a field name from OrderingFields, optionally prefixed
	// with "-" for descending. Default is id ascending.
	Ordering string

	// Page is 1-based; PageSize caps the rows returned. PageSize <= 0
	// disables pagination.
	Page     int
	PageSize int
}

// OrderingFields is the allow-list of sortable fields.
var OrderingFields = map[string]bool{
	"id":           true,
	"user":         true,
	"ip":           true,
	"category":     true,
	"sub_category": true,
	"action":       true,
	"result":       true,
	"date":         true,
}

// Repository defines storage operations for the audit trail. There is
// deliberately no update or delete: the trail is append-only.
type Repository interface {
	// Insert appends an entry, assigning its ID and timestamp.
	Insert(ctx context.Context, entry Entry) (int64, error)

	// List returns the entries matching the filter plus the total match
	// count before pagination.
	List(ctx context.Context, filter Filter) ([]Entry, int, error)

	// Count returns the total number of entries in the trail.
	Count(ctx context.Context) (int, error)
}

// containsFold matches the case-insensitive ILIKE semantics of the Postgres
// implementation.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// matches reports whether an entry satisfies every constraint in the filter.
func (f Filter) matches(e Entry) bool {
	if f.UserContains != "" {
		if e.Actor == nil || !containsFold(*e.Actor, f.UserContains) {
			return false
		}
	}
	if f.IP != "" {
		start, end, ok := CIDRRange(f.IP)
		if !ok || e.IP == nil || *e.IP < start || *e.IP > end {
			return false
		}
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.SubCategory != "" && e.SubCategory != f.SubCategory {
		return false
	}
	if f.ActionContains != "" && !containsFold(e.Action, f.ActionContains) {
		return false
	}
	if f.Result != nil && e.Result != *f.Result {
		return false
	}
	if f.StartDate != nil && e.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.Date.After(*f.EndDate) {
		return false
	}
	return true
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  int64
}

// NewInMemoryRepository creates a new in-memory audit repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1}
}

// Insert appends an entry, assigning its ID and timestamp.
func (r *InMemoryRepository) Insert(ctx context.Context, entry Entry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = r.nextID
	r.nextID++
	entry.Date = time.Now().UTC()
	r.entries = append(r.entries, entry)

	return entry.ID, nil
}

// List returns the entries matching the filter plus the total match count.
func (r *InMemoryRepository) List(ctx context.Context, filter Filter) ([]Entry, int, error) {
	r.mu.RLock()
	var matched []Entry
	for _, e := range r.entries {
		if filter.matches(e) {
			matched = append(matched, e)
		}
	}
	r.mu.RUnlock()

	sortEntries(matched, filter.Ordering)

	total := len(matched)
	matched = paginate(matched, filter.Page, filter.PageSize)
	return matched, total, nil
}

// Count returns the total number of entries in the trail.
func (r *InMemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

// sortEntries orders entries by the requested field, id ascending by default.
func sortEntries(entries []Entry, ordering string) {
	field := strings.TrimPrefix(ordering, "-")
	desc := strings.HasPrefix(ordering, "-")
	if !OrderingFields[field] {
		field, desc = "id", false
	}

	less := func(a, b Entry) bool {
		switch field {
		case "user":
			return deref(a.Actor) < deref(b.Actor)
		case "ip":
			return derefIP(a.IP) < derefIP(b.IP)
		case "category":
			return a.Category < b.Category
		case "sub_category":
			return a.SubCategory < b.SubCategory
		case "action":
			return a.Action < b.Action
		case "result":
			return a.Result < b.Result
		case "date":
			return a.Date.Before(b.Date)
		default:
			return a.ID < b.ID
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if desc {
			return less(entries[j], entries[i])
		}
		return less(entries[i], entries[j])
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefIP(n *uint32) uint32 {
	if n == nil {
		return 0
	}
	return *n
}

// paginate slices one 1-based page out of the full result set.
func paginate(entries []Entry, page, pageSize int) []Entry {
	if pageSize <= 0 {
		return entries
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(entries) {
		return nil
	}
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end]
}
