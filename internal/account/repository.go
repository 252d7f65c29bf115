package account

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// Repository errors.
var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
)

// Filter narrows and orders user queries. Zero values mean "no constraint".
type Filter struct {
	UsernameContains string
	NameContains     string
	EmailContains    string
	Active           *bool
	Role             string

	// Ordering is a field name from OrderingFields, optionally prefixed
	// with "-" for descending. Default is id ascending.
	Ordering string

	Page     int
	PageSize int
}

// OrderingFields is the allow-list of sortable fields.
var OrderingFields = map[string]bool{
	"id":         true,
	"user_id":    true,
	"name":       true,
	"email":      true,
	"status":     true,
	"permission": true,
	"created_at": true,
	"last_login": true,
}

// Repository defines storage operations for user accounts.
type Repository interface {
	// Create stores a new user and assigns its ID. Returns
	// ErrDuplicateUsername when the username is taken.
	Create(ctx context.Context, user *User) error

	// GetByID returns the user with the given ID or ErrNotFound.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByUsername returns the user with the given username or ErrNotFound.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Update replaces the stored user identified by user.ID.
	Update(ctx context.Context, user *User) error

	// Delete removes the user with the given ID or returns ErrNotFound.
	Delete(ctx context.Context, id int64) error

	// List returns the users matching the filter plus the total match count
	// before pagination.
	List(ctx context.Context, filter Filter) ([]*User, int, error)

	// Count returns the total number of users.
	Count(ctx context.Context) (int, error)

	// TouchLastLogin stamps the user's last login time.
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// containsFold matches the case-insensitive ILIKE semantics of the Postgres
// implementation.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// matches reports whether a user satisfies every constraint in the filter.
func (f Filter) matches(u *User) bool {
	if f.UsernameContains != "" && !containsFold(u.Username, f.UsernameContains) {
		return false
	}
	if f.NameContains != "" && !containsFold(u.Name, f.NameContains) {
		return false
	}
	if f.EmailContains != "" && !containsFold(u.Email, f.EmailContains) {
		return false
	}
	if f.Active != nil && u.Active != *f.Active {
		return false
	}
	if f.Role != "" && !slices.Contains(u.Roles, f.Role) {
		return false
	}
	return true
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	users  map[int64]*User
	nextID int64
}

// NewInMemoryRepository creates a new in-memory user repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{users: make(map[int64]*User), nextID: 1}
}

// Create stores a new user and assigns its ID.
func (r *InMemoryRepository) Create(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username {
			return ErrDuplicateUsername
		}
	}

	user.ID = r.nextID
	r.nextID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.users[user.ID] = copyUser(user)
	return nil
}

// GetByID returns the user with the given ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

// GetByUsername returns the user with the given username.
func (r *InMemoryRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

// Update replaces the stored user identified by user.ID.
func (r *InMemoryRepository) Update(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if user.Username != stored.Username {
		for _, u := range r.users {
			if u.ID != user.ID && u.Username == user.Username {
				return ErrDuplicateUsername
			}
		}
	}
	r.users[user.ID] = copyUser(user)
	return nil
}

// Delete removes the user with the given ID.
func (r *InMemoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// List returns the users matching the filter plus the total match count.
func (r *InMemoryRepository) List(ctx context.Context, filter Filter) ([]*User, int, error) {
	r.mu.RLock()
	var matched []*User
	for _, u := range r.users {
		if filter.matches(u) {
			matched = append(matched, copyUser(u))
		}
	}
	r.mu.RUnlock()

	sortUsers(matched, filter.Ordering)

	total := len(matched)
	matched = paginate(matched, filter.Page, filter.PageSize)
	return matched, total, nil
}

// Count returns the total number of users.
func (r *InMemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}

// TouchLastLogin stamps the user's last login time.
func (r *InMemoryRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	t := at
	u.LastLogin = &t
	return nil
}

func copyUser(u *User) *User {
	c := *u
	c.Roles = slices.Clone(u.Roles)
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

// primaryRole picks the role used for permission ordering: superusers sort
// above admins, admins above plain users.
func primaryRole(u *User) int {
	switch {
	case u.Superuser:
		return 2
	case slices.Contains(u.Roles, "관리자"):
		return 1
	default:
		return 0
	}
}

// sortUsers orders users by the requested field, id ascending by default.
func sortUsers(users []*User, ordering string) {
	field := strings.TrimPrefix(ordering, "-")
	desc := strings.HasPrefix(ordering, "-")
	if !OrderingFields[field] {
		field, desc = "id", false
	}

	less := func(a, b *User) bool {
		switch field {
		case "user_id":
			return a.Username < b.Username
		case "name":
			return a.Name < b.Name
		case "email":
			return a.Email < b.Email
		case "status":
			return !a.Active && b.Active
		case "permission":
			return primaryRole(a) < primaryRole(b)
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		case "last_login":
			return lastLoginOf(a).Before(lastLoginOf(b))
		default:
			return a.ID < b.ID
		}
	}

	sort.SliceStable(users, func(i, j int) bool {
		if desc {
			return less(users[j], users[i])
		}
		return less(users[i], users[j])
	})
}

func lastLoginOf(u *User) time.Time {
	if u.LastLogin == nil {
		return time.Time{}
	}
	return *u.LastLogin
}

// paginate slices one 1-based page out of the full result set.
func paginate(users []*User, page, pageSize int) []*User {
	if pageSize <= 0 {
		return users
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(users) {
		return nil
	}
	end := start + pageSize
	if end > len(users) {
		end = len(users)
	}
	return users[start:end]
}
