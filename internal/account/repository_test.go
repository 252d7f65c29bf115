package account

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newUser(username, name string, roles ...string) *User {
	return &User{
		Username:     username,
		PasswordHash: "$2a$10$fakehash",
		Name:         name,
		Email:        username + "@example.com",
		Active:       true,
		Roles:        roles,
	}
}

func TestInMemoryCreateAndGet(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	u := newUser("alice", "앨리스", "사용자")
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.ID == 0 {
		t.Error("Create should assign an ID")
	}
	if u.CreatedAt.IsZero() {
		t.Error("Create should stamp CreatedAt")
	}

	got, err := repo.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if got.Name != "앨리스" || len(got.Roles) != 1 || got.Roles[0] != "사용자" {
		t.Errorf("stored user mismatch: %+v", got)
	}

	if _, err := repo.GetByID(ctx, u.ID); err != nil {
		t.Errorf("GetByID() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(999) error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryCreateDuplicate(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, newUser("alice", "a")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := repo.Create(ctx, newUser("alice", "b"))
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("duplicate Create error = %v, want ErrDuplicateUsername", err)
	}
}

func TestInMemoryUpdate(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	u := newUser("alice", "a", "사용자")
	bob := newUser("bob", "b")
	if err := repo.Create(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, bob); err != nil {
		t.Fatal(err)
	}

	u.Name = "변경됨"
	u.Roles = []string{"관리자"}
	if err := repo.Update(ctx, u); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := repo.GetByID(ctx, u.ID)
	if got.Name != "변경됨" || got.Roles[0] != "관리자" {
		t.Errorf("update not applied: %+v", got)
	}

	u.Username = "bob"
	if err := repo.Update(ctx, u); !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("rename onto taken username error = %v, want ErrDuplicateUsername", err)
	}

	missing := newUser("ghost", "g")
	missing.ID = 404
	if err := repo.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryDelete(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	u := newUser("alice", "a")
	if err := repo.Create(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryListFiltersAndOrdering(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	admin := newUser("admin1", "관리자일", "관리자")
	user1 := newUser("user1", "사용자일", "사용자")
	user2 := newUser("user2", "사용자이", "사용자")
	user2.Active = false
	super := newUser("root", "루트")
	super.Superuser = true

	for _, u := range []*User{admin, user1, user2, super} {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("username contains", func(t *testing.T) {
		_, total, _ := repo.List(ctx, Filter{UsernameContains: "user"})
		if total != 2 {
			t.Errorf("total = %d, want 2", total)
		}
	})

	t.Run("status", func(t *testing.T) {
		active := true
		_, total, _ := repo.List(ctx, Filter{Active: &active})
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
	})

	t.Run("role", func(t *testing.T) {
		got, total, _ := repo.List(ctx, Filter{Role: "관리자"})
		if total != 1 || got[0].Username != "admin1" {
			t.Errorf("role filter: total=%d got=%+v", total, got)
		}
	})

	t.Run("permission ordering", func(t *testing.T) {
		got, _, _ := repo.List(ctx, Filter{Ordering: "-permission"})
		if got[0].Username != "root" {
			t.Errorf("superuser should sort first, got %s", got[0].Username)
		}
		if got[1].Username != "admin1" {
			t.Errorf("admin should sort second, got %s", got[1].Username)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		got, total, _ := repo.List(ctx, Filter{Ordering: "id", Page: 2, PageSize: 3})
		if total != 4 || len(got) != 1 {
			t.Errorf("total=%d len=%d, want 4 and 1", total, len(got))
		}
	})
}

func TestInMemoryTouchLastLogin(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	u := newUser("alice", "a")
	if err := repo.Create(ctx, u); err != nil {
		t.Fatal(err)
	}

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.TouchLastLogin(ctx, u.ID, at); err != nil {
		t.Fatalf("TouchLastLogin() error = %v", err)
	}
	got, _ := repo.GetByID(ctx, u.ID)
	if got.LastLogin == nil || !got.LastLogin.Equal(at) {
		t.Errorf("last login = %v, want %v", got.LastLogin, at)
	}

	if err := repo.TouchLastLogin(ctx, 999, at); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user error = %v, want ErrNotFound", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "s3cret!" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPassword(hash, "s3cret!") {
		t.Error("correct password should verify")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password should not verify")
	}
}

func TestStatusMapping(t *testing.T) {
	u := &User{Active: true}
	if u.StatusDisplay() != StatusActive {
		t.Errorf("active display = %q", u.StatusDisplay())
	}
	u.Active = false
	if u.StatusDisplay() != StatusInactive {
		t.Errorf("inactive display = %q", u.StatusDisplay())
	}

	if active, ok := ParseStatus("활성화"); !ok || !active {
		t.Error("활성화 should parse active")
	}
	if active, ok := ParseStatus("비활성화"); !ok || active {
		t.Error("비활성화 should parse inactive")
	}
	if _, ok := ParseStatus("enabled"); ok {
		t.Error("unknown status should not parse")
	}
}
