package guestbook

import (
	"context"
	"errors"
	"testing"
	"time"
)

func int64Ptr(v int64) *int64 { return &v }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAttendDisplay(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{AttendYes, "참석"},
		{AttendNo, "미참석"},
		{AttendUnknown, "미정"},
		{"", "미정"},
		{"maybe", "미정"},
	}
	for _, tt := range tests {
		if got := AttendDisplay(tt.code); got != tt.want {
			t.Errorf("AttendDisplay(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestValidAttend(t *testing.T) {
	for _, code := range []string{AttendYes, AttendNo, AttendUnknown} {
		if !ValidAttend(code) {
			t.Errorf("ValidAttend(%q) should be true", code)
		}
	}
	if ValidAttend("yes") {
		t.Error(`ValidAttend("yes") should be false`)
	}
}

func TestCRUDAndScoping(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	rec := &GuestBook{
		Owner:       "alice",
		Name:        "홍길동",
		Amount:      int64Ptr(50000),
		Date:        datePtr(2024, time.May, 18),
		Area:        "서울",
		Attend:      AttendYes,
		Description: "대학 동기",
	}
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "alice", rec.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Amount == nil || *got.Amount != 50000 {
		t.Errorf("amount = %v", got.Amount)
	}

	if _, err := repo.GetByID(ctx, "bob", rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner get error = %v, want ErrNotFound", err)
	}

	got.Attend = AttendNo
	got.Amount = nil
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	updated, _ := repo.GetByID(ctx, "alice", rec.ID)
	if updated.Attend != AttendNo || updated.Amount != nil {
		t.Errorf("update not applied: %+v", updated)
	}

	if err := repo.Delete(ctx, "alice", rec.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "alice", rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestListFiltersAndOrdering(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	for _, rec := range []*GuestBook{
		{Owner: "alice", Name: "홍길동", Amount: int64Ptr(50000), Date: datePtr(2024, time.May, 18), Area: "서울", Attend: AttendYes},
		{Owner: "alice", Name: "김철수", Amount: int64Ptr(100000), Date: datePtr(2024, time.May, 19), Area: "부산", Attend: AttendNo, Description: "회사 동료"},
		{Owner: "alice", Name: "이영희", Area: "서울", Attend: AttendUnknown},
	} {
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	_, total, _ := repo.List(ctx, "alice", Filter{AreaContains: "서울"})
	if total != 2 {
		t.Errorf("area filter total = %d, want 2", total)
	}

	_, total, _ = repo.List(ctx, "alice", Filter{DescriptionContains: "동료"})
	if total != 1 {
		t.Errorf("description filter total = %d, want 1", total)
	}

	// Records without a date fall out of date-range filters.
	_, total, _ = repo.List(ctx, "alice", Filter{StartDate: datePtr(2024, time.May, 19)})
	if total != 1 {
		t.Errorf("date filter total = %d, want 1", total)
	}

	got, _, _ := repo.List(ctx, "alice", Filter{Ordering: "-amount"})
	if got[0].Name != "김철수" {
		t.Errorf("amount order broken: %s", got[0].Name)
	}
	// nil amounts sort as zero, below every real amount
	if got[2].Amount != nil {
		t.Errorf("nil amount should sort last descending: %+v", got[2])
	}
}
