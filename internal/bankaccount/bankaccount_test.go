package bankaccount

import (
	"context"
	"errors"
	"testing"
)

func seed(t *testing.T) *InMemoryRepository {
	t.Helper()
	repo := NewInMemoryRepository()
	ctx := context.Background()

	recs := []*BankAccount{
		{Owner: "alice", Bank: "국민은행", Account: "enc-111", AccountHolder: "홍길동", Description: "enc-d1"},
		{Owner: "alice", Bank: "신한은행", Account: "enc-222", AccountHolder: "김철수", Description: "enc-d2"},
		{Owner: "bob", Bank: "국민은행", Account: "enc-333", AccountHolder: "이영희", Description: "enc-d3"},
	}
	for _, rec := range recs {
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	return repo
}

func TestCreateDuplicateBankAndAccount(t *testing.T) {
	repo := seed(t)
	err := repo.Create(context.Background(), &BankAccount{
		Owner: "carol", Bank: "국민은행", Account: "enc-111",
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("Create() error = %v, want ErrDuplicate", err)
	}

	// Same account number at a different bank is fine.
	err = repo.Create(context.Background(), &BankAccount{
		Owner: "carol", Bank: "우리은행", Account: "enc-111",
	})
	if err != nil {
		t.Errorf("Create() error = %v", err)
	}
}

func TestOwnerScoping(t *testing.T) {
	repo := seed(t)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "bob", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner get error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, "bob", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner delete error = %v, want ErrNotFound", err)
	}
	if err := repo.Update(ctx, &BankAccount{ID: 1, Owner: "bob", Bank: "x", Account: "y"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner update error = %v, want ErrNotFound", err)
	}

	_, total, _ := repo.List(ctx, "alice", Filter{})
	if total != 2 {
		t.Errorf("alice total = %d, want 2", total)
	}
	_, total, _ = repo.List(ctx, "nobody", Filter{})
	if total != 0 {
		t.Errorf("unknown owner total = %d, want 0", total)
	}
}

func TestListFilters(t *testing.T) {
	repo := seed(t)
	ctx := context.Background()

	got, total, _ := repo.List(ctx, "alice", Filter{BankContains: "국민"})
	if total != 1 || got[0].Account != "enc-111" {
		t.Errorf("bank filter: total=%d", total)
	}

	_, total, _ = repo.List(ctx, "alice", Filter{HolderContains: "철수"})
	if total != 1 {
		t.Errorf("holder filter: total=%d, want 1", total)
	}

	// Contains filters are case-insensitive, matching ILIKE in Postgres.
	if err := repo.Create(ctx, &BankAccount{Owner: "alice", Bank: "Kakao Bank", Account: "enc-444", AccountHolder: "Hong Gildong"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_, total, _ = repo.List(ctx, "alice", Filter{BankContains: "kakao"})
	if total != 1 {
		t.Errorf("case-insensitive bank filter: total=%d, want 1", total)
	}
	_, total, _ = repo.List(ctx, "alice", Filter{HolderContains: "HONG"})
	if total != 1 {
		t.Errorf("case-insensitive holder filter: total=%d, want 1", total)
	}

	// Exact matchers compare ciphertext.
	_, total, _ = repo.List(ctx, "alice", Filter{Account: "enc-222"})
	if total != 1 {
		t.Errorf("account filter: total=%d, want 1", total)
	}
	_, total, _ = repo.List(ctx, "alice", Filter{Account: "enc-999"})
	if total != 0 {
		t.Errorf("miss filter: total=%d, want 0", total)
	}
}

func TestListOrdering(t *testing.T) {
	repo := seed(t)
	got, _, _ := repo.List(context.Background(), "alice", Filter{Ordering: "-bank"})
	if got[0].Bank != "신한은행" {
		t.Errorf("descending bank order broken: %s", got[0].Bank)
	}
}

func TestUpdateAndCount(t *testing.T) {
	repo := seed(t)
	ctx := context.Background()

	rec, err := repo.GetByID(ctx, "alice", 1)
	if err != nil {
		t.Fatal(err)
	}
	rec.AccountHolder = "변경"
	if err := repo.Update(ctx, rec); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := repo.GetByID(ctx, "alice", 1)
	if got.AccountHolder != "변경" {
		t.Errorf("update not applied: %+v", got)
	}

	// Updating onto another record's (bank, account) pair is rejected.
	rec.Bank = "신한은행"
	rec.Account = "enc-222"
	if err := repo.Update(ctx, rec); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Update() error = %v, want ErrDuplicate", err)
	}

	n, _ := repo.Count(ctx, "alice")
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}
