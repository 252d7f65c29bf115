package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oyeong/noteapi/internal/bankaccount"
	"github.com/oyeong/noteapi/internal/guestbook"
	"github.com/oyeong/noteapi/internal/note"
	"github.com/oyeong/noteapi/internal/serial"
)

func TestDashboardStats_ScopedToOwner(t *testing.T) {
	accounts := bankaccount.NewInMemoryRepository()
	notes := note.NewInMemoryRepository()
	serials := serial.NewInMemoryRepository()
	guests := guestbook.NewInMemoryRepository()

	ctx := t.Context()
	for i, owner := range []string{"oyeong", "oyeong", "other"} {
		err := accounts.Create(ctx, &bankaccount.BankAccount{
			Owner: owner, Bank: "국민은행", Account: string(rune('a' + i)), AccountHolder: "홍길동",
		})
		if err != nil {
			t.Fatalf("seed bank account: %v", err)
		}
	}
	if err := notes.Create(ctx, &note.Note{Owner: "oyeong", Title: "메모", Note: "x"}); err != nil {
		t.Fatalf("seed note: %v", err)
	}
	if err := guests.Create(ctx, &guestbook.GuestBook{Owner: "other", Name: "하객", Attend: guestbook.AttendUnknown}); err != nil {
		t.Fatalf("seed guest: %v", err)
	}

	h := NewDashboardHandlers(accounts, notes, serials, guests)

	rec := httptest.NewRecorder()
	h.Stats(rec, jsonRequest(t, "GET", "/v1/dashboard/stats", nil, testPrincipal("oyeong"), ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	stats := decodeBody[DashboardStats](t, rec)
	if stats.BankAccounts != 2 || stats.Notes != 1 || stats.Serials != 0 || stats.GuestBook != 0 {
		t.Errorf("stats = %+v", stats)
	}
}
