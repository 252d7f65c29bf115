package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oyeong/noteapi/internal/audit"
	"github.com/oyeong/noteapi/internal/guestbook"
)

func newGuestBookFixture(t *testing.T) (*GuestBookHandlers, *guestbook.InMemoryRepository, *audit.InMemoryRepository) {
	t.Helper()
	repo := guestbook.NewInMemoryRepository()
	trail := audit.NewInMemoryRepository()
	return NewGuestBookHandlers(repo, audit.NewRecorder(trail, nil), testPages), repo, trail
}

func TestGuestBookCreate_DefaultsAttendToUnknown(t *testing.T) {
	h, _, _ := newGuestBookFixture(t)

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/v1/guest-book",
		GuestBookRequest{Name: str("김하객")}, testPrincipal("oyeong"), ""))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[GuestBookResponse](t, rec)
	if resp.Attend != guestbook.AttendUnknown {
		t.Errorf("attend = %q, want %q", resp.Attend, guestbook.AttendUnknown)
	}
	if resp.AttendDisplay != "미정" {
		t.Errorf("attend_display = %q, want 미정", resp.AttendDisplay)
	}
	if resp.Amount != nil || resp.Date != nil {
		t.Errorf("omitted fields should stay null: %+v", resp)
	}
}

func TestGuestBookCreate_RejectsBadAttendAndDate(t *testing.T) {
	h, _, _ := newGuestBookFixture(t)

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/v1/guest-book", GuestBookRequest{
		Name:   str("김하객"),
		Attend: str("X"),
		Date:   str("2026/05/01"),
	}, testPrincipal("oyeong"), ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	fields := decodeBody[map[string][]string](t, rec)
	if len(fields["attend"]) == 0 || fields["attend"][0] != "참석 여부는 Y, N, - 중 하나여야 합니다." {
		t.Errorf("fields[attend] = %v", fields["attend"])
	}
	if len(fields["date"]) == 0 || fields["date"][0] != "날짜 형식이 올바르지 않습니다." {
		t.Errorf("fields[date] = %v", fields["date"])
	}
}

func TestGuestBookCreate_FullEntry(t *testing.T) {
	h, _, trail := newGuestBookFixture(t)

	amount := int64(100000)
	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/v1/guest-book", GuestBookRequest{
		Name:        str("김하객"),
		Amount:      &amount,
		Date:        str("2026-05-01"),
		Area:        str("서울"),
		Attend:      str(guestbook.AttendYes),
		Description: str("대학 동기"),
	}, testPrincipal("oyeong"), ""))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[GuestBookResponse](t, rec)
	if resp.Amount == nil || *resp.Amount != 100000 {
		t.Errorf("amount = %v", resp.Amount)
	}
	if resp.Date == nil || *resp.Date != "2026-05-01" {
		t.Errorf("date = %v", resp.Date)
	}
	if resp.AttendDisplay != "참석" {
		t.Errorf("attend_display = %q", resp.AttendDisplay)
	}

	action := auditEntries(t, trail)[0].Action
	for _, frag := range []string{"[이름] : 김하객", "[금액] : 100000", "[참석] : 참석"} {
		if !strings.Contains(action, frag) {
			t.Errorf("action %q missing %q", action, frag)
		}
	}
}

func TestGuestBookUpdate_DiffsAttendDisplay(t *testing.T) {
	h, _, trail := newGuestBookFixture(t)

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/v1/guest-book",
		GuestBookRequest{Name: str("김하객"), Attend: str(guestbook.AttendUnknown)},
		testPrincipal("oyeong"), ""))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Update(rec, jsonRequest(t, "PATCH", "/v1/guest-book/1",
		GuestBookRequest{Attend: str(guestbook.AttendYes)}, testPrincipal("oyeong"), "1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}

	entries := auditEntries(t, trail)
	action := entries[len(entries)-1].Action
	if !strings.Contains(action, "[참석] 미정 → 참석") {
		t.Errorf("action = %q", action)
	}
}

func TestGuestBookList_DateRange(t *testing.T) {
	h, _, _ := newGuestBookFixture(t)

	for _, d := range []string{"2026-04-01", "2026-05-01", "2026-06-01"} {
		rec := httptest.NewRecorder()
		h.Create(rec, jsonRequest(t, "POST", "/v1/guest-book",
			GuestBookRequest{Name: str("하객 " + d), Date: str(d)}, testPrincipal("oyeong"), ""))
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %s status = %d", d, rec.Code)
		}
	}
	// Entry without a date never matches a range filter.
	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/v1/guest-book",
		GuestBookRequest{Name: str("미정 하객")}, testPrincipal("oyeong"), ""))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create dateless status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.List(rec, jsonRequest(t, "GET",
		"/v1/guest-book?start_date=2026-04-15&end_date=2026-05-15", nil, testPrincipal("oyeong"), ""))

	page := decodeBody[Page](t, rec)
	if page.Count != 1 {
		t.Fatalf("count = %d, want 1", page.Count)
	}
	row := page.Results.([]any)[0].(map[string]any)
	if row["name"] != "하객 2026-05-01" {
		t.Errorf("matched row = %v", row)
	}
}

func TestGuestBookDelete_CrossOwnerNotFound(t *testing.T) {
	h, repo, _ := newGuestBookFixture(t)

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/v1/guest-book",
		GuestBookRequest{Name: str("김하객")}, testPrincipal("oyeong"), ""))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Delete(rec, jsonRequest(t, "DELETE", "/v1/guest-book/1", nil, testPrincipal("other"), "1"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-owner delete status = %d, want 404", rec.Code)
	}
	if n, _ := repo.Count(t.Context(), "oyeong"); n != 1 {
		t.Errorf("row count = %d, want 1", n)
	}
}
