package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/oyeong/noteapi/internal/audit"
	"github.com/oyeong/noteapi/internal/serial"
)

func newSerialFixture(t *testing.T) (*SerialHandlers, *serial.InMemoryRepository, *audit.InMemoryRepository) {
	t.Helper()
	repo := serial.NewInMemoryRepository()
	trail := audit.NewInMemoryRepository()
	return NewSerialHandlers(repo, newTestCipher(t), audit.NewRecorder(trail, nil), testPages), repo, trail
}

func createSerial(t *testing.T, h *SerialHandlers, owner string, body SerialRequest) SerialResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/v1/serial", body, testPrincipal(owner), ""))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decodeBody[SerialResponse](t, rec)
}

func TestSerialCreate_EncryptsValueAtRest(t *testing.T) {
	h, repo, trail := newSerialFixture(t)

	resp := createSerial(t, h, "oyeong", SerialRequest{
		Type:        str("소프트웨어"),
		Title:       str("윈도우 정품키"),
		Value:       str("ABCDE-12345-FGHIJ"),
		Description: str("노트북용"),
	})

	if resp.Value != "ABCDE-12345-FGHIJ" {
		t.Errorf("response value = %q, want plaintext", resp.Value)
	}

	stored, err := repo.GetByID(t.Context(), "oyeong", resp.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Value == "ABCDE-12345-FGHIJ" {
		t.Error("serial value stored in plaintext")
	}
	if stored.Description == "노트북용" {
		t.Error("description stored in plaintext")
	}

	entries := auditEntries(t, trail)
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Category != audit.CategorySerial || e.Result != audit.ResultSuccess {
		t.Errorf("audit entry = %+v", e)
	}
	if !strings.Contains(e.Action, "추가") || !strings.Contains(e.Action, "[제목] : 윈도우 정품키") || !strings.Contains(e.Action, "[시리얼 번호]") {
		t.Errorf("action = %q", e.Action)
	}
	if strings.Contains(e.Action, "ABCDE-12345-FGHIJ") {
		t.Errorf("serial value leaked into action %q", e.Action)
	}
}

func TestSerialCreate_RequiredFieldsItemized(t *testing.T) {
	h, _, trail := newSerialFixture(t)

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/v1/serial", SerialRequest{Type: str("게임")}, testPrincipal("oyeong"), ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	fields := decodeBody[map[string][]string](t, rec)
	for _, name := range []string{"title", "value"} {
		if len(fields[name]) == 0 || fields[name][0] != "이 필드는 필수 항목입니다." {
			t.Errorf("fields[%q] = %v", name, fields[name])
		}
	}
	if _, ok := fields["type"]; ok {
		t.Error("type was supplied but still flagged")
	}

	entries := auditEntries(t, trail)
	if len(entries) != 1 || entries[0].Result != audit.ResultFail {
		t.Errorf("audit entries = %+v", entries)
	}
}

func TestSerialUpdate_MarksEncryptedChanges(t *testing.T) {
	h, _, trail := newSerialFixture(t)

	createSerial(t, h, "oyeong", SerialRequest{
		Type: str("소프트웨어"), Title: str("정품키"), Value: str("OLD-KEY"),
	})

	rec := httptest.NewRecorder()
	h.Update(rec, jsonRequest(t, "PATCH", "/v1/serial/1", SerialRequest{
		Title: str("새 정품키"), Value: str("NEW-KEY"),
	}, testPrincipal("oyeong"), "1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[SerialResponse](t, rec)
	if updated.Title != "새 정품키" || updated.Value != "NEW-KEY" {
		t.Errorf("updated = %+v", updated)
	}

	entries := auditEntries(t, trail)
	action := entries[len(entries)-1].Action
	if !strings.Contains(action, "정품키 → 새 정품키") || !strings.Contains(action, "[시리얼 번호 변경]") {
		t.Errorf("action = %q", action)
	}
	if strings.Contains(action, "NEW-KEY") || strings.Contains(action, "OLD-KEY") {
		t.Errorf("serial value leaked into action %q", action)
	}
}

func TestSerialList_EncryptedValueExactFilter(t *testing.T) {
	h, _, _ := newSerialFixture(t)

	createSerial(t, h, "oyeong", SerialRequest{Type: str("게임"), Title: str("첫째"), Value: str("키-하나")})
	createSerial(t, h, "oyeong", SerialRequest{Type: str("게임"), Title: str("둘째"), Value: str("키-둘")})

	rec := httptest.NewRecorder()
	h.List(rec, jsonRequest(t, "GET", "/v1/serial?value="+url.QueryEscape("키-둘"), nil, testPrincipal("oyeong"), ""))

	page := decodeBody[Page](t, rec)
	if page.Count != 1 {
		t.Fatalf("count = %d, want 1", page.Count)
	}
	row := page.Results.([]any)[0].(map[string]any)
	if row["title"] != "둘째" {
		t.Errorf("matched row = %v", row)
	}
}

func TestSerialDelete_CrossOwnerNotFound(t *testing.T) {
	h, repo, _ := newSerialFixture(t)

	createSerial(t, h, "oyeong", SerialRequest{Type: str("게임"), Title: str("키"), Value: str("값")})

	rec := httptest.NewRecorder()
	h.Delete(rec, jsonRequest(t, "DELETE", "/v1/serial/1", nil, testPrincipal("other"), "1"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-owner delete status = %d, want 404", rec.Code)
	}
	if n, _ := repo.Count(t.Context(), "oyeong"); n != 1 {
		t.Errorf("row count after cross-owner delete = %d, want 1", n)
	}
}
