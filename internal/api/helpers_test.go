package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/oyeong/noteapi/internal/audit"
	"github.com/oyeong/noteapi/internal/auth"
	"github.com/oyeong/noteapi/internal/cipher"
	"github.com/oyeong/noteapi/internal/middleware"
)

const (
	testAESKey = "603deb1015ca71be2b73aef0857d77811f352c073b6108d72d9810a30914dff4"
	testAESIV  = "000102030405060708090a0b0c0d0e0f"
)

var testPages = PageConfig{Default: 10, Max: 100}

func newTestCipher(t *testing.T) *cipher.Cipher {
	t.Helper()
	c, err := cipher.New(testAESKey, testAESIV)
	if err != nil {
		t.Fatalf("cipher.New() error = %v", err)
	}
	return c
}

func testPrincipal(username string) *auth.Principal {
	return &auth.Principal{
		Username: username,
		Name:     "테스트",
		Email:    username + "@example.com",
		Roles:    []string{auth.RoleUser},
	}
}

// jsonRequest builds a request with an optional JSON body and an optional
// authenticated principal. The id path value is set when non-empty so
// handlers can be exercised without a mux.
func jsonRequest(t *testing.T, method, target string, body any, p *auth.Principal, id string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}

	r := httptest.NewRequest(method, target, &buf)
	if p != nil {
		r = r.WithContext(middleware.WithPrincipal(r.Context(), p))
	}
	if id != "" {
		r.SetPathValue("id", id)
	}
	return r
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return v
}

// auditEntries returns every entry currently in the trail, id ascending.
func auditEntries(t *testing.T, repo *audit.InMemoryRepository) []audit.Entry {
	t.Helper()
	entries, _, err := repo.List(t.Context(), audit.Filter{})
	if err != nil {
		t.Fatalf("list audit entries: %v", err)
	}
	return entries
}

func str(s string) *string { return &s }

func urlQuery(s string) string { return url.QueryEscape(s) }
