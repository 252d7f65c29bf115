package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/oyeong/noteapi/internal/audit"
	"github.com/oyeong/noteapi/internal/bankaccount"
	"github.com/oyeong/noteapi/internal/cipher"
	"github.com/oyeong/noteapi/internal/middleware"
)

// BankAccountRequest represents the request body for creating or updating a
// bank account record. Pointer fields distinguish "absent" from "empty" on
// partial updates.
type BankAccountRequest struct {
	Bank          *string `json:"bank"`
	Account       *string `json:"account"`
	AccountHolder *string `json:"account_holder"`
	Description   *string `json:"description"`
}

// BankAccountResponse is the serialized form of one record, encrypted fields
// already decrypted.
type BankAccountResponse struct {
	ID            int64  `json:"id"`
	Bank          string `json:"bank"`
	Account       string `json:"account"`
	AccountHolder string `json:"account_holder"`
	Description   string `json:"description"`
}

// BankAccountHandlers holds dependencies for bank account HTTP handlers.
type BankAccountHandlers struct {
	repo     bankaccount.Repository
	cipher   *cipher.Cipher
	recorder *audit.Recorder
	pages    PageConfig
}

// PageConfig carries the default and maximum page sizes for list endpoints.
type PageConfig struct {
	Default int
	Max     int
}

// NewBankAccountHandlers creates a new BankAccountHandlers instance.
func NewBankAccountHandlers(repo bankaccount.Repository, c *cipher.Cipher, rec *audit.Recorder, pages PageConfig) *BankAccountHandlers {
	return &BankAccountHandlers{repo: repo, cipher: c, recorder: rec, pages: pages}
}

func (h *BankAccountHandlers) toResponse(rec *bankaccount.BankAccount) BankAccountResponse {
	return BankAccountResponse{
		ID:            rec.ID,
		Bank:          rec.Bank,
		Account:       h.cipher.DecryptLenient(rec.Account),
		AccountHolder: rec.AccountHolder,
		Description:   h.cipher.DecryptLenient(rec.Description),
	}
}

// List handles GET /v1/bank-account. Anonymous callers get an empty page,
// never an error. Exact filters on encrypted columns encrypt the probe value
// so it can match the stored ciphertext.
func (h *BankAccountHandlers) List(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	pg := ParsePagination(r, h.pages.Default, h.pages.Max)
	if p == nil {
		WriteJSON(w, r.Context(), http.StatusOK, NewPage(r, pg, 0, nil))
		return
	}

	q := r.URL.Query()
	filter := bankaccount.Filter{
		BankContains:   q.Get("bank"),
		HolderContains: q.Get("account_holder"),
		Ordering:       q.Get("ordering"),
		Page:           pg.Page,
		PageSize:       pg.PageSize,
	}
	if v := q.Get("account"); v != "" {
		filter.Account = h.cipher.EncryptLenient(v)
	}
	if v := q.Get("description"); v != "" {
		filter.Description = h.cipher.EncryptLenient(v)
	}

	recs, total, err := h.repo.List(r.Context(), p.Username, filter)
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to list bank accounts")
		return
	}

	results := make([]BankAccountResponse, 0, len(recs))
	for _, rec := range recs {
		results = append(results, h.toResponse(rec))
	}
	WriteJSON(w, r.Context(), http.StatusOK, NewPage(r, pg, total, results))
}

// Get handles GET /v1/bank-account/{id}.
func (h *BankAccountHandlers) Get(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Bank account not found")
		return
	}

	rec, err := h.repo.GetByID(r.Context(), p.Username, id)
	if errors.Is(err, bankaccount.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Bank account not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load bank account")
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, h.toResponse(rec))
}

// Create handles POST /v1/bank-account. The audit entry is written on every
// exit path via defer, carrying whatever was validated before a failure.
func (h *BankAccountHandlers) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategoryBankAccount, audit.SubCategoryNone,
			changes.Wrap("추가"), succeeded)
	}()

	var req BankAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	fields := FieldErrors{}
	requireField(fields, "bank", req.Bank)
	requireField(fields, "account", req.Account)
	requireField(fields, "account_holder", req.AccountHolder)
	if !fields.Empty() {
		WriteFieldErrors(w, r.Context(), fields)
		return
	}

	// Encrypted columns never enter the trail in the clear.
	changes.Set("은행", *req.Bank)
	changes.Set("예금주", *req.AccountHolder)

	rec := &bankaccount.BankAccount{
		Owner:         p.Username,
		Bank:          *req.Bank,
		Account:       h.cipher.EncryptLenient(*req.Account),
		AccountHolder: *req.AccountHolder,
	}
	if req.Description != nil {
		rec.Description = h.cipher.EncryptLenient(*req.Description)
	} else {
		rec.Description = h.cipher.EncryptLenient("")
	}

	err := h.repo.Create(r.Context(), rec)
	if errors.Is(err, bankaccount.ErrDuplicate) {
		WriteError(w, r.Context(), http.StatusConflict, ErrCodeConflict, "A bank account with this bank and account number already exists")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to create bank account")
		return
	}

	succeeded = true
	WriteCreated(w, r.Context(), fmt.Sprintf("/v1/bank-account/%d", rec.ID), h.toResponse(rec))
}

// Update handles PUT and PATCH /v1/bank-account/{id}. Only the fields
// present in the body change; the audit entry carries one diff fragment per
// actually-changed field, with encrypted columns reduced to a marker.
func (h *BankAccountHandlers) Update(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategoryBankAccount, audit.SubCategoryNone,
			changes.Wrap("편집"), succeeded)
	}()

	id, err := PathID(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Bank account not found")
		return
	}

	var req BankAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	rec, err := h.repo.GetByID(r.Context(), p.Username, id)
	if errors.Is(err, bankaccount.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Bank account not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load bank account")
		return
	}

	if req.Bank != nil {
		changes.Diff("은행", rec.Bank, *req.Bank)
		rec.Bank = *req.Bank
	}
	if req.Account != nil {
		enc := h.cipher.EncryptLenient(*req.Account)
		if enc != rec.Account {
			changes.Mark("계좌번호 변경")
		}
		rec.Account = enc
	}
	if req.AccountHolder != nil {
		changes.Diff("예금주", rec.AccountHolder, *req.AccountHolder)
		rec.AccountHolder = *req.AccountHolder
	}
	if req.Description != nil {
		enc := h.cipher.EncryptLenient(*req.Description)
		if enc != rec.Description {
			changes.Mark("설명 변경")
		}
		rec.Description = enc
	}

	err = h.repo.Update(r.Context(), rec)
	if errors.Is(err, bankaccount.ErrDuplicate) {
		WriteError(w, r.Context(), http.StatusConflict, ErrCodeConflict, "A bank account with this bank and account number already exists")
		return
	}
	if errors.Is(err, bankaccount.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Bank account not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to update bank account")
		return
	}

	succeeded = true
	WriteJSON(w, r.Context(), http.StatusOK, h.toResponse(rec))
}

// Delete handles DELETE /v1/bank-account/{id}. The audit entry snapshots the
// row before it goes.
func (h *BankAccountHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategoryBankAccount, audit.SubCategoryNone,
			changes.Wrap("삭제"), succeeded)
	}()

	id, err := PathID(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Bank account not found")
		return
	}

	rec, err := h.repo.GetByID(r.Context(), p.Username, id)
	if errors.Is(err, bankaccount.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Bank account not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load bank account")
		return
	}

	changes.Set("은행", rec.Bank)
	changes.Set("예금주", rec.AccountHolder)

	if err := h.repo.Delete(r.Context(), p.Username, id); err != nil {
		if errors.Is(err, bankaccount.ErrNotFound) {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Bank account not found")
			return
		}
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to delete bank account")
		return
	}

	succeeded = true
	WriteNoContent(w)
}

// requireField records a violation when the value is absent or blank.
func requireField(fields FieldErrors, name string, value *string) {
	if value == nil || strings.TrimSpace(*value) == "" {
		fields.Add(name, "이 필드는 필수 항목입니다.")
	}
}
