package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/oyeong/noteapi/internal/audit"
	"github.com/oyeong/noteapi/internal/cipher"
	"github.com/oyeong/noteapi/internal/middleware"
	"github.com/oyeong/noteapi/internal/serial"
)

// SerialRequest represents the request body for creating or updating a
// serial number record.
type SerialRequest struct {
	Type        *string `json:"type"`
	Title       *string `json:"title"`
	Value       *string `json:"value"`
	Description *string `json:"description"`
}

// SerialResponse is the serialized form of one record, encrypted fields
// already decrypted.
type SerialResponse struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// SerialHandlers holds dependencies for serial number HTTP handlers.
type SerialHandlers struct {
	repo     serial.Repository
	cipher   *cipher.Cipher
	recorder *audit.Recorder
	pages    PageConfig
}

// NewSerialHandlers creates a new SerialHandlers instance.
func NewSerialHandlers(repo serial.Repository, c *cipher.Cipher, rec *audit.Recorder, pages PageConfig) *SerialHandlers {
	return &SerialHandlers{repo: repo, cipher: c, recorder: rec, pages: pages}
}

func (h *SerialHandlers) toResponse(rec *serial.Serial) SerialResponse {
	return SerialResponse{
		ID:          rec.ID,
		Type:        rec.Type,
		Title:       rec.Title,
		Value:       h.cipher.DecryptLenient(rec.Value),
		Description: h.cipher.DecryptLenient(rec.Description),
	}
}

// List handles GET /v1/serial. Anonymous callers get an empty page.
func (h *SerialHandlers) List(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	pg := ParsePagination(r, h.pages.Default, h.pages.Max)
	if p == nil {
		WriteJSON(w, r.Context(), http.StatusOK, NewPage(r, pg, 0, nil))
		return
	}

	q := r.URL.Query()
	filter := serial.Filter{
		TitleContains: q.Get("title"),
		Ordering:      q.Get("ordering"),
		Page:          pg.Page,
		PageSize:      pg.PageSize,
	}
	if v := q.Get("value"); v != "" {
		filter.Value = h.cipher.EncryptLenient(v)
	}
	if v := q.Get("description"); v != "" {
		filter.Description = h.cipher.EncryptLenient(v)
	}

	recs, total, err := h.repo.List(r.Context(), p.Username, filter)
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to list serials")
		return
	}

	results := make([]SerialResponse, 0, len(recs))
	for _, rec := range recs {
		results = append(results, h.toResponse(rec))
	}
	WriteJSON(w, r.Context(), http.StatusOK, NewPage(r, pg, total, results))
}

// Get handles GET /v1/serial/{id}.
func (h *SerialHandlers) Get(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Serial not found")
		return
	}

	rec, err := h.repo.GetByID(r.Context(), p.Username, id)
	if errors.Is(err, serial.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Serial not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load serial")
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, h.toResponse(rec))
}

// Create handles POST /v1/serial.
func (h *SerialHandlers) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategorySerial, audit.SubCategoryNone,
			changes.Wrap("추가"), succeeded)
	}()

	var req SerialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	fields := FieldErrors{}
	requireField(fields, "type", req.Type)
	requireField(fields, "title", req.Title)
	requireField(fields, "value", req.Value)
	if !fields.Empty() {
		WriteFieldErrors(w, r.Context(), fields)
		return
	}

	changes.Set("종류", *req.Type)
	changes.Set("제목", *req.Title)
	changes.Mark("시리얼 번호")

	rec := &serial.Serial{
		Owner: p.Username,
		Type:  *req.Type,
		Title: *req.Title,
		Value: h.cipher.EncryptLenient(*req.Value),
	}
	if req.Description != nil {
		rec.Description = h.cipher.EncryptLenient(*req.Description)
	} else {
		rec.Description = h.cipher.EncryptLenient("")
	}

	if err := h.repo.Create(r.Context(), rec); err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to create serial")
		return
	}

	succeeded = true
	WriteCreated(w, r.Context(), fmt.Sprintf("/v1/serial/%d", rec.ID), h.toResponse(rec))
}

// Update handles PUT and PATCH /v1/serial/{id}.
func (h *SerialHandlers) Update(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategorySerial, audit.SubCategoryNone,
			changes.Wrap("편집"), succeeded)
	}()

	id, err := PathID(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Serial not found")
		return
	}

	var req SerialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	rec, err := h.repo.GetByID(r.Context(), p.Username, id)
	if errors.Is(err, serial.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Serial not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load serial")
		return
	}

	if req.Type != nil {
		changes.Diff("종류", rec.Type, *req.Type)
		rec.Type = *req.Type
	}
	if req.Title != nil {
		changes.Diff("제목", rec.Title, *req.Title)
		rec.Title = *req.Title
	}
	if req.Value != nil {
		enc := h.cipher.EncryptLenient(*req.Value)
		if enc != rec.Value {
			changes.Mark("시리얼 번호 변경")
		}
		rec.Value = enc
	}
	if req.Description != nil {
		enc := h.cipher.EncryptLenient(*req.Description)
		if enc != rec.Description {
			changes.Mark("설명 변경")
		}
		rec.Description = enc
	}

	if err := h.repo.Update(r.Context(), rec); err != nil {
		if errors.Is(err, serial.ErrNotFound) {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Serial not found")
			return
		}
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to update serial")
		return
	}

	succeeded = true
	WriteJSON(w, r.Context(), http.StatusOK, h.toResponse(rec))
}

// Delete handles DELETE /v1/serial/{id}.
func (h *SerialHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategorySerial, audit.SubCategoryNone,
			changes.Wrap("삭제"), succeeded)
	}()

	id, err := PathID(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Serial not found")
		return
	}

	rec, err := h.repo.GetByID(r.Context(), p.Username, id)
	if errors.Is(err, serial.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Serial not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load serial")
		return
	}

	changes.Set("종류", rec.Type)
	changes.Set("제목", rec.Title)

	if err := h.repo.Delete(r.Context(), p.Username, id); err != nil {
		if errors.Is(err, serial.ErrNotFound) {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Serial not found")
			return
		}
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to delete serial")
		return
	}

	succeeded = true
	WriteNoContent(w)
}
