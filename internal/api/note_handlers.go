package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oyeong/noteapi/internal/audit"
	"github.com/oyeong/noteapi/internal/cipher"
	"github.com/oyeong/noteapi/internal/middleware"
	"github.com/oyeong/noteapi/internal/note"
)

const dateTimeLayout = "2006-01-02 15:04:05"

// NoteRequest represents the request body for creating or updating a note.
type NoteRequest struct {
	Title *string `json:"title"`
	Note  *string `json:"note"`
}

// NoteResponse is the serialized form of one note, body decrypted.
type NoteResponse struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Note  string `json:"note"`
	Date  string `json:"date"`
}

// NoteHandlers holds dependencies for note HTTP handlers.
type NoteHandlers struct {
	repo     note.Repository
	cipher   *cipher.Cipher
	recorder *audit.Recorder
	pages    PageConfig
}

// NewNoteHandlers creates a new NoteHandlers instance.
func NewNoteHandlers(repo note.Repository, c *cipher.Cipher, rec *audit.Recorder, pages PageConfig) *NoteHandlers {
	return &NoteHandlers{repo: repo, cipher: c, recorder: rec, pages: pages}
}

func (h *NoteHandlers) toResponse(rec *note.Note) NoteResponse {
	return NoteResponse{
		ID:    rec.ID,
		Title: rec.Title,
		Note:  h.cipher.DecryptLenient(rec.Note),
		Date:  rec.Date.Format(dateTimeLayout),
	}
}

// List handles GET /v1/note. Anonymous callers get an empty page.
func (h *NoteHandlers) List(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	pg := ParsePagination(r, h.pages.Default, h.pages.Max)
	if p == nil {
		WriteJSON(w, r.Context(), http.StatusOK, NewPage(r, pg, 0, nil))
		return
	}

	q := r.URL.Query()
	filter := note.Filter{
		TitleContains: q.Get("title"),
		Ordering:      q.Get("ordering"),
		Page:          pg.Page,
		PageSize:      pg.PageSize,
	}
	if v := q.Get("note"); v != "" {
		filter.Note = h.cipher.EncryptLenient(v)
	}
	if v := q.Get("start_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filter.StartDate = &t
		}
	}
	if v := q.Get("end_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			end := t.Add(24*time.Hour - time.Nanosecond)
			filter.EndDate = &end
		}
	}

	recs, total, err := h.repo.List(r.Context(), p.Username, filter)
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to list notes")
		return
	}

	results := make([]NoteResponse, 0, len(recs))
	for _, rec := range recs {
		results = append(results, h.toResponse(rec))
	}
	WriteJSON(w, r.Context(), http.StatusOK, NewPage(r, pg, total, results))
}

// Get handles GET /v1/note/{id}.
func (h *NoteHandlers) Get(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Note not found")
		return
	}

	rec, err := h.repo.GetByID(r.Context(), p.Username, id)
	if errors.Is(err, note.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Note not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load note")
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, h.toResponse(rec))
}

// Create handles POST /v1/note.
func (h *NoteHandlers) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategoryNote, audit.SubCategoryNone,
			changes.Wrap("추가"), succeeded)
	}()

	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	fields := FieldErrors{}
	requireField(fields, "title", req.Title)
	requireField(fields, "note", req.Note)
	if !fields.Empty() {
		WriteFieldErrors(w, r.Context(), fields)
		return
	}

	changes.Set("제목", *req.Title)
	changes.Mark("노트")

	rec := &note.Note{
		Owner: p.Username,
		Title: *req.Title,
		Note:  h.cipher.EncryptLenient(*req.Note),
	}
	if err := h.repo.Create(r.Context(), rec); err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to create note")
		return
	}

	succeeded = true
	WriteCreated(w, r.Context(), fmt.Sprintf("/v1/note/%d", rec.ID), h.toResponse(rec))
}

// Update handles PUT and PATCH /v1/note/{id}.
func (h *NoteHandlers) Update(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategoryNote, audit.SubCategoryNone,
			changes.Wrap("편집"), succeeded)
	}()

	id, err := PathID(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Note not found")
		return
	}

	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	rec, err := h.repo.GetByID(r.Context(), p.Username, id)
	if errors.Is(err, note.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Note not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load note")
		return
	}

	if req.Title != nil {
		changes.Diff("제목", rec.Title, *req.Title)
		rec.Title = *req.Title
	}
	if req.Note != nil {
		enc := h.cipher.EncryptLenient(*req.Note)
		if enc != rec.Note {
			changes.Mark("노트 변경")
		}
		rec.Note = enc
	}

	if err := h.repo.Update(r.Context(), rec); err != nil {
		if errors.Is(err, note.ErrNotFound) {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Note not found")
			return
		}
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to update note")
		return
	}

	succeeded = true
	WriteJSON(w, r.Context(), http.StatusOK, h.toResponse(rec))
}

// Delete handles DELETE /v1/note/{id}.
func (h *NoteHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategoryNote, audit.SubCategoryNone,
			changes.Wrap("삭제"), succeeded)
	}()

	id, err := PathID(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Note not found")
		return
	}

	rec, err := h.repo.GetByID(r.Context(), p.Username, id)
	if errors.Is(err, note.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Note not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load note")
		return
	}

	changes.Set("제목", rec.Title)

	if err := h.repo.Delete(r.Context(), p.Username, id); err != nil {
		if errors.Is(err, note.ErrNotFound) {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Note not found")
			return
		}
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to delete note")
		return
	}

	succeeded = true
	WriteNoContent(w)
}
