package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oyeong/noteapi/internal/audit"
	"github.com/oyeong/noteapi/internal/guestbook"
	"github.com/oyeong/noteapi/internal/middleware"
)

const dateLayout = "2006-01-02"

// GuestBookRequest represents the request body for creating or updating a
// guest book entry. Date uses the 2006-01-02 layout.
type GuestBookRequest struct {
	Name        *string `json:"name"`
	Amount      *int64  `json:"amount"`
	Date        *string `json:"date"`
	Area        *string `json:"area"`
	Attend      *string `json:"attend"`
	Description *string `json:"description"`
}

// GuestBookResponse is the serialized form of one entry. Attend carries the
// stored code plus its display form.
type GuestBookResponse struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Amount        *int64  `json:"amount"`
	Date          *string `json:"date"`
	Area          string  `json:"area"`
	Attend        string  `json:"attend"`
	AttendDisplay string  `json:"attend_display"`
	Description   string  `json:"description"`
}

// GuestBookHandlers holds dependencies for guest book HTTP handlers.
type GuestBookHandlers struct {
	repo     guestbook.Repository
	recorder *audit.Recorder
	pages    PageConfig
}

// NewGuestBookHandlers creates a new GuestBookHandlers instance.
func NewGuestBookHandlers(repo guestbook.Repository, rec *audit.Recorder, pages PageConfig) *GuestBookHandlers {
	return &GuestBookHandlers{repo: repo, recorder: rec, pages: pages}
}

func toGuestBookResponse(rec *guestbook.GuestBook) GuestBookResponse {
	resp := GuestBookResponse{
		ID:            rec.ID,
		Name:          rec.Name,
		Amount:        rec.Amount,
		Area:          rec.Area,
		Attend:        rec.Attend,
		AttendDisplay: guestbook.AttendDisplay(rec.Attend),
		Description:   rec.Description,
	}
	if rec.Date != nil {
		d := rec.Date.Format(dateLayout)
		resp.Date = &d
	}
	return resp
}

// List handles GET /v1/guest-book. Anonymous callers get an empty page.
func (h *GuestBookHandlers) List(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	pg := ParsePagination(r, h.pages.Default, h.pages.Max)
	if p == nil {
		WriteJSON(w, r.Context(), http.StatusOK, NewPage(r, pg, 0, nil))
		return
	}

	q := r.URL.Query()
	filter := guestbook.Filter{
		NameContains:        q.Get("name"),
		AreaContains:        q.Get("area"),
		DescriptionContains: q.Get("description"),
		Ordering:            q.Get("ordering"),
		Page:                pg.Page,
		PageSize:            pg.PageSize,
	}
	if v := q.Get("start_date"); v != "" {
		if t, err := time.Parse(dateLayout, v); err == nil {
			filter.StartDate = &t
		}
	}
	if v := q.Get("end_date"); v != "" {
		if t, err := time.Parse(dateLayout, v); err == nil {
			filter.EndDate = &t
		}
	}

	recs, total, err := h.repo.List(r.Context(), p.Username, filter)
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to list guest book entries")
		return
	}

	results := make([]GuestBookResponse, 0, len(recs))
	for _, rec := range recs {
		results = append(results, toGuestBookResponse(rec))
	}
	WriteJSON(w, r.Context(), http.StatusOK, NewPage(r, pg, total, results))
}

// Get handles GET /v1/guest-book/{id}.
func (h *GuestBookHandlers) Get(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Guest book entry not found")
		return
	}

	rec, err := h.repo.GetByID(r.Context(), p.Username, id)
	if errors.Is(err, guestbook.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Guest book entry not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load guest book entry")
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, toGuestBookResponse(rec))
}

// Create handles POST /v1/guest-book.
func (h *GuestBookHandlers) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategoryGuestBook, audit.SubCategoryNone,
			changes.Wrap("추가"), succeeded)
	}()

	var req GuestBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	fields := FieldErrors{}
	requireField(fields, "name", req.Name)
	if req.Attend != nil && !guestbook.ValidAttend(*req.Attend) {
		fields.Add("attend", "참석 여부는 Y, N, - 중 하나여야 합니다.")
	}
	var date *time.Time
	if req.Date != nil && *req.Date != "" {
		t, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			fields.Add("date", "날짜 형식이 올바르지 않습니다.")
		} else {
			date = &t
		}
	}
	if !fields.Empty() {
		WriteFieldErrors(w, r.Context(), fields)
		return
	}

	rec := &guestbook.GuestBook{
		Owner:  p.Username,
		Name:   *req.Name,
		Amount: req.Amount,
		Date:   date,
		Attend: guestbook.AttendUnknown,
	}
	if req.Area != nil {
		rec.Area = *req.Area
	}
	if req.Attend != nil {
		rec.Attend = *req.Attend
	}
	if req.Description != nil {
		rec.Description = *req.Description
	}

	changes.Set("이름", rec.Name)
	if rec.Amount != nil {
		changes.Setf("금액", "%d", *rec.Amount)
	}
	if rec.Date != nil {
		changes.Set("날짜", rec.Date.Format(dateLayout))
	}
	if rec.Area != "" {
		changes.Set("장소", rec.Area)
	}
	changes.Set("참석", guestbook.AttendDisplay(rec.Attend))

	if err := h.repo.Create(r.Context(), rec); err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to create guest book entry")
		return
	}

	succeeded = true
	WriteCreated(w, r.Context(), fmt.Sprintf("/v1/guest-book/%d", rec.ID), toGuestBookResponse(rec))
}

// Update handles PUT and PATCH /v1/guest-book/{id}.
func (h *GuestBookHandlers) Update(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategoryGuestBook, audit.SubCategoryNone,
			changes.Wrap("편집"), succeeded)
	}()

	id, err := PathID(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Guest book entry not found")
		return
	}

	var req GuestBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	rec, err := h.repo.GetByID(r.Context(), p.Username, id)
	if errors.Is(err, guestbook.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Guest book entry not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load guest book entry")
		return
	}

	if req.Name != nil {
		changes.Diff("이름", rec.Name, *req.Name)
		rec.Name = *req.Name
	}
	if req.Amount != nil {
		changes.Diff("금액", formatAmount(rec.Amount), fmt.Sprintf("%d", *req.Amount))
		rec.Amount = req.Amount
	}
	if req.Date != nil {
		t, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			fields := FieldErrors{}
			fields.Add("date", "날짜 형식이 올바르지 않습니다.")
			WriteFieldErrors(w, r.Context(), fields)
			return
		}
		changes.Diff("날짜", formatDate(rec.Date), t.Format(dateLayout))
		rec.Date = &t
	}
	if req.Area != nil {
		changes.Diff("장소", rec.Area, *req.Area)
		rec.Area = *req.Area
	}
	if req.Attend != nil {
		if !guestbook.ValidAttend(*req.Attend) {
			fields := FieldErrors{}
			fields.Add("attend", "참석 여부는 Y, N, - 중 하나여야 합니다.")
			WriteFieldErrors(w, r.Context(), fields)
			return
		}
		changes.Diff("참석", guestbook.AttendDisplay(rec.Attend), guestbook.AttendDisplay(*req.Attend))
		rec.Attend = *req.Attend
	}
	if req.Description != nil {
		changes.Diff("설명", rec.Description, *req.Description)
		rec.Description = *req.Description
	}

	if err := h.repo.Update(r.Context(), rec); err != nil {
		if errors.Is(err, guestbook.ErrNotFound) {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Guest book entry not found")
			return
		}
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to update guest book entry")
		return
	}

	succeeded = true
	WriteJSON(w, r.Context(), http.StatusOK, toGuestBookResponse(rec))
}

// Delete handles DELETE /v1/guest-book/{id}.
func (h *GuestBookHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategoryGuestBook, audit.SubCategoryNone,
			changes.Wrap("삭제"), succeeded)
	}()

	id, err := PathID(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Guest book entry not found")
		return
	}

	rec, err := h.repo.GetByID(r.Context(), p.Username, id)
	if errors.Is(err, guestbook.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Guest book entry not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load guest book entry")
		return
	}

	changes.Set("이름", rec.Name)
	if rec.Area != "" {
		changes.Set("장소", rec.Area)
	}

	if err := h.repo.Delete(r.Context(), p.Username, id); err != nil {
		if errors.Is(err, guestbook.ErrNotFound) {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Guest book entry not found")
			return
		}
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to delete guest book entry")
		return
	}

	succeeded = true
	WriteNoContent(w)
}

func formatAmount(v *int64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
