package api

import (
	"net/http"
	"time"

	"github.com/oyeong/noteapi/internal/audit"
)

// AuditEntryResponse is the serialized form of one audit trail entry. The IP
// is rendered back to dotted-quad form and the result as its display string.
type AuditEntryResponse struct {
	ID          int64  `json:"id"`
	User        string `json:"user"`
	IP          string `json:"ip"`
	Category    string `json:"category"`
	SubCategory string `json:"sub_category"`
	Action      string `json:"action"`
	Result      string `json:"result"`
	Date        string `json:"date"`
}

// AuditHandlers holds dependencies for the audit trail HTTP handlers.
type AuditHandlers struct {
	repo  audit.Repository
	pages PageConfig
}

// NewAuditHandlers creates a new AuditHandlers instance.
func NewAuditHandlers(repo audit.Repository, pages PageConfig) *AuditHandlers {
	return &AuditHandlers{repo: repo, pages: pages}
}

func toAuditResponse(e audit.Entry) AuditEntryResponse {
	resp := AuditEntryResponse{
		ID:          e.ID,
		Category:    e.Category,
		SubCategory: e.SubCategory,
		Action:      e.Action,
		Result:      e.Result.String(),
		Date:        e.Date.Format(dateTimeLayout),
	}
	if e.Actor != nil {
		resp.User = *e.Actor
	}
	if e.IP != nil {
		resp.IP = audit.IntToIP(*e.IP)
	}
	return resp
}

// parseFilter reads the audit query parameters shared by List and ExportCSV.
func parseAuditFilter(r *http.Request) audit.Filter {
	q := r.URL.Query()
	filter := audit.Filter{
		UserContains:   q.Get("user"),
		IP:             q.Get("ip"),
		Category:       q.Get("category"),
		SubCategory:    q.Get("sub_category"),
		ActionContains: q.Get("action"),
		Ordering:       q.Get("ordering"),
	}
	if v := q.Get("result"); v != "" {
		if res, ok := audit.ParseResult(v); ok {
			filter.Result = &res
		}
	}
	if v := q.Get("start_date"); v != "" {
		if t, err := time.Parse(dateLayout, v); err == nil {
			filter.StartDate = &t
		}
	}
	if v := q.Get("end_date"); v != "" {
		if t, err := time.Parse(dateLayout, v); err == nil {
			end := t.Add(24*time.Hour - time.Nanosecond)
			filter.EndDate = &end
		}
	}
	return filter
}

// List handles GET /v1/audit-log. Routing restricts this to superusers.
func (h *AuditHandlers) List(w http.ResponseWriter, r *http.Request) {
	pg := ParsePagination(r, h.pages.Default, h.pages.Max)

	filter := parseAuditFilter(r)
	filter.Page = pg.Page
	filter.PageSize = pg.PageSize

	entries, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to list audit entries")
		return
	}

	results := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		results = append(results, toAuditResponse(e))
	}
	WriteJSON(w, r.Context(), http.StatusOK, NewPage(r, pg, total, results))
}

// ExportCSV handles GET /v1/audit-log/export. The same filters as List
// apply; the full match set is streamed as a CSV attachment.
func (h *AuditHandlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := audit.ExportCSV(r.Context(), h.repo, parseAuditFilter(r))
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to export audit entries")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-log.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
