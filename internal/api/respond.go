package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, ctx context.Context, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal response", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// WriteCreated writes a 201 with a Location header pointing at the new
// resource.
func WriteCreated(w http.ResponseWriter, ctx context.Context, location string, v any) {
	w.Header().Set("Location", location)
	WriteJSON(w, ctx, http.StatusCreated, v)
}

// WriteNoContent writes an empty 204.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Page carries the paginated list envelope: total count, links to the
// neighboring pages and the page of results.
type Page struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// Pagination holds the parsed page parameters for a list request.
type Pagination struct {
	Page     int
	PageSize int
}

// ParsePagination reads page and page_size from the query string. Absent or
// invalid values fall back to page 1 and the configured default size;
// page_size is capped at maxSize.
func ParsePagination(r *http.Request, defaultSize, maxSize int) Pagination {
	p := Pagination{Page: 1, PageSize: defaultSize}

	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.Page = n
		}
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.PageSize = n
		}
	}
	if maxSize > 0 && p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	return p
}

// NewPage assembles the envelope for one page of results. The next and
// previous links reuse the request's URL with the page parameter adjusted,
// and are null when the neighboring page does not exist. A nil results slice
// renders as an empty array.
func NewPage(r *http.Request, p Pagination, total int, results any) Page {
	page := Page{Count: total, Results: results}

	if results == nil {
		page.Results = []any{}
	}

	if p.PageSize > 0 && p.Page*p.PageSize < total {
		page.Next = pageLink(r, p.Page+1)
	}
	if p.Page > 1 {
		page.Previous = pageLink(r, p.Page-1)
	}
	return page
}

func pageLink(r *http.Request, page int) *string {
	u := *r.URL
	q := u.Query()
	q.Set("page", fmt.Sprintf("%d", page))
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}

// PathID parses the {id} path value of the request.
func PathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
