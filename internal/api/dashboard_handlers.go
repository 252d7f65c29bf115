package api

import (
	"net/http"

	"github.com/oyeong/noteapi/internal/bankaccount"
	"github.com/oyeong/noteapi/internal/guestbook"
	"github.com/oyeong/noteapi/internal/middleware"
	"github.com/oyeong/noteapi/internal/note"
	"github.com/oyeong/noteapi/internal/serial"
)

// DashboardStats carries the per-resource record counts for the caller.
type DashboardStats struct {
	BankAccounts int `json:"bank_accounts"`
	Notes        int `json:"notes"`
	Serials      int `json:"serials"`
	GuestBook    int `json:"guest_book"`
}

// DashboardHandlers holds dependencies for the dashboard stats endpoint.
type DashboardHandlers struct {
	bankAccounts bankaccount.Repository
	notes        note.Repository
	serials      serial.Repository
	guestBook    guestbook.Repository
}

// NewDashboardHandlers creates a new DashboardHandlers instance.
func NewDashboardHandlers(ba bankaccount.Repository, n note.Repository, s serial.Repository, gb guestbook.Repository) *DashboardHandlers {
	return &DashboardHandlers{bankAccounts: ba, notes: n, serials: s, guestBook: gb}
}

// Stats handles GET /v1/dashboard/stats: how many records of each kind the
// caller owns.
func (h *DashboardHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	ctx := r.Context()

	var stats DashboardStats
	var err error
	if stats.BankAccounts, err = h.bankAccounts.Count(ctx, p.Username); err != nil {
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load stats")
		return
	}
	if stats.Notes, err = h.notes.Count(ctx, p.Username); err != nil {
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load stats")
		return
	}
	if stats.Serials, err = h.serials.Count(ctx, p.Username); err != nil {
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load stats")
		return
	}
	if stats.GuestBook, err = h.guestBook.Count(ctx, p.Username); err != nil {
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load stats")
		return
	}

	WriteJSON(w, ctx, http.StatusOK, stats)
}
