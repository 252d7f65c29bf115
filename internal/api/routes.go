package api

import (
	"net/http"

	"github.com/oyeong/noteapi/internal/auth"
	"github.com/oyeong/noteapi/internal/middleware"
)

// Handlers bundles every handler group for route registration.
type Handlers struct {
	Auth         *AuthHandlers
	BankAccounts *BankAccountHandlers
	Notes        *NoteHandlers
	Serials      *SerialHandlers
	GuestBook    *GuestBookHandlers
	Users        *UserHandlers
	Audit        *AuditHandlers
	Dashboard    *DashboardHandlers
	Lotto        *LottoHandlers

	// LoginLimiter wraps the login endpoint; nil disables rate limiting.
	LoginLimiter func(http.Handler) http.Handler
}

// Register wires every route into the mux with its role policy. Record
// resources take any authenticated tier; user management is admin-gated. List
// GETs on the record resources are deliberately left ungated: the handlers
// answer anonymous callers with an empty page instead of an auth error.
func (h *Handlers) Register(mux *http.ServeMux) {
	admin := middleware.RequirePolicy(auth.AdminGate{})
	user := middleware.RequirePolicy(auth.UserGate{})
	superuser := middleware.RequirePolicy(auth.SuperuserOnly{})

	login := http.Handler(http.HandlerFunc(h.Auth.Login))
	if h.LoginLimiter != nil {
		login = h.LoginLimiter(login)
	}
	mux.Handle("POST /token", login)
	mux.HandleFunc("POST /token/refresh", h.Auth.Refresh)
	mux.HandleFunc("POST /token/verify", h.Auth.Verify)

	mux.HandleFunc("GET /v1/bank-account", h.BankAccounts.List)
	mux.Handle("POST /v1/bank-account", user(http.HandlerFunc(h.BankAccounts.Create)))
	mux.Handle("GET /v1/bank-account/{id}", user(http.HandlerFunc(h.BankAccounts.Get)))
	mux.Handle("PUT /v1/bank-account/{id}", user(http.HandlerFunc(h.BankAccounts.Update)))
	mux.Handle("PATCH /v1/bank-account/{id}", user(http.HandlerFunc(h.BankAccounts.Update)))
	mux.Handle("DELETE /v1/bank-account/{id}", user(http.HandlerFunc(h.BankAccounts.Delete)))

	mux.HandleFunc("GET /v1/note", h.Notes.List)
	mux.Handle("POST /v1/note", user(http.HandlerFunc(h.Notes.Create)))
	mux.Handle("GET /v1/note/{id}", user(http.HandlerFunc(h.Notes.Get)))
	mux.Handle("PUT /v1/note/{id}", user(http.HandlerFunc(h.Notes.Update)))
	mux.Handle("PATCH /v1/note/{id}", user(http.HandlerFunc(h.Notes.Update)))
	mux.Handle("DELETE /v1/note/{id}", user(http.HandlerFunc(h.Notes.Delete)))

	mux.HandleFunc("GET /v1/serial", h.Serials.List)
	mux.Handle("POST /v1/serial", user(http.HandlerFunc(h.Serials.Create)))
	mux.Handle("GET /v1/serial/{id}", user(http.HandlerFunc(h.Serials.Get)))
	mux.Handle("PUT /v1/serial/{id}", user(http.HandlerFunc(h.Serials.Update)))
	mux.Handle("PATCH /v1/serial/{id}", user(http.HandlerFunc(h.Serials.Update)))
	mux.Handle("DELETE /v1/serial/{id}", user(http.HandlerFunc(h.Serials.Delete)))

	mux.HandleFunc("GET /v1/guest-book", h.GuestBook.List)
	mux.Handle("POST /v1/guest-book", user(http.HandlerFunc(h.GuestBook.Create)))
	mux.Handle("GET /v1/guest-book/{id}", user(http.HandlerFunc(h.GuestBook.Get)))
	mux.Handle("PUT /v1/guest-book/{id}", user(http.HandlerFunc(h.GuestBook.Update)))
	mux.Handle("PATCH /v1/guest-book/{id}", user(http.HandlerFunc(h.GuestBook.Update)))
	mux.Handle("DELETE /v1/guest-book/{id}", user(http.HandlerFunc(h.GuestBook.Delete)))

	mux.Handle("GET /v1/users", admin(http.HandlerFunc(h.Users.List)))
	mux.Handle("POST /v1/users", admin(http.HandlerFunc(h.Users.Create)))
	mux.Handle("GET /v1/users/{id}", admin(http.HandlerFunc(h.Users.Get)))
	mux.Handle("PUT /v1/users/{id}", admin(http.HandlerFunc(h.Users.Update)))
	mux.Handle("PATCH /v1/users/{id}", admin(http.HandlerFunc(h.Users.Update)))
	mux.Handle("DELETE /v1/users/{id}", admin(http.HandlerFunc(h.Users.Delete)))

	mux.Handle("PUT /v1/account/user", user(http.HandlerFunc(h.Users.ChangePassword)))

	mux.Handle("GET /v1/audit-log", superuser(http.HandlerFunc(h.Audit.List)))
	mux.Handle("GET /v1/audit-log/export", superuser(http.HandlerFunc(h.Audit.ExportCSV)))

	mux.Handle("GET /v1/dashboard/stats", user(http.HandlerFunc(h.Dashboard.Stats)))
	mux.Handle("GET /v1/lotto", user(http.HandlerFunc(h.Lotto.Generate)))
}
