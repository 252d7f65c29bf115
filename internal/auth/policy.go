package auth

import "net/http"

// Policy decides whether a principal may perform a request with the given
// HTTP method. Evaluation is purely role-based and happens once per request
// before any handler logic runs; a deny always results in a uniform
// forbidden response, never partial execution.
type Policy interface {
	Allows(p *Principal, method string) bool
}

// safeMethod reports whether the method is read-only.
func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// SuperuserOnly allows only accounts with the superuser flag.
type SuperuserOnly struct{}

// Allows implements Policy.
func (SuperuserOnly) Allows(p *Principal, method string) bool {
	return p != nil && p.Superuser
}

// AdminGate allows reads for any authenticated tier and writes for admins
// and superusers only. Used by account-management resources.
type AdminGate struct{}

// Allows implements Policy.
func (AdminGate) Allows(p *Principal, method string) bool {
	if p == nil {
		return false
	}
	if safeMethod(method) {
		return p.Superuser || p.IsAdmin() || p.IsUser()
	}
	return p.Superuser || p.IsAdmin()
}

// UserGate allows any authenticated tier for all methods.
type UserGate struct{}

// Allows implements Policy.
func (UserGate) Allows(p *Principal, method string) bool {
	if p == nil {
		return false
	}
	return p.Superuser || p.IsAdmin() || p.IsUser()
}
