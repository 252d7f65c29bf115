package auth

import "slices"

// Configured role group names. Tiers are ordered SUPERUSER > 관리자 > 사용자;
// the superuser flag lives on the account itself rather than in a group.
const (
	RoleAdmin = "관리자"
	RoleUser  = "사용자"
)

// ConfiguredRoles lists every role group that exists in the system.
var ConfiguredRoles = []string{RoleAdmin, RoleUser}

// IsConfiguredRole reports whether name is one of the configured role groups.
func IsConfiguredRole(name string) bool {
	return slices.Contains(ConfiguredRoles, name)
}

// Principal is the authenticated identity derived from a verified token.
// It is immutable for the duration of a request.
type Principal struct {
	Username  string
	Name      string
	Email     string
	Superuser bool
	Roles     []string
}

// HasRole reports whether the principal belongs to the named role group.
func (p *Principal) HasRole(name string) bool {
	return slices.Contains(p.Roles, name)
}

// IsAdmin reports whether the principal belongs to the 관리자 group.
func (p *Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// IsUser reports whether the principal belongs to the 사용자 group.
func (p *Principal) IsUser() bool {
	return p.HasRole(RoleUser)
}
