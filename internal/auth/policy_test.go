package auth

import (
	"net/http"
	"testing"
)

func principalWith(superuser bool, roles ...string) *Principal {
	return &Principal{Username: "p", Superuser: superuser, Roles: roles}
}

func TestSuperuserOnly(t *testing.T) {
	policy := SuperuserOnly{}

	if !policy.Allows(principalWith(true), http.MethodGet) {
		t.Error("superuser should be allowed")
	}
	if policy.Allows(principalWith(false, RoleAdmin, RoleUser), http.MethodGet) {
		t.Error("admin without superuser flag should be denied")
	}
	if policy.Allows(nil, http.MethodGet) {
		t.Error("anonymous should be denied")
	}
}

func TestAdminGate(t *testing.T) {
	policy := AdminGate{}

	tests := []struct {
		name   string
		p      *Principal
		method string
		want   bool
	}{
		{"user reads", principalWith(false, RoleUser), http.MethodGet, true},
		{"user writes", principalWith(false, RoleUser), http.MethodPost, false},
		{"user updates", principalWith(false, RoleUser), http.MethodPut, false},
		{"user deletes", principalWith(false, RoleUser), http.MethodDelete, false},
		{"admin reads", principalWith(false, RoleAdmin), http.MethodGet, true},
		{"admin writes", principalWith(false, RoleAdmin), http.MethodPost, true},
		{"superuser writes", principalWith(true), http.MethodDelete, true},
		{"no roles reads", principalWith(false), http.MethodGet, false},
		{"anonymous reads", nil, http.MethodGet, false},
		{"anonymous writes", nil, http.MethodPost, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Allows(tt.p, tt.method); got != tt.want {
				t.Errorf("Allows(%v, %s) = %v, want %v", tt.p, tt.method, got, tt.want)
			}
		})
	}
}

func TestUserGate(t *testing.T) {
	policy := UserGate{}

	tests := []struct {
		name   string
		p      *Principal
		method string
		want   bool
	}{
		{"user writes", principalWith(false, RoleUser), http.MethodPost, true},
		{"admin deletes", principalWith(false, RoleAdmin), http.MethodDelete, true},
		{"superuser reads", principalWith(true), http.MethodGet, true},
		{"no roles", principalWith(false), http.MethodPut, false},
		{"anonymous", nil, http.MethodGet, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Allows(tt.p, tt.method); got != tt.want {
				t.Errorf("Allows(%v, %s) = %v, want %v", tt.p, tt.method, got, tt.want)
			}
		})
	}
}

func TestIsConfiguredRole(t *testing.T) {
	if !IsConfiguredRole(RoleAdmin) || !IsConfiguredRole(RoleUser) {
		t.Error("configured roles should be recognized")
	}
	if IsConfiguredRole("운영자") {
		t.Error("unknown role should not be recognized")
	}
}
