// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"context"

	"github.com/oyeong/noteapi/internal/auth"
)

// principalKey is the context key for the authenticated principal.
type principalKey struct{}

// errorCodeKey is the context key for the error-code holder.
type errorCodeKey struct{}

// errorCodeHolder carries the error code of a response through the request
// context. It is a pointer so handlers can set the code after the logging
// middleware has already derived its context.
type errorCodeHolder struct {
	code      string
	principal *auth.Principal
}

// WithPrincipal stores the authenticated principal in the context.
// Called by the Authenticate middleware after validating the token. The
// principal is also recorded in the logging holder (when present) so the
// request log can include the username even though the logging middleware
// runs outside the authentication middleware.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	if h, ok := ctx.Value(errorCodeKey{}).(*errorCodeHolder); ok {
		h.principal = p
	}
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipal retrieves the authenticated principal from context.
// Returns nil for anonymous requests.
func GetPrincipal(ctx context.Context) *auth.Principal {
	if p, ok := ctx.Value(principalKey{}).(*auth.Principal); ok {
		return p
	}
	if h, ok := ctx.Value(errorCodeKey{}).(*errorCodeHolder); ok {
		return h.principal
	}
	return nil
}

// withErrorCodeHolder installs an error-code holder into the context.
func withErrorCodeHolder(ctx context.Context) context.Context {
	return context.WithValue(ctx, errorCodeKey{}, &errorCodeHolder{})
}

// SetErrorCode records the error code for the current request so the logging
// middleware can include it. No-op when no holder is installed (e.g. in
// handler unit tests that bypass the middleware chain).
func SetErrorCode(ctx context.Context, code string) {
	if h, ok := ctx.Value(errorCodeKey{}).(*errorCodeHolder); ok {
		h.code = code
	}
}

// GetErrorCode retrieves the error code recorded for the current request.
// Returns empty string if none was set.
func GetErrorCode(ctx context.Context) string {
	if h, ok := ctx.Value(errorCodeKey{}).(*errorCodeHolder); ok {
		return h.code
	}
	return ""
}
