package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/oyeong/noteapi/internal/account"
	"github.com/oyeong/noteapi/internal/audit"
	"github.com/oyeong/noteapi/internal/auth"
)

// LoginRequest represents the request body for POST /token.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries a freshly issued token pair with the expiry of each
// as a Unix timestamp.
type TokenResponse struct {
	Access     string `json:"access"`
	AccessExp  int64  `json:"access_exp"`
	Refresh    string `json:"refresh"`
	RefreshExp int64  `json:"refresh_exp"`
}

// RefreshRequest represents the request body for POST /token/refresh.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// VerifyRequest represents the request body for POST /token/verify.
type VerifyRequest struct {
	Token string `json:"token"`
}

// AuthHandlers holds dependencies for the token endpoints.
type AuthHandlers struct {
	users    account.Repository
	tokens   *auth.TokenService
	recorder *audit.Recorder
}

// NewAuthHandlers creates a new AuthHandlers instance.
func NewAuthHandlers(users account.Repository, tokens *auth.TokenService, rec *audit.Recorder) *AuthHandlers {
	return &AuthHandlers{users: users, tokens: tokens, recorder: rec}
}

func principalFor(u *account.User) *auth.Principal {
	return &auth.Principal{
		Username:  u.Username,
		Name:      u.Name,
		Email:     u.Email,
		Superuser: u.Superuser,
		Roles:     u.Roles,
	}
}

// Login handles POST /token. Every attempt, successful or not, lands in the
// audit trail with the attempted username when one was supplied.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var actor *string
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, actor, audit.CategoryAccount, audit.SubCategoryLogin,
			"로그인", succeeded)
	}()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Username != "" {
		actor = &req.Username
	}

	u, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil || !u.Active || !account.CheckPassword(u.PasswordHash, req.Password) {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid username or password")
		return
	}

	resp, err := h.issueTokens(principalFor(u))
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to issue tokens")
		return
	}

	// Best effort, like the audit write: a failed stamp must not fail the
	// login itself.
	_ = h.users.TouchLastLogin(r.Context(), u.ID, time.Now().UTC())

	succeeded = true
	WriteJSON(w, r.Context(), http.StatusOK, resp)
}

// Refresh handles POST /token/refresh. The claim set is rebuilt from storage
// so role and status changes since login take effect.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	claims, err := h.tokens.ValidateRefreshToken(req.Refresh)
	if err != nil {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid or expired refresh token")
		return
	}

	u, err := h.users.GetByUsername(r.Context(), claims.Subject)
	if err != nil || !u.Active {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid or expired refresh token")
		return
	}

	resp, err := h.issueTokens(principalFor(u))
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to issue tokens")
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, resp)
}

// Verify handles POST /token/verify. Valid tokens of either type get an
// empty 200; anything else gets 401.
func (h *AuthHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if _, err := h.tokens.ValidateToken(req.Token); err != nil {
		WriteError(w, r.Context(), http.StatusUnauthorized, ErrCodeAuthFailed, "Token is invalid or expired")
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{})
}

func (h *AuthHandlers) issueTokens(p *auth.Principal) (*TokenResponse, error) {
	now := time.Now()

	access, err := h.tokens.GenerateAccessToken(p)
	if err != nil {
		return nil, err
	}
	refresh, err := h.tokens.GenerateRefreshToken(p.Username)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		Access:     access,
		AccessExp:  now.Add(auth.AccessTokenExpiry).Unix(),
		Refresh:    refresh,
		RefreshExp: now.Add(auth.RefreshTokenExpiry).Unix(),
	}, nil
}
