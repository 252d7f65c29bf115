package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/oyeong/noteapi/internal/account"
	"github.com/oyeong/noteapi/internal/audit"
	"github.com/oyeong/noteapi/internal/auth"
	"github.com/oyeong/noteapi/internal/middleware"
	"github.com/oyeong/noteapi/internal/validate"
)

// CreateUserRequest represents the request body for creating a user. All six
// fields are required.
type CreateUserRequest struct {
	Username   *string `json:"username"`
	Password   *string `json:"password"`
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Status     *string `json:"status"`
	Permission *string `json:"permission"`
}

// UpdateUserRequest represents the request body for a partial user update.
type UpdateUserRequest struct {
	Password   *string `json:"password"`
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Status     *string `json:"status"`
	Permission *string `json:"permission"`
}

// UserResponse is the serialized form of one user row.
type UserResponse struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Status     string  `json:"status"`
	Permission string  `json:"permission"`
	CreatedAt  string  `json:"created_at"`
	LastLogin  *string `json:"last_login"`
}

// UserHandlers holds dependencies for user management HTTP handlers.
type UserHandlers struct {
	repo     account.Repository
	recorder *audit.Recorder
	pages    PageConfig
}

// NewUserHandlers creates a new UserHandlers instance.
func NewUserHandlers(repo account.Repository, rec *audit.Recorder, pages PageConfig) *UserHandlers {
	return &UserHandlers{repo: repo, recorder: rec, pages: pages}
}

// permissionDisplay renders the user's effective tier.
func permissionDisplay(u *account.User) string {
	switch {
	case u.Superuser:
		return "SUPERUSER"
	case hasRole(u, auth.RoleAdmin):
		return auth.RoleAdmin
	default:
		return auth.RoleUser
	}
}

func hasRole(u *account.User, role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func toUserResponse(u *account.User) UserResponse {
	resp := UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.Name,
		Email:      u.Email,
		Status:     u.StatusDisplay(),
		Permission: permissionDisplay(u),
		CreatedAt:  u.CreatedAt.Format(dateTimeLayout),
	}
	if u.LastLogin != nil {
		t := u.LastLogin.Format(dateTimeLayout)
		resp.LastLogin = &t
	}
	return resp
}

// List handles GET /v1/users.
func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	pg := ParsePagination(r, h.pages.Default, h.pages.Max)

	q := r.URL.Query()
	filter := account.Filter{
		UsernameContains: q.Get("username"),
		NameContains:     q.Get("name"),
		EmailContains:    q.Get("email"),
		Role:             q.Get("permission"),
		Ordering:         q.Get("ordering"),
		Page:             pg.Page,
		PageSize:         pg.PageSize,
	}
	if v := q.Get("status"); v != "" {
		if active, ok := account.ParseStatus(v); ok {
			filter.Active = &active
		}
	}

	users, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to list users")
		return
	}

	results := make([]UserResponse, 0, len(users))
	for _, u := range users {
		results = append(results, toUserResponse(u))
	}
	WriteJSON(w, r.Context(), http.StatusOK, NewPage(r, pg, total, results))
}

// Get handles GET /v1/users/{id}.
func (h *UserHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "User not found")
		return
	}

	u, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, account.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "User not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load user")
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, toUserResponse(u))
}

// Create handles POST /v1/users. Every missing or malformed field yields its
// own itemized message; the permission value must name a configured role.
func (h *UserHandlers) Create(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategoryAccountMgmt, audit.SubCategoryUsers,
			changes.Wrap("추가"), succeeded)
	}()

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	fields := FieldErrors{}
	requireField(fields, "username", req.Username)
	requireField(fields, "password", req.Password)
	requireField(fields, "name", req.Name)
	requireField(fields, "email", req.Email)
	requireField(fields, "status", req.Status)
	requireField(fields, "permission", req.Permission)

	var active bool
	if req.Status != nil && *req.Status != "" {
		var ok bool
		if active, ok = account.ParseStatus(*req.Status); !ok {
			fields.Add("status", "상태는 활성화 또는 비활성화여야 합니다.")
		}
	}
	var email string
	if req.Email != nil && *req.Email != "" {
		var err error
		if email, err = validate.Email(*req.Email); err != nil {
			fields.Add("email", "유효한 이메일 주소를 입력하십시오.")
		}
	}
	if req.Permission != nil && *req.Permission != "" {
		if *req.Permission != auth.RoleAdmin && *req.Permission != auth.RoleUser {
			fields.Add("permission", "권한은 관리자 또는 사용자여야 합니다.")
		}
	}
	if !fields.Empty() {
		WriteFieldErrors(w, r.Context(), fields)
		return
	}

	// The permission value survived choice validation; it must still name a
	// role that actually exists in the configuration.
	if !auth.IsConfiguredRole(*req.Permission) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Role not found")
		return
	}

	hash, err := account.HashPassword(*req.Password)
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to hash password")
		return
	}

	changes.Set("아이디", *req.Username)
	changes.Set("이름", *req.Name)
	changes.Set("이메일", email)
	changes.Set("상태", *req.Status)
	changes.Set("권한", *req.Permission)

	u := &account.User{
		Username:     *req.Username,
		PasswordHash: hash,
		Name:         *req.Name,
		Email:        email,
		Active:       active,
		Roles:        []string{*req.Permission},
	}
	err = h.repo.Create(r.Context(), u)
	if errors.Is(err, account.ErrDuplicateUsername) {
		WriteError(w, r.Context(), http.StatusConflict, ErrCodeConflict, "A user with this username already exists")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to create user")
		return
	}

	succeeded = true
	WriteCreated(w, r.Context(), fmt.Sprintf("/v1/users/%d", u.ID), toUserResponse(u))
}

// Update handles PUT and PATCH /v1/users/{id}.
func (h *UserHandlers) Update(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategoryAccountMgmt, audit.SubCategoryUsers,
			changes.Wrap("편집"), succeeded)
	}()

	id, err := PathID(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "User not found")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	u, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, account.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "User not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load user")
		return
	}

	changes.Setf("아이디", "%s", u.Username)

	if req.Name != nil {
		changes.Diff("이름", u.Name, *req.Name)
		u.Name = *req.Name
	}
	if req.Email != nil {
		email, err := validate.Email(*req.Email)
		if err != nil {
			fields := FieldErrors{}
			fields.Add("email", "유효한 이메일 주소를 입력하십시오.")
			WriteFieldErrors(w, r.Context(), fields)
			return
		}
		changes.Diff("이메일", u.Email, email)
		u.Email = email
	}
	if req.Status != nil {
		active, ok := account.ParseStatus(*req.Status)
		if !ok {
			fields := FieldErrors{}
			fields.Add("status", "상태는 활성화 또는 비활성화여야 합니다.")
			WriteFieldErrors(w, r.Context(), fields)
			return
		}
		changes.Diff("상태", u.StatusDisplay(), *req.Status)
		u.Active = active
	}
	if req.Permission != nil {
		if *req.Permission != auth.RoleAdmin && *req.Permission != auth.RoleUser {
			fields := FieldErrors{}
			fields.Add("permission", "권한은 관리자 또는 사용자여야 합니다.")
			WriteFieldErrors(w, r.Context(), fields)
			return
		}
		if !auth.IsConfiguredRole(*req.Permission) {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Role not found")
			return
		}
		changes.Diff("권한", permissionDisplay(u), *req.Permission)
		u.Roles = []string{*req.Permission}
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := account.HashPassword(*req.Password)
		if err != nil {
			WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to hash password")
			return
		}
		changes.Mark("비밀번호 변경")
		u.PasswordHash = hash
	}

	err = h.repo.Update(r.Context(), u)
	if errors.Is(err, account.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "User not found")
		return
	}
	if errors.Is(err, account.ErrDuplicateUsername) {
		WriteError(w, r.Context(), http.StatusConflict, ErrCodeConflict, "A user with this username already exists")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to update user")
		return
	}

	succeeded = true
	WriteJSON(w, r.Context(), http.StatusOK, toUserResponse(u))
}

// Delete handles DELETE /v1/users/{id}. Deleting your own account is
// rejected so an admin cannot lock themselves out mid-session.
func (h *UserHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategoryAccountMgmt, audit.SubCategoryUsers,
			changes.Wrap("삭제"), succeeded)
	}()

	id, err := PathID(r)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "User not found")
		return
	}

	u, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, account.ErrNotFound) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "User not found")
		return
	}
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to load user")
		return
	}

	changes.Set("아이디", u.Username)

	if u.Username == p.Username {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "You cannot delete your own account")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "User not found")
			return
		}
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to delete user")
		return
	}

	succeeded = true
	WriteNoContent(w)
}

// ChangePasswordRequest represents the request body for the self-service
// password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles PUT /v1/account/user. A wrong current password
// answers 404 rather than 403 so the endpoint does not confirm that the
// account exists.
func (h *UserHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	changes := audit.NewChanges()
	succeeded := false
	defer func() {
		h.recorder.RecordRequest(r, &p.Username, audit.CategoryAccountMgmt, audit.SubCategoryUsers,
			changes.Wrap("편집"), succeeded)
	}()

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.NewPassword) == "" {
		fields := FieldErrors{}
		fields.Add("new_password", "이 필드는 필수 항목입니다.")
		WriteFieldErrors(w, r.Context(), fields)
		return
	}

	u, err := h.repo.GetByUsername(r.Context(), p.Username)
	if err != nil {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Not found")
		return
	}

	changes.Set("아이디", u.Username)
	changes.Mark("비밀번호 변경")

	if !account.CheckPassword(u.PasswordHash, req.CurrentPassword) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Not found")
		return
	}

	hash, err := account.HashPassword(req.NewPassword)
	if err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to hash password")
		return
	}
	u.PasswordHash = hash

	if err := h.repo.Update(r.Context(), u); err != nil {
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to change password")
		return
	}

	succeeded = true
	WriteJSON(w, r.Context(), http.StatusOK, map[string]string{"detail": "비밀번호가 변경되었습니다."})
}
