package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"parceldesk/core/auth"
	"parceldesk/core/rbac"
	"parceldesk/core/store"
	"parceldesk/core/utils"
)

type userDTO struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	UserType string `json:"user_type"`
	TenantID string `json:"tenant_id"`
	Active   bool   `json:"active"`
}

type loginResponse struct {
	User         userDTO `json:"user"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    int64   `json:"expires_in"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func toUserDTO(u *store.User) userDTO {
	return userDTO{
		ID:       strconv.FormatInt(u.ID, 10),
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
		UserType: u.UserType,
		TenantID: u.TenantID,
		Active:   u.Active,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var cred auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.authSvc.Login(r.Context(), cred, s.clientIP(r))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.metrics.loginFailures.Inc()
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if s.logger != nil {
			s.logger.Errorf("login: %v", err)
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.metrics.logins.Inc()
	writeJSON(w, http.StatusOK, loginResponse{
		User:         toUserDTO(res.User),
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		ExpiresIn:    res.Tokens.ExpiresIn,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.authSvc.Refresh(r.Context(), req.RefreshToken, s.clientIP(r))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			writeError(w, http.StatusUnauthorized, "refresh token revoked")
			return
		}
		if s.logger != nil {
			s.logger.Errorf("refresh: %v", err)
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.metrics.refreshes.Inc()
	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.authSvc.Logout(r.Context(), req.RefreshToken, s.clientIP(r))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := requestClaims(r)
	id, _ := strconv.ParseInt(claims.Subject, 10, 64)
	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || !user.Active {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        toUserDTO(user),
		"permissions": claims.Permissions,
	})
}

// handleMenu returns the navigation tree filtered down to what the
// caller's claims can see.
func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	claims := requestClaims(r)
	sub := &rbac.Subject{
		Role:        claims.Role,
		UserType:    claims.UserType,
		TenantID:    claims.TenantID,
		Permissions: claims.Permissions,
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"menu": rbac.FilterTree(sub, rbac.DefaultMenu()),
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	claims := requestClaims(r)
	users, err := s.users.List(r.Context(), claims.TenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]userDTO, 0, len(users))
	for i := range users {
		out = append(out, toUserDTO(&users[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

type createUserRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Role     string `json:"role"`
	UserType string `json:"user_type"`
	TenantID string `json:"tenant_id"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "email, password and role are required")
		return
	}
	email := utils.NormalizeEmail(req.Email)
	if err := utils.ValidateEmail(email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.policy.HasRole(req.Role) {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}
	ph, err := auth.HashPassword(req.Password, s.cfg.Pepper)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	user := &store.User{
		Email:        email,
		FullName:     req.FullName,
		Role:         req.Role,
		UserType:     req.UserType,
		TenantID:     req.TenantID,
		PasswordHash: ph.Hash,
		Salt:         ph.Salt,
		Active:       true,
	}
	id, err := s.users.Create(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusConflict, "user already exists")
		return
	}
	user.ID = id
	writeJSON(w, http.StatusCreated, map[string]any{"user": toUserDTO(user)})
}

func (s *Server) handleRevokeSessions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := s.authSvc.RevokeAllSessions(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleDeleteUser removes the account. Outstanding refresh tokens are
// rejected at the next rotation once the user row is gone.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err := s.users.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.roles.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

type saveRoleRequest struct {
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

func (s *Server) handleSaveRole(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req saveRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	valid, invalid := rbac.NormalizePermissionNames(req.Permissions)
	if len(invalid) > 0 {
		writeError(w, http.StatusBadRequest, "unknown permissions: "+invalid[0])
		return
	}
	role := &store.Role{Name: name, Description: req.Description, Permissions: valid}
	if err := s.roles.Save(r.Context(), role); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	// Tokens issued after this point carry the new permission set;
	// outstanding access tokens keep the old one until they expire.
	if err := s.refreshPolicy(r.Context()); err != nil && s.logger != nil {
		s.logger.Errorf("refresh policy: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	role, err := s.roles.Get(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if role == nil {
		writeError(w, http.StatusNotFound, "role not found")
		return
	}
	if role.BuiltIn {
		writeError(w, http.StatusConflict, "built-in roles cannot be deleted")
		return
	}
	if err := s.roles.Delete(r.Context(), name); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := s.refreshPolicy(r.Context()); err != nil && s.logger != nil {
		s.logger.Errorf("refresh policy: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	claims := requestClaims(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.audits.List(r.Context(), claims.TenantID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
