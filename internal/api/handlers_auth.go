package api

import (
	"net/http"

	"github.com/tmuhq/tmusync/internal/auth"
	"github.com/tmuhq/tmusync/internal/httputil"
	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Load().Version,
	})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleSetup creates the first admin account. It only works while the
// users table is empty; after that, account management is manual.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	n, err := s.users.Count()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "could not check setup state")
		return
	}
	if n > 0 {
		httputil.WriteError(w, http.StatusConflict, "already_setup", "setup has already been completed")
		return
	}

	var creds credentials
	if err := httputil.ReadJSON(r, &creds); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if creds.Username == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "username is required")
		return
	}
	if err := auth.ValidatePassword(creds.Password, 8, true); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "weak_password", "password does not meet requirements")
		return
	}

	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "could not hash password")
		return
	}

	user := &models.User{Username: creds.Username, PasswordHash: hash, Role: models.RoleAdmin}
	if err := s.users.Create(user); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "could not create user")
		return
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "could not issue token")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := httputil.ReadJSON(r, &creds); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	user, err := s.users.GetByUsername(creds.Username)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "login failed")
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, creds.Password) {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		return
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "could not issue token")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}
