package api

import (
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/curatorr/curatorr/internal/auth"
	"github.com/curatorr/curatorr/internal/httputil"
	"github.com/curatorr/curatorr/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "db_down", "database unreachable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "invalid JSON body")
		return
	}

	user, err := s.userRepo.GetByUsername(req.Username)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "login_failed", "lookup failed")
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}

	token, err := s.auth.IssueToken(user.ID, user.Username)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "login_failed", "token issue failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// EnsureAdminUser creates the initial admin account on first boot when no
// users exist and ADMIN_PASSWORD is configured.
func (s *Server) EnsureAdminUser() error {
	count, err := s.userRepo.Count()
	if err != nil {
		return err
	}
	if count > 0 || s.config.AdminPassword == "" {
		return nil
	}

	hash, err := auth.HashPassword(s.config.AdminPassword)
	if err != nil {
		return err
	}
	user := &models.User{
		ID:           uuid.New(),
		Username:     s.config.AdminUser,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(user); err != nil {
		return err
	}
	log.Printf("Auth: created initial admin user %q", user.Username)
	return nil
}
