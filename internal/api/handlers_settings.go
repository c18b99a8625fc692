package api

import (
	"net/http"

	"github.com/curatorr/curatorr/internal/httputil"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settingsRepo.GetAll()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "settings_failed", err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := httputil.ReadJSON(r, &updates); err != nil {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "invalid JSON body")
		return
	}
	if len(updates) == 0 {
		s.respondError(w, http.StatusBadRequest, httputil.CodeBadRequest, "no settings given")
		return
	}

	for key, value := range updates {
		if value == "" {
			if err := s.settingsRepo.Delete(key); err != nil {
				s.respondError(w, http.StatusInternalServerError, "settings_failed", err.Error())
				return
			}
			continue
		}
		if err := s.settingsRepo.Set(key, value); err != nil {
			s.respondError(w, http.StatusInternalServerError, "settings_failed", err.Error())
			return
		}
	}

	settings, err := s.settingsRepo.GetAll()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "settings_failed", err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, settings)
}
