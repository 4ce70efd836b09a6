package api

import (
	"net/http"

	"github.com/tmuhq/tmusync/internal/httputil"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.GetAll()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "could not load settings")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := httputil.ReadJSON(r, &updates); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	for key, value := range updates {
		if err := s.settings.Set(key, value); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "internal", "could not save setting "+key)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"updated": len(updates)})
}
