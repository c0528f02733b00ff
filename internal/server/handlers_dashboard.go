package server

import (
	"fmt"
	"net/http"
	"time"
)

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("unauthorized")))
		return
	}

	stats, err := s.files.Stats(r.Context(), account.ID, time.Now().UTC())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}
