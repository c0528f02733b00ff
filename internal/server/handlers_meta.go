package server

import (
	"net/http"

	"cumulus/internal/api"
)

const serviceVersion = "0.1.0"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.InfoResponse{
		Service: "cumulus",
		Version: serviceVersion,
	})
}
