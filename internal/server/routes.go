package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/info", s.handleInfo)

	// Auth.
	mux.HandleFunc("POST /api/auth/register", s.handleAuthRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleAuthLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleAuthLogout)
	mux.Handle("GET /api/auth/me", s.withAccount(s.handleAuthMe))

	// Files.
	mux.Handle("POST /api/files/upload", s.withAccount(s.handleUploadFile))
	mux.Handle("GET /api/files", s.withAccount(s.handleListFiles))
	mux.Handle("GET /api/files/{id}", s.withAccount(s.handleGetFile))
	mux.Handle("GET /api/files/{id}/download", s.withAccount(s.handleDownloadFile))
	mux.Handle("DELETE /api/files/{id}", s.withAccount(s.handleDeleteFile))

	// Dashboard.
	mux.Handle("GET /api/dashboard/stats", s.withAccount(s.handleDashboardStats))

	return s.withRequestLogging(mux)
}
