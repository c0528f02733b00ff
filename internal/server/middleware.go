package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// withAccount resolves the session token from the Authorization header or the
// session cookie and attaches the owning account to the request context.
// Requests without a live session are rejected.
func (s *Server) withAccount(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionTokenFromRequest(r)
		if token == "" {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("authentication required")))
			return
		}

		account, err := s.auth.AuthenticateSessionToken(r.Context(), token, time.Now().UTC())
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if account == nil {
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("invalid or expired session")))
			return
		}

		next.ServeHTTP(w, r.WithContext(contextWithAccount(r.Context(), account)))
	})
}

func sessionTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[0]), "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func requestScheme(r *http.Request) string {
	if r == nil {
		return "http"
	}
	if r.TLS != nil {
		return "https"
	}
	if proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		return strings.ToLower(proto)
	}
	return "http"
}
