package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"cumulus/internal/api"
	"cumulus/internal/models"
)

func (s *Server) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	account, err := s.auth.Register(r.Context(), req.Name, req.Email, req.Password, time.Now().UTC())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, api.RegisterResponse{
		Message:   "account created",
		AccountID: account.ID,
	})
}

func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	now := time.Now().UTC()
	limiterKey := loginAttemptKey(req.Email, r)
	if s.loginLimiter != nil && !s.loginLimiter.Allow(limiterKey, now) {
		s.writeErrorReq(w, r, http.StatusTooManyRequests, apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many login attempts; retry later"),
		})
		return
	}

	result, err := s.auth.Login(r.Context(), req.Email, req.Password, now)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			if s.loginLimiter != nil {
				s.loginLimiter.RegisterFailure(limiterKey, now)
			}
			s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("invalid credentials")))
			return
		}
		s.writeStoreError(w, r, err)
		return
	}
	if s.loginLimiter != nil {
		s.loginLimiter.Reset(limiterKey)
	}

	ttlSeconds := int(s.auth.SessionTTL() / time.Second)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    result.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   ttlSeconds,
		Expires:  result.ExpiresAt,
	})

	s.writeJSON(w, http.StatusOK, api.LoginResponse{
		AccessToken: result.Token,
		TokenType:   authTypeBearer,
		ExpiresAt:   result.ExpiresAt,
		Account:     accountResponse(result.Account),
	})
}

func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	token := sessionTokenFromRequest(r)
	if token != "" {
		if err := s.auth.RevokeSessionToken(r.Context(), token, time.Now().UTC()); err != nil {
			s.writeStoreError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   requestScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("unauthorized")))
		return
	}
	s.writeJSON(w, http.StatusOK, accountResponse(account))
}

func accountResponse(account *models.Account) api.AccountResponse {
	if account == nil {
		return api.AccountResponse{}
	}
	return api.AccountResponse{
		ID:           account.ID,
		Name:         account.Name,
		Email:        account.Email,
		StorageUsed:  account.StorageUsed,
		StorageLimit: account.StorageLimit,
	}
}

func loginAttemptKey(email string, r *http.Request) string {
	user := strings.ToLower(strings.TrimSpace(email))
	if user == "" {
		user = "<empty>"
	}
	ip := requestClientIP(r)
	if ip == "" {
		ip = "<unknown>"
	}
	return ip + "|" + user
}

func requestClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remote)
	if err == nil {
		return strings.TrimSpace(host)
	}
	return remote
}
