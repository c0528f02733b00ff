package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cumulus/internal/blobstore"
	"cumulus/internal/config"
	"cumulus/internal/store"
)

const (
	allowRemoteEnvKey      = "CUMULUS_ALLOW_REMOTE"
	readHeaderTimeout      = 5 * time.Second
	readTimeout            = 30 * time.Second
	writeTimeout           = 60 * time.Second
	idleTimeout            = 60 * time.Second
	uploadConcurrencyLimit = 4
)

// Server wraps HTTP handlers for the cumulus API.
type Server struct {
	addr               string
	store              store.Backend
	files              *FileService
	auth               *AuthService
	logger             *slog.Logger
	maxUploadBytes     int64
	multipartMaxMemory int64
	uploadLimiter      chan struct{}
	loginLimiter       *loginRateLimiter
}

// New creates a new server instance.
func New(addr string, backend store.Backend, blobs blobstore.BlobStore, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}

	return &Server{
		addr:               addr,
		store:              backend,
		files:              NewFileService(backend, blobs, logger),
		auth:               NewAuthService(backend, backend, cfg.Storage.DefaultLimitBytes, time.Duration(cfg.Auth.SessionTTLHours)*time.Hour),
		logger:             logger,
		maxUploadBytes:     cfg.Uploads.MaxUploadBytes,
		multipartMaxMemory: cfg.Uploads.MultipartMaxMemory,
		uploadLimiter:      make(chan struct{}, uploadConcurrencyLimit),
		loginLimiter: newLoginRateLimiter(
			cfg.Auth.LoginMaxFailures,
			time.Duration(cfg.Auth.LoginWindowSeconds)*time.Second,
			time.Duration(cfg.Auth.LoginBlockedSeconds)*time.Second,
		),
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
