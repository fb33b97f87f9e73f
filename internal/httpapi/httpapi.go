// Package httpapi serves the JSON API, uploaded images and the embedded
// frontend.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"infocomp/internal/auth"
	"infocomp/internal/db"
	"infocomp/internal/images"
	"infocomp/internal/session"
	"infocomp/internal/webui"
)

// Error bodies shown to the browser.
const (
	msgCredentialsRequired = "email y password requeridos"
	msgInvalidCredentials  = "Credenciales inválidas"
	msgUnauthorized        = "Unauthorized"
	msgForbidden           = "Forbidden - admin only"
	msgNameRequired        = "name requerido"
	msgImageType           = "Tipo de imagen no permitido"
	msgImageTooLarge       = "Imagen demasiado grande"
	msgTooManyAttempts     = "Demasiados intentos, espera un momento"
	msgInternal            = "Error interno"
	msgNotFound            = "No encontrado"
	msgMethodNotAllowed    = "Método no permitido"
)

// Store is the slice of *db.DB the handlers use.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (*db.User, bool, error)
	CreateInfo(ctx context.Context, in db.NewInfo) (int64, error)
	GetInfo(ctx context.Context, id int64) (*db.Info, bool, error)
	ListInfos(ctx context.Context) ([]db.Info, error)
}

type Server struct {
	Store    Store
	Auth     *auth.Authenticator
	Sessions *session.Manager
	Images   *images.Pipeline
	Logger   *slog.Logger

	MaxUploadBytes int64
	// LoginRateLimit is attempts per minute per client IP; 0 disables it.
	LoginRateLimit int

	limiter *fixedWindowLimiter
	uploads http.FileSystem
}

func (s *Server) validate() error {
	switch {
	case s.Store == nil:
		return errors.New("store is required")
	case s.Auth == nil:
		return errors.New("authenticator is required")
	case s.Sessions == nil:
		return errors.New("session manager is required")
	case s.Images == nil:
		return errors.New("image pipeline is required")
	case s.MaxUploadBytes <= 0:
		return errors.New("max upload bytes must be positive")
	}
	return nil
}

// Handler builds the router. Call Close when the handler is retired.
func (s *Server) Handler() (http.Handler, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.LoginRateLimit > 0 && s.limiter == nil {
		s.limiter = newFixedWindowLimiter(s.LoginRateLimit, time.Minute)
	}
	s.uploads = afero.NewHttpFs(s.Images.FS).Dir(s.Images.Dir)

	frontend, err := webui.Handler()
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.withSession)
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	api.HandleFunc("/info", s.handleListInfos).Methods(http.MethodGet)
	api.Handle("/info", requireAuthenticated(requireAdmin(http.HandlerFunc(s.handleCreateInfo)))).Methods(http.MethodPost)
	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, msgNotFound)
	})
	api.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})

	r.HandleFunc("/uploads/{file}", s.handleUploadFile).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(frontend).Methods(http.MethodGet, http.MethodHead)

	return s.withRecover(s.withRequestLog(withSecurityHeaders(r))), nil
}

// Close stops background work started by Handler.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
		s.limiter = nil
	}
}

// withSession resolves the session cookie once and stores the result in the
// request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := s.Sessions.Current(r)
		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), info)))
	})
}

func requireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.FromContext(r.Context()).Authenticated {
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.FromContext(r.Context()).IsAdmin {
			writeError(w, http.StatusForbidden, msgForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// internalError logs err with request context and answers with an opaque 500.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.Logger.Error(op+" failed", "method", r.Method, "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, msgInternal)
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-content-type-options", "nosniff")
		w.Header().Set("x-frame-options", "DENY")
		w.Header().Set("referrer-policy", "no-referrer")
		w.Header().Set("content-security-policy", "default-src 'self'; img-src 'self' blob: data:; object-src 'none'; base-uri 'self'; frame-ancestors 'none'")
		if r.TLS != nil {
			w.Header().Set("strict-transport-security", "max-age=31536000")
		}
		next.ServeHTTP(w, r)
	})
}
