package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"infocomp/internal/auth"
	"infocomp/internal/session"
)

const maxLoginBody = 64 << 10

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// readLoginRequest accepts a JSON body or a urlencoded/multipart form.
func readLoginRequest(r *http.Request) (loginRequest, error) {
	var req loginRequest
	mt, _, _ := mime.ParseMediaType(r.Header.Get("content-type"))
	if mt == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}
	if err := r.ParseMultipartForm(maxLoginBody); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return req, err
	}
	req.Email = r.PostFormValue("email")
	req.Password = r.PostFormValue("password")
	return req, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil {
		if ok, wait := s.limiter.Allow(clientIP(r)); !ok {
			w.Header().Set("retry-after", retryAfterSeconds(wait))
			writeError(w, http.StatusTooManyRequests, msgTooManyAttempts)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBody)
	req, err := readLoginRequest(r)
	if err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, msgCredentialsRequired)
		return
	}

	u, err := s.Auth.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.Logger.Info("login rejected", "remote_ip", clientIP(r))
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}
	if err != nil {
		s.internalError(w, r, "login", err)
		return
	}

	if err := s.Sessions.Establish(w, r, u.ID, u.IsAdmin); err != nil {
		s.internalError(w, r, "create session", err)
		return
	}
	s.Logger.Info("login", "user_id", u.ID, "admin", u.IsAdmin)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "isAdmin": u.IsAdmin})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Destroy(w, r); err != nil {
		s.Logger.Warn("destroy session", "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	info := session.FromContext(r.Context())
	if !info.Authenticated {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "isAdmin": info.IsAdmin})
}
