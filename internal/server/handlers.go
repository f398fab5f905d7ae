package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coachdesk/coachdesk/internal/backend"
	"github.com/coachdesk/coachdesk/internal/models"
	"github.com/coachdesk/coachdesk/internal/notify"
	"github.com/coachdesk/coachdesk/internal/router"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	sess := s.app.Session
	if err := sess.Login(r.Context(), req.Email, req.Password); err != nil {
		writeBackendError(w, err, sess.Err())
		return
	}
	writeJSON(w, http.StatusOK, sess.User())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.app.Session.Logout()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := s.app.Session
	if sess.NeedsProfile() {
		s.app.Authorizer.ResolveSession(r.Context())
	}
	user := sess.User()
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profile": user,
		"caller":  userInfoFromContext(r),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	created, err := s.app.Session.Register(r.Context(), reg)
	if err != nil {
		writeBackendError(w, err, s.app.Session.Err())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type navigateRequest struct {
	Path string `json:"path"`
}

type navigateResponse struct {
	router.Navigation
	Notifications []notify.Notification `json:"notifications"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	nav, err := s.app.Navigator.Push(r.Context(), req.Path)
	switch {
	case errors.Is(err, router.ErrNoRoute):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, router.ErrRedirectLoop):
		s.log.Error("navigation failed", "path", req.Path, "error", err)
		writeJSON(w, http.StatusLoopDetected, map[string]string{"error": err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if s.app.Audit != nil {
		caller := userInfoFromContext(r)
		if err := s.app.Audit.TouchCaller(r.Context(), caller.Login, caller.DisplayName); err != nil {
			s.log.Warn("failed to record caller", "login", caller.Login, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, navigateResponse{
		Navigation:    nav,
		Notifications: s.app.Snackbar.Drain(),
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	msgs := s.app.Snackbar.Drain()
	if msgs == nil {
		msgs = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeBackendError relays the backend status of a failed mutation, or 502
// when the backend could not be reached.
func writeBackendError(w http.ResponseWriter, err error, msg string) {
	status := backend.StatusOf(err)
	if status == 0 {
		status = http.StatusBadGateway
	}
	if msg == "" {
		msg = backend.GenericMessage
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError reports a read whose failure the store already absorbed.
func writeStoreError(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = backend.GenericMessage
	}
	writeJSON(w, http.StatusBadGateway, map[string]string{"error": msg})
}
