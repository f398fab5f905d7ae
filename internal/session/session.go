// Package session holds the authenticated identity of the application
// instance: the persisted bearer token and the lazily loaded profile.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/coachdesk/coachdesk/internal/backend"
	"github.com/coachdesk/coachdesk/internal/credentials"
	"github.com/coachdesk/coachdesk/internal/models"
	"github.com/coachdesk/coachdesk/internal/notify"
)

// ErrNotLoggedIn is returned by operations that need a loaded profile.
var ErrNotLoggedIn = errors.New("user not logged in")

var loginMessages = backend.Messages{
	http.StatusUnauthorized: "Invalid credentials, please try again.",
	http.StatusBadRequest:   "The email format is invalid.",
}

var registerMessages = backend.Messages{
	http.StatusConflict: "An account with this email already exists.",
}

// Session is the SessionIdentity of one application instance. It is safe
// for concurrent use.
type Session struct {
	api   backend.API
	creds credentials.Store
	sink  notify.Sink
	log   *slog.Logger

	mu          sync.RWMutex
	token       string
	user        *models.Profile
	loading     bool
	err         string
	initialized bool
}

// New creates a Session, restoring any token persisted in creds.
func New(api backend.API, creds credentials.Store, sink notify.Sink, log *slog.Logger) *Session {
	s := &Session{api: api, creds: creds, sink: sink, log: log}
	token, ok, err := creds.Get(credentials.TokenKey)
	if err != nil {
		log.Warn("reading stored token", "error", err)
	}
	if ok {
		s.token = token
	}
	return s
}

// Initialize fetches the profile once when a token is present.
func (s *Session) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = true
	hasToken := s.token != ""
	s.mu.Unlock()

	if hasToken {
		_ = s.FetchUser(ctx)
	}
}

// Login exchanges credentials for a token, persists it and loads the profile.
func (s *Session) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
	defer s.setLoading(false)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	err := s.api.Post(ctx, "/profiles/login", map[string]string{"email": email, "password": password}, &resp)
	if err == nil && resp.AccessToken == "" {
		err = errors.New("login response carried no access token")
	}
	if err != nil {
		s.log.Error("login failed", "error", err)
		msg := loginMessages.Message(err, "An error occurred while logging in, please try again.")
		s.mu.Lock()
		s.err = msg
		s.token = ""
		s.mu.Unlock()
		s.notifyError(msg)
		return fmt.Errorf("login: %w", err)
	}

	s.mu.Lock()
	s.token = resp.AccessToken
	s.mu.Unlock()
	if err := s.creds.Set(credentials.TokenKey, resp.AccessToken); err != nil {
		s.log.Warn("persisting token", "error", err)
	}

	_ = s.FetchUser(ctx)

	name := email
	if n := s.UserName(); n != "" {
		name = n
	}
	if s.sink != nil {
		s.sink.Success(fmt.Sprintf("Welcome %s!", name), 0)
	}
	return nil
}

// Logout forgets the token and profile.
func (s *Session) Logout() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := s.creds.Remove(credentials.TokenKey); err != nil {
		s.log.Warn("removing stored token", "error", err)
	}
	if s.sink != nil {
		s.sink.Info("You have been logged out.", 0)
	}
}

// FetchUser loads the profile for the current token. A 401 response ends
// the session. Other failures leave the profile absent; the error is
// returned for logging only.
func (s *Session) FetchUser(ctx context.Context) error {
	if s.Token() == "" {
		return nil
	}

	var user models.Profile
	if err := s.api.Get(ctx, "/profiles/me", &user); err != nil {
		s.log.Error("fetching user", "error", err)
		if backend.StatusOf(err) == http.StatusUnauthorized {
			s.notifyError("Session expired, please log in again.")
			s.Logout()
		}
		return fmt.Errorf("fetching user: %w", err)
	}

	s.mu.Lock()
	s.user = &user
	s.err = ""
	s.mu.Unlock()
	return nil
}

// Register creates an account. It does not log the user in.
func (s *Session) Register(ctx context.Context, reg models.Registration) (*models.Profile, error) {
	var created models.Profile
	if err := s.api.Post(ctx, "/profiles", reg, &created); err != nil {
		msg := registerMessages.Message(err, "An error occurred during registration.")
		s.setError(msg)
		s.notifyError(msg)
		return nil, fmt.Errorf("register: %w", err)
	}
	if s.sink != nil {
		s.sink.Success("Account created, you can now log in.", 0)
	}
	return &created, nil
}

// UpdateProfile patches profile fields and merges the response into the
// loaded profile.
func (s *Session) UpdateProfile(ctx context.Context, fields map[string]any) error {
	return s.patchProfile(ctx, "", fields, "Profile updated.")
}

// UpdateEmail changes the account email.
func (s *Session) UpdateEmail(ctx context.Context, email string) error {
	return s.patchProfile(ctx, "/email", map[string]string{"email": email}, "Email updated.")
}

// UpdatePassword changes the account password.
func (s *Session) UpdatePassword(ctx context.Context, password string) error {
	return s.patchProfile(ctx, "/password", map[string]string{"password": password}, "Password updated.")
}

func (s *Session) patchProfile(ctx context.Context, suffix string, body any, success string) error {
	id := s.UserID()
	if id == "" {
		return ErrNotLoggedIn
	}

	var resp json.RawMessage
	if err := s.api.Patch(ctx, "/profiles/"+id+suffix, body, &resp); err != nil {
		msg := backend.DetailOf(err)
		if msg == "" {
			msg = backend.Messages{}.Message(err, "")
		}
		s.setError(msg)
		s.notifyError(msg)
		return fmt.Errorf("updating profile: %w", err)
	}

	if len(resp) > 0 {
		s.mu.Lock()
		if s.user != nil {
			merged := *s.user
			merged.Roles = slices.Clone(s.user.Roles)
			if err := json.Unmarshal(resp, &merged); err == nil {
				s.user = &merged
			}
		}
		s.mu.Unlock()
	}
	if s.sink != nil {
		s.sink.Success(success, 0)
	}
	return nil
}

// ClearError resets the error state.
func (s *Session) ClearError() { s.setError("") }

// Token returns the bearer token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the loaded profile, or nil.
func (s *Session) User() *models.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	u.Roles = slices.Clone(s.user.Roles)
	return &u
}

// NeedsProfile reports whether a token is present but no profile is loaded.
func (s *Session) NeedsProfile() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user == nil
}

// IsAuthenticated reports whether both a token and a profile are present.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// HasRole reports whether the user holds at least one of roles.
func (s *Session) HasRole(roles ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return false
	}
	for _, r := range s.user.Roles {
		if slices.Contains(roles, r) {
			return true
		}
	}
	return false
}

func (s *Session) IsAdmin() bool { return s.HasRole(models.RoleAdmin) }
func (s *Session) IsCoach() bool { return s.HasRole(models.RoleCoach) }

// Roles returns the user's roles, or nil.
func (s *Session) Roles() []string {
	if u := s.User(); u != nil {
		return u.Roles
	}
	return nil
}

func (s *Session) UserID() string {
	if u := s.User(); u != nil {
		return u.ID
	}
	return ""
}

func (s *Session) UserName() string {
	if u := s.User(); u != nil {
		return u.Name
	}
	return ""
}

func (s *Session) UserEmail() string {
	if u := s.User(); u != nil {
		return u.Email
	}
	return ""
}

// Loading reports whether a login is in progress.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last user-facing error message.
func (s *Session) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Session) setError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

func (s *Session) notifyError(msg string) {
	if s.sink != nil {
		s.sink.Error(msg, 0)
	}
}
