package server

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/coachdesk/coachdesk/internal/app"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// Login attempts are limited to a burst of 5, refilled one every 2 seconds.
const (
	loginBurst    = 5
	loginInterval = 2 * time.Second
)

// Server exposes the application instance as a local JSON API.
type Server struct {
	app    *app.App
	log    *slog.Logger
	whois  WhoIser
	logins *rate.Limiter
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(a *app.App, log *slog.Logger) *Server {
	s := &Server{
		app:    a,
		log:    log,
		logins: rate.NewLimiter(rate.Every(loginInterval), loginBurst),
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale resolves callers through the tailnet instead of the local
// dev identity.
func (s *Server) SetTailscale(w WhoIser) {
	s.whois = w
}

func (s *Server) routes() {
	s.router.Use(s.identify)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.With(RateLimit(s.logins)).Post("/session/login", s.handleLogin)
		r.Post("/session/logout", s.handleLogout)
		r.Get("/me", s.handleMe)
		r.Post("/register", s.handleRegister)

		r.Post("/navigate", s.handleNavigate)
		r.Get("/notifications", s.handleNotifications)

		r.Get("/trainings/mine", s.handleMyTrainings)
		r.Get("/trainings/{id}", s.handleTraining)
		r.Post("/trainings/{id}/tasks/{taskID}/validations", s.handleCreateValidation)
		r.Delete("/trainings/{id}/tasks/{taskID}/validations/{validationID}", s.handleDeleteValidation)

		r.Get("/groups/owner/{ownerID}", s.handleGroups)
		r.Post("/groups", s.handleCreateGroup)
		r.Delete("/groups/{id}", s.handleDeleteGroup)

		r.Get("/diets/mine", s.handleMyDiets)
		r.Get("/diets/{id}", s.handleDiet)

		r.Get("/navigation/logs", s.handleNavigationLogs)
		r.Get("/navigation/stats", s.handleNavigationStats)
		r.Get("/navigation/callers", s.handleCallers)
	})
}

// SetFrontend mounts a built SPA filesystem.
// Unmatched routes serve index.html for client-side routing.
func (s *Server) SetFrontend(webFS fs.FS) {
	fileServer := http.FileServerFS(webFS)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		// Try to serve the exact file first
		f, err := webFS.Open(r.URL.Path[1:]) // strip leading /
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}
		// Fallback to index.html for SPA routing
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

// MountMCP serves an MCP transport under /mcp.
func (s *Server) MountMCP(h http.Handler) {
	s.router.Mount("/mcp", h)
}
