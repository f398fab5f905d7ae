// Package router resolves application paths to routes, runs navigation
// guards and hooks, and gates navigation on authentication and roles.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coachdesk/coachdesk/internal/models"
	"github.com/go-chi/chi/v5"
)

// ErrNoRoute is returned when a path matches no route.
var ErrNoRoute = errors.New("no route matches path")

// Route names used for redirects.
const (
	RouteHome  = "home"
	RouteLogin = "login"
)

// Meta carries the access requirements of a route. An empty RequiresRole
// means any authenticated (or anonymous, without RequiresAuth) user.
type Meta struct {
	RequiresAuth bool     `json:"requires_auth"`
	RequiresRole []string `json:"requires_role,omitempty"`
}

// Route is one navigable page.
type Route struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	Meta    Meta   `json:"meta"`
}

// Location is a path resolved against the route table.
type Location struct {
	Route  *Route            `json:"route"`
	Path   string            `json:"path"`
	Params map[string]string `json:"params,omitempty"`
	Query  url.Values        `json:"query,omitempty"`
}

// Name returns the route name, or "" for the zero Location.
func (l Location) Name() string {
	if l.Route == nil {
		return ""
	}
	return l.Route.Name
}

// DefaultRoutes is the page table of the coaching application.
func DefaultRoutes() []Route {
	coachOrAdmin := []string{models.RoleCoach, models.RoleAdmin}
	return []Route{
		{Name: RouteHome, Pattern: "/"},
		{Name: RouteLogin, Pattern: "/login"},
		{Name: "register", Pattern: "/register"},
		{Name: "dashboard", Pattern: "/dashboard", Meta: Meta{RequiresAuth: true}},
		{Name: "adminPanel", Pattern: "/admin", Meta: Meta{RequiresAuth: true, RequiresRole: []string{models.RoleAdmin}}},
		{Name: "profile", Pattern: "/profile", Meta: Meta{RequiresAuth: true}},
		{Name: "trainingsDetails", Pattern: "/training/{id}", Meta: Meta{RequiresAuth: true}},
		{Name: "dietDetails", Pattern: "/diet/{id}", Meta: Meta{RequiresAuth: true}},
		{Name: "GroupsCoach", Pattern: "/groups/owner/{ownerId}", Meta: Meta{RequiresAuth: true, RequiresRole: coachOrAdmin}},
		{Name: "GroupsMember", Pattern: "/groups/{groupId}/membres", Meta: Meta{RequiresAuth: true, RequiresRole: coachOrAdmin}},
		{Name: "UserProfilePage", Pattern: "/profiles/{uuid}", Meta: Meta{RequiresAuth: true, RequiresRole: coachOrAdmin}},
	}
}

// Table matches paths against a fixed set of routes.
type Table struct {
	mux       *chi.Mux
	byPattern map[string]*Route
	byName    map[string]*Route
}

// NewTable builds a Table. Patterns use chi syntax.
func NewTable(routes []Route) *Table {
	t := &Table{
		mux:       chi.NewRouter(),
		byPattern: make(map[string]*Route, len(routes)),
		byName:    make(map[string]*Route, len(routes)),
	}
	noop := func(http.ResponseWriter, *http.Request) {}
	for i := range routes {
		r := &routes[i]
		t.mux.Get(r.Pattern, noop)
		t.byPattern[r.Pattern] = r
		t.byName[r.Name] = r
	}
	return t
}

// Routes returns the routes of the table in no particular order.
func (t *Table) Routes() []*Route {
	out := make([]*Route, 0, len(t.byName))
	for _, r := range t.byName {
		out = append(out, r)
	}
	return out
}

// ByName returns the route registered under name.
func (t *Table) ByName(name string) (*Route, bool) {
	r, ok := t.byName[name]
	return r, ok
}

// Resolve matches rawPath (optionally with a query string) to a route.
func (t *Table) Resolve(rawPath string) (Location, error) {
	u, err := url.Parse(rawPath)
	if err != nil {
		return Location{}, fmt.Errorf("parsing path %q: %w", rawPath, err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	rctx := chi.NewRouteContext()
	pattern := t.mux.Find(rctx, http.MethodGet, path)
	route, ok := t.byPattern[pattern]
	if pattern == "" || !ok {
		return Location{}, fmt.Errorf("%w: %s", ErrNoRoute, path)
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		params[k] = rctx.URLParams.Values[i]
	}

	loc := Location{Route: route, Path: path, Params: params}
	if len(u.Query()) > 0 {
		loc.Query = u.Query()
	}
	return loc, nil
}
