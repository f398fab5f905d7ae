package router

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/coachdesk/coachdesk/internal/notify"
	"github.com/coachdesk/coachdesk/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Session is the identity the Authorizer checks navigations against.
type Session interface {
	NeedsProfile() bool
	FetchUser(ctx context.Context) error
	IsAuthenticated() bool
	HasRole(roles ...string) bool
	UserID() string
}

// Recorder stores completed navigations for auditing. *storage.DB
// satisfies it.
type Recorder interface {
	InsertNavigationLog(ctx context.Context, log storage.NavigationLog) (uuid.UUID, error)
}

var _ Recorder = (*storage.DB)(nil)

// fetchUserKey is the single-flight key of the profile fetch. There is only
// one kind of session fetch, so one key covers all navigations.
const fetchUserKey = "fetch_user"

// Authorizer gates navigations on authentication and roles and displays
// one pending denial after each completed navigation.
type Authorizer struct {
	sess      Session
	pending   *PendingDenial
	sink      notify.Sink
	log       *slog.Logger
	loginPath string
	homePath  string
	recorder  Recorder

	flight singleflight.Group
}

// NewAuthorizer creates an Authorizer redirecting to /login and /.
func NewAuthorizer(sess Session, pending *PendingDenial, sink notify.Sink, log *slog.Logger) *Authorizer {
	return &Authorizer{
		sess:      sess,
		pending:   pending,
		sink:      sink,
		log:       log,
		loginPath: "/login",
		homePath:  "/",
	}
}

// SetRecorder records every completed navigation in r.
func (a *Authorizer) SetRecorder(r Recorder) {
	a.recorder = r
}

// Install registers the guard and the notification hook on n.
func (a *Authorizer) Install(n *Navigator) {
	if r, ok := n.Table().ByName(RouteLogin); ok {
		a.loginPath = r.Pattern
	}
	if r, ok := n.Table().ByName(RouteHome); ok {
		a.homePath = r.Pattern
	}
	n.BeforeEach(a.Guard)
	n.AfterEach(a.AfterNavigate)
}

// ResolveSession loads the profile when a token is present without one.
// Concurrent callers share a single in-flight fetch; the fetch runs to
// completion even if a caller's context is cancelled. Failures leave the
// session unauthenticated and are only logged.
func (a *Authorizer) ResolveSession(ctx context.Context) {
	if !a.sess.NeedsProfile() {
		return
	}
	fetchCtx := context.WithoutCancel(ctx)
	_, err, shared := a.flight.Do(fetchUserKey, func() (any, error) {
		return nil, a.sess.FetchUser(fetchCtx)
	})
	if err != nil {
		a.log.Warn("session resolution failed", "error", err, "shared", shared)
	}
}

// Guard checks the target route's requirements. It never fails: a broken
// session resolves to a denial, not an error.
func (a *Authorizer) Guard(ctx context.Context, to, from Location) Decision {
	a.log.Debug("navigation", "state", "resolving_session", "to", to.Path)
	a.ResolveSession(ctx)

	a.log.Debug("navigation", "state", "checking", "to", to.Path)
	if to.Route == nil {
		return Proceed
	}
	meta := to.Route.Meta

	if meta.RequiresAuth && !a.sess.IsAuthenticated() {
		a.log.Debug("navigation", "state", "denied_auth", "to", to.Path)
		a.pending.Set(Denial{Kind: DenialAuthRequired})
		return RedirectTo(a.loginPath)
	}

	if len(meta.RequiresRole) > 0 && !a.sess.HasRole(meta.RequiresRole...) {
		a.log.Debug("navigation", "state", "denied_role", "to", to.Path, "roles", meta.RequiresRole)
		a.pending.Set(Denial{Kind: DenialInsufficientRole, Roles: meta.RequiresRole})
		return RedirectTo(a.homePath)
	}

	a.log.Debug("navigation", "state", "allowed", "to", to.Path)
	return Proceed
}

// AfterNavigate displays and clears the pending denial, then records the
// navigation when an audit log is configured.
func (a *Authorizer) AfterNavigate(ctx context.Context, nav Navigation) {
	denial, denied := a.pending.ShowPending(a.sink)
	a.log.Debug("navigation", "state", "notify_pending", "to", nav.To.Path, "denied", denied)

	if a.recorder == nil {
		return
	}

	entry := storage.NavigationLog{
		RequestedPath: nav.To.Path,
		FinalPath:     nav.To.Path,
		RouteName:     nav.To.Name(),
		Outcome:       storage.OutcomeAllowed,
	}
	if len(nav.RedirectedFrom) > 0 {
		entry.RequestedPath = nav.RedirectedFrom[0]
	}
	if denied {
		kind := string(denial.Kind)
		entry.Outcome = storage.OutcomeDenied
		entry.DenialKind = &kind
		entry.RequiredRoles = slices.Clone(denial.Roles)
	}
	if uid := a.sess.UserID(); uid != "" {
		entry.UserID = &uid
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := a.recorder.InsertNavigationLog(recCtx, entry); err != nil {
		a.log.Error("failed to record navigation", "path", entry.RequestedPath, "error", err)
	}
}
