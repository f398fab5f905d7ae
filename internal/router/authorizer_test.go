package router

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coachdesk/coachdesk/internal/notify"
	"github.com/coachdesk/coachdesk/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSession is a Session whose profile fetch can be blocked and counted.
type fakeSession struct {
	mu       sync.Mutex
	token    bool
	loaded   bool
	roles    []string
	fetchErr error

	checks  atomic.Int32
	fetches atomic.Int32
	release chan struct{}
}

func (f *fakeSession) NeedsProfile() bool {
	f.checks.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token && !f.loaded
}

func (f *fakeSession) FetchUser(ctx context.Context) error {
	f.fetches.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.fetchErr != nil {
		return f.fetchErr
	}
	f.mu.Lock()
	f.loaded = true
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token && f.loaded
}

func (f *fakeSession) HasRole(roles ...string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loaded {
		return false
	}
	for _, r := range f.roles {
		if slices.Contains(roles, r) {
			return true
		}
	}
	return false
}

func (f *fakeSession) UserID() string {
	if f.IsAuthenticated() {
		return "u1"
	}
	return ""
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []storage.NavigationLog
}

func (r *fakeRecorder) InsertNavigationLog(ctx context.Context, log storage.NavigationLog) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, log)
	return uuid.New(), nil
}

type harness struct {
	nav   *Navigator
	auth  *Authorizer
	snack *notify.Snackbar
}

func newHarness(sess Session) harness {
	log := slog.New(slog.DiscardHandler)
	snack := notify.NewSnackbar(nil)
	nav := NewNavigator(NewTable(DefaultRoutes()), log)
	auth := NewAuthorizer(sess, &PendingDenial{}, snack, log)
	auth.Install(nav)
	return harness{nav: nav, auth: auth, snack: snack}
}

// TestUnauthenticatedRedirectsToLogin verifies the auth_required path ends on
// the login page with exactly one notification.
func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	h := newHarness(&fakeSession{})

	nav, err := h.nav.Push(context.Background(), "/dashboard")
	if err != nil {
		t.Fatal(err)
	}
	if nav.To.Name() != RouteLogin {
		t.Errorf("final route = %q, want login", nav.To.Name())
	}
	msgs := h.snack.Drain()
	if len(msgs) != 1 {
		t.Fatalf("got %d notifications, want 1", len(msgs))
	}
	if msgs[0].Message != (Denial{Kind: DenialAuthRequired}).Message() {
		t.Errorf("message = %q", msgs[0].Message)
	}
}

// TestInsufficientRoleRedirectsHome verifies a user-only principal is sent
// home with one notification naming the required roles.
func TestInsufficientRoleRedirectsHome(t *testing.T) {
	h := newHarness(&fakeSession{token: true, loaded: true, roles: []string{"user"}})

	nav, err := h.nav.Push(context.Background(), "/groups/owner/o1")
	if err != nil {
		t.Fatal(err)
	}
	if nav.To.Name() != RouteHome {
		t.Errorf("final route = %q, want home", nav.To.Name())
	}
	msgs := h.snack.Drain()
	if len(msgs) != 1 {
		t.Fatalf("got %d notifications, want 1", len(msgs))
	}
	if msgs[0].Message != "Access denied. You must have the role coach or admin." {
		t.Errorf("message = %q", msgs[0].Message)
	}
}

// TestProfilePageDeniedForUser verifies a non-UUID profile id still reaches
// the role check.
func TestProfilePageDeniedForUser(t *testing.T) {
	h := newHarness(&fakeSession{token: true, loaded: true, roles: []string{"user"}})

	nav, err := h.nav.Push(context.Background(), "/profiles/test-user-id")
	if err != nil {
		t.Fatal(err)
	}
	if nav.To.Name() != RouteHome {
		t.Errorf("final route = %q, want home", nav.To.Name())
	}
	if len(nav.RedirectedFrom) != 1 || nav.RedirectedFrom[0] != "/profiles/test-user-id" {
		t.Errorf("redirected from = %v", nav.RedirectedFrom)
	}
	if msgs := h.snack.Drain(); len(msgs) != 1 || msgs[0].Message != "Access denied. You must have the role coach or admin." {
		t.Errorf("notifications = %+v", msgs)
	}

	h = newHarness(&fakeSession{token: true, loaded: true, roles: []string{"coach"}})
	nav, err = h.nav.Push(context.Background(), "/profiles/test-user-id")
	if err != nil {
		t.Fatal(err)
	}
	if nav.To.Name() != "UserProfilePage" {
		t.Errorf("coach final route = %q, want UserProfilePage", nav.To.Name())
	}
}

// TestAllowedNavigationNoNotification verifies a permitted navigation emits
// nothing.
func TestAllowedNavigationNoNotification(t *testing.T) {
	h := newHarness(&fakeSession{token: true, loaded: true, roles: []string{"coach"}})

	nav, err := h.nav.Push(context.Background(), "/groups/owner/o1")
	if err != nil {
		t.Fatal(err)
	}
	if nav.To.Name() != "GroupsCoach" || len(nav.RedirectedFrom) != 0 {
		t.Errorf("navigation = %+v", nav)
	}
	if msgs := h.snack.Drain(); len(msgs) != 0 {
		t.Errorf("notifications = %+v, want none", msgs)
	}
}

// TestTokenWithoutProfileFetchesBeforeChecking verifies the profile is
// loaded lazily during the guard.
func TestTokenWithoutProfileFetchesBeforeChecking(t *testing.T) {
	sess := &fakeSession{token: true, roles: []string{"admin"}}
	h := newHarness(sess)

	nav, err := h.nav.Push(context.Background(), "/admin")
	if err != nil {
		t.Fatal(err)
	}
	if nav.To.Name() != "adminPanel" {
		t.Errorf("final route = %q, want adminPanel", nav.To.Name())
	}
	if got := sess.fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}

	h.nav.Push(context.Background(), "/dashboard")
	if got := sess.fetches.Load(); got != 1 {
		t.Errorf("fetches after second navigation = %d, want 1", got)
	}
}

// TestFetchFailureDegradesToUnauthenticated verifies a broken session
// behaves like no session.
func TestFetchFailureDegradesToUnauthenticated(t *testing.T) {
	sess := &fakeSession{token: true, fetchErr: errors.New("expired")}
	h := newHarness(sess)

	nav, err := h.nav.Push(context.Background(), "/profile")
	if err != nil {
		t.Fatalf("navigation failed: %v", err)
	}
	if nav.To.Name() != RouteLogin {
		t.Errorf("final route = %q, want login", nav.To.Name())
	}
	if msgs := h.snack.Drain(); len(msgs) != 1 {
		t.Errorf("got %d notifications, want 1", len(msgs))
	}
	// Each guard evaluation retries once the previous fetch has settled:
	// /profile, its /login redirect, then /.
	h.nav.Push(context.Background(), "/")
	if got := sess.fetches.Load(); got != 3 {
		t.Errorf("fetches = %d, want 3", got)
	}
}

// TestConcurrentGuardsShareOneFetch verifies single-flight: two guard
// evaluations that both need the profile trigger one fetch.
func TestConcurrentGuardsShareOneFetch(t *testing.T) {
	sess := &fakeSession{token: true, roles: []string{"user"}, release: make(chan struct{})}
	h := newHarness(sess)
	dashboard, err := h.nav.Table().Resolve("/dashboard")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	decisions := make([]Decision, 2)
	for i := range decisions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decisions[i] = h.auth.Guard(context.Background(), dashboard, Location{})
		}()
	}

	deadline := time.After(2 * time.Second)
	for sess.checks.Load() < 2 || sess.fetches.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("guards did not start")
		case <-time.After(time.Millisecond):
		}
	}
	time.Sleep(20 * time.Millisecond)
	close(sess.release)
	wg.Wait()

	if got := sess.fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
	for i, d := range decisions {
		if d != Proceed {
			t.Errorf("decision %d = %+v, want proceed", i, d)
		}
	}
}

// TestConcurrentNavigationsShareOneFetch verifies overlapping navigations
// issue a single profile fetch.
func TestConcurrentNavigationsShareOneFetch(t *testing.T) {
	sess := &fakeSession{token: true, roles: []string{"user"}}
	h := newHarness(sess)

	var wg sync.WaitGroup
	for _, p := range []string{"/dashboard", "/profile"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.nav.Push(context.Background(), p); err != nil {
				t.Errorf("Push(%s): %v", p, err)
			}
		}()
	}
	wg.Wait()

	if got := sess.fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
	if msgs := h.snack.Drain(); len(msgs) != 0 {
		t.Errorf("notifications = %+v, want none", msgs)
	}
}

// TestCancelledContextStillResolves verifies a cancelled navigation context
// does not abort the shared fetch.
func TestCancelledContextStillResolves(t *testing.T) {
	sess := &fakeSession{token: true}
	h := newHarness(sess)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	nav, err := h.nav.Push(ctx, "/dashboard")
	if err != nil {
		t.Fatal(err)
	}
	if nav.To.Name() != "dashboard" {
		t.Errorf("final route = %q, want dashboard", nav.To.Name())
	}
}

// TestAuditRecordsOutcome verifies denied and allowed navigations are logged.
func TestAuditRecordsOutcome(t *testing.T) {
	sess := &fakeSession{token: true, loaded: true, roles: []string{"user"}}
	h := newHarness(sess)
	rec := &fakeRecorder{}
	h.auth.SetRecorder(rec)
	ctx := context.Background()

	h.nav.Push(ctx, "/admin")
	h.nav.Push(ctx, "/dashboard")

	if len(rec.entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(rec.entries))
	}
	denied := rec.entries[0]
	if denied.Outcome != storage.OutcomeDenied || denied.RequestedPath != "/admin" || denied.FinalPath != "/" {
		t.Errorf("denied entry = %+v", denied)
	}
	if denied.DenialKind == nil || *denied.DenialKind != string(DenialInsufficientRole) {
		t.Errorf("denial kind = %v", denied.DenialKind)
	}
	if len(denied.RequiredRoles) != 1 || denied.RequiredRoles[0] != "admin" {
		t.Errorf("required roles = %v", denied.RequiredRoles)
	}
	allowed := rec.entries[1]
	if allowed.Outcome != storage.OutcomeAllowed || allowed.RouteName != "dashboard" {
		t.Errorf("allowed entry = %+v", allowed)
	}
	if allowed.UserID == nil || *allowed.UserID != "u1" {
		t.Errorf("user id = %v", allowed.UserID)
	}
}
