// Package app assembles one coachdesk instance: the session, the stores, the
// navigator with its authorization guard and the notification sink.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coachdesk/coachdesk/internal/backend"
	"github.com/coachdesk/coachdesk/internal/config"
	"github.com/coachdesk/coachdesk/internal/credentials"
	"github.com/coachdesk/coachdesk/internal/notify"
	"github.com/coachdesk/coachdesk/internal/router"
	"github.com/coachdesk/coachdesk/internal/session"
	"github.com/coachdesk/coachdesk/internal/storage"
	"github.com/coachdesk/coachdesk/internal/store"
)

// App is the process-wide application instance.
type App struct {
	Session    *session.Session
	Navigator  *router.Navigator
	Authorizer *router.Authorizer
	Pending    *router.PendingDenial
	Snackbar   *notify.Snackbar
	Training   *store.Training
	Groups     *store.Groups
	Diet       *store.Diet
	Contextual *store.Contextual

	// Audit is nil when no database is configured.
	Audit *storage.DB

	closers []func()
}

// Options carries the collaborators New does not build itself.
type Options struct {
	API   backend.API
	Creds credentials.Store
	Audit *storage.DB
}

// New wires an App around existing collaborators.
func New(opts Options, log *slog.Logger) *App {
	snack := notify.NewSnackbar(log)
	sess := session.New(opts.API, opts.Creds, snack, log)
	pending := &router.PendingDenial{}

	nav := router.NewNavigator(router.NewTable(router.DefaultRoutes()), log)
	auth := router.NewAuthorizer(sess, pending, snack, log)
	if opts.Audit != nil {
		auth.SetRecorder(opts.Audit)
	}
	auth.Install(nav)

	return &App{
		Session:    sess,
		Navigator:  nav,
		Authorizer: auth,
		Pending:    pending,
		Snackbar:   snack,
		Training:   store.NewTraining(opts.API, snack, log),
		Groups:     store.NewGroups(opts.API, snack, log),
		Diet:       store.NewDiet(opts.API, sess, snack, log),
		Contextual: &store.Contextual{},
		Audit:      opts.Audit,
	}
}

// Open builds an App from cfg: the SQLite credential store under
// cfg.State.Dir, the backend client and, when configured, the migrated
// Postgres audit log. The persisted session is restored before returning.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	creds, err := credentials.OpenSQLite(cfg.State.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}
	closers := []func(){func() { creds.Close() }}

	var audit *storage.DB
	if cfg.Database.Enabled() {
		dsn := cfg.Database.DSN()
		version, err := storage.RunMigrations(dsn)
		if err != nil {
			creds.Close()
			return nil, fmt.Errorf("migrating audit database: %w", err)
		}
		audit, err = storage.New(ctx, dsn)
		if err != nil {
			creds.Close()
			return nil, fmt.Errorf("connecting audit database: %w", err)
		}
		closers = append(closers, audit.Close)
		log.Info("navigation audit enabled", "host", cfg.Database.Host, "schema_version", version)
	}

	api := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, creds)
	a := New(Options{API: api, Creds: creds, Audit: audit}, log)
	a.closers = closers

	a.Session.Initialize(ctx)
	return a, nil
}

// Close releases the stores opened by Open, most recent first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
