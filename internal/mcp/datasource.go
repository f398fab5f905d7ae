package mcp

import (
	"context"
	"errors"

	"github.com/coachdesk/coachdesk/internal/app"
	"github.com/coachdesk/coachdesk/internal/backend"
	"github.com/coachdesk/coachdesk/internal/models"
	"github.com/coachdesk/coachdesk/internal/notify"
	"github.com/coachdesk/coachdesk/internal/router"
)

// NavigationResult is a completed navigation and the notifications it
// produced.
type NavigationResult struct {
	router.Navigation
	Notifications []notify.Notification `json:"notifications"`
}

// DataSource abstracts the application for MCP tools. Local (in-process)
// and HTTPClient (remote via the REST API) satisfy this interface.
type DataSource interface {
	Navigate(ctx context.Context, path string) (*NavigationResult, error)
	Me(ctx context.Context) (*models.Profile, error)
	Training(ctx context.Context, trainingID string) (*models.TrainingDetail, error)
	CreateValidation(ctx context.Context, trainingID, taskID string, in models.ValidationInput) (*models.Validation, error)
	Groups(ctx context.Context, ownerID string) ([]models.Group, error)
}

// ErrNotLoggedIn is returned by Me when no profile is loaded.
var ErrNotLoggedIn = errors.New("not logged in")

// Local serves MCP tools from an in-process application instance.
type Local struct {
	app *app.App
}

var _ DataSource = (*Local)(nil)

func NewLocal(a *app.App) *Local { return &Local{app: a} }

func (l *Local) Navigate(ctx context.Context, path string) (*NavigationResult, error) {
	nav, err := l.app.Navigator.Push(ctx, path)
	if err != nil {
		return nil, err
	}
	return &NavigationResult{Navigation: nav, Notifications: l.app.Snackbar.Drain()}, nil
}

func (l *Local) Me(ctx context.Context) (*models.Profile, error) {
	if l.app.Session.NeedsProfile() {
		l.app.Authorizer.ResolveSession(ctx)
	}
	if u := l.app.Session.User(); u != nil {
		return u, nil
	}
	return nil, ErrNotLoggedIn
}

func (l *Local) Training(ctx context.Context, trainingID string) (*models.TrainingDetail, error) {
	if d := l.app.Training.Load(ctx, trainingID); d != nil {
		return d, nil
	}
	return nil, storeError(l.app.Training.Err())
}

func (l *Local) CreateValidation(ctx context.Context, trainingID, taskID string, in models.ValidationInput) (*models.Validation, error) {
	v, err := l.app.Training.CreateValidation(ctx, trainingID, taskID, in)
	if err != nil {
		return nil, errors.New(backend.Messages{}.Message(err, ""))
	}
	return v, nil
}

func (l *Local) Groups(ctx context.Context, ownerID string) ([]models.Group, error) {
	list := l.app.Groups.FetchGroups(ctx, ownerID)
	if msg := l.app.Groups.Err(); msg != "" {
		return nil, storeError(msg)
	}
	return list, nil
}

func storeError(msg string) error {
	if msg == "" {
		msg = backend.GenericMessage
	}
	return errors.New(msg)
}
