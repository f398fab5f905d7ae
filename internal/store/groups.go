package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/coachdesk/coachdesk/internal/backend"
	"github.com/coachdesk/coachdesk/internal/models"
	"github.com/coachdesk/coachdesk/internal/notify"
)

var (
	createGroupMessages = backend.Messages{
		http.StatusBadRequest: "Invalid data for group creation.",
		http.StatusForbidden:  "You are not allowed to create a group.",
	}
	deleteGroupMessages = backend.Messages{
		http.StatusNotFound:  "Group not found.",
		http.StatusForbidden: "You are not allowed to delete this group.",
	}
)

// Groups holds the groups owned by a coach.
type Groups struct {
	api  backend.API
	sink notify.Sink
	log  *slog.Logger

	mu      sync.RWMutex
	groups  []models.Group
	loading bool
	err     string
}

func NewGroups(api backend.API, sink notify.Sink, log *slog.Logger) *Groups {
	return &Groups{api: api, sink: sink, log: log}
}

// FetchGroups loads the groups of ownerID. An owner without groups answers
// 404, which is an empty list rather than an error.
func (s *Groups) FetchGroups(ctx context.Context, ownerID string) []models.Group {
	s.begin()
	defer s.end()

	var list []models.Group
	err := s.api.Get(ctx, "/groups/owner/"+ownerID, &list)
	switch {
	case err == nil:
	case backend.StatusOf(err) == http.StatusNotFound:
		list = nil
	default:
		s.log.Error("fetching groups", "owner_id", ownerID, "error", err)
		s.mu.Lock()
		s.groups = nil
		s.mu.Unlock()
		s.fail("Error while loading the groups.")
		return nil
	}

	s.mu.Lock()
	s.groups = list
	s.mu.Unlock()
	return slices.Clone(list)
}

// CreateGroup creates a group and appends it to the list.
func (s *Groups) CreateGroup(ctx context.Context, g models.Group) (*models.Group, error) {
	s.begin()
	defer s.end()

	var created models.Group
	if err := s.api.Post(ctx, "/groups", g, &created); err != nil {
		s.log.Error("creating group", "name", g.Name, "error", err)
		s.fail(createGroupMessages.Message(err, "Error while creating the group."))
		return nil, fmt.Errorf("creating group: %w", err)
	}

	s.mu.Lock()
	s.groups = append(s.groups, created)
	s.mu.Unlock()
	return &created, nil
}

// DeleteGroup deletes a group and drops it from the list.
func (s *Groups) DeleteGroup(ctx context.Context, groupID string) error {
	s.begin()
	defer s.end()

	if err := s.api.Delete(ctx, "/groups/"+groupID); err != nil {
		s.log.Error("deleting group", "group_id", groupID, "error", err)
		s.fail(deleteGroupMessages.Message(err, "Error while deleting the group."))
		return fmt.Errorf("deleting group: %w", err)
	}

	s.mu.Lock()
	s.groups = slices.DeleteFunc(s.groups, func(g models.Group) bool { return g.ID == groupID })
	s.mu.Unlock()
	return nil
}

func (s *Groups) Groups() []models.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.groups)
}

func (s *Groups) HasGroups() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.groups) > 0
}

func (s *Groups) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Groups) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Groups) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = nil
	s.err = ""
}

func (s *Groups) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

func (s *Groups) end() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func (s *Groups) fail(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
	if s.sink != nil {
		s.sink.Error(msg, 0)
	}
}
