package router

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/coachdesk/coachdesk/internal/notify"
)

// DenialKind identifies why a navigation was refused.
type DenialKind string

const (
	DenialAuthRequired     DenialKind = "auth_required"
	DenialInsufficientRole DenialKind = "insufficient_role"
)

// Denial is a refused navigation awaiting display.
type Denial struct {
	Kind  DenialKind `json:"kind"`
	Roles []string   `json:"roles,omitempty"`
}

// Message is the user-facing text for d.
func (d Denial) Message() string {
	switch d.Kind {
	case DenialAuthRequired:
		return "You must be logged in to access this page."
	case DenialInsufficientRole:
		return fmt.Sprintf("Access denied. You must have the role %s.", strings.Join(d.Roles, " or "))
	default:
		return ""
	}
}

// PendingDenial is a single slot holding at most one undisplayed denial.
// Setting a denial overwrites any previous undisplayed one.
type PendingDenial struct {
	mu      sync.Mutex
	pending *Denial
}

// Set stores d, replacing any pending denial.
func (p *PendingDenial) Set(d Denial) {
	d.Roles = slices.Clone(d.Roles)
	p.mu.Lock()
	p.pending = &d
	p.mu.Unlock()
}

// Peek returns the pending denial without consuming it.
func (p *PendingDenial) Peek() (Denial, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return Denial{}, false
	}
	return *p.pending, true
}

// ShowPending sends the pending denial to sink as an error and clears the
// slot. The slot is cleared even when sink is nil.
func (p *PendingDenial) ShowPending(sink notify.Sink) (Denial, bool) {
	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	if pending == nil {
		return Denial{}, false
	}
	if msg := pending.Message(); msg != "" && sink != nil {
		sink.Error(msg, 0)
	}
	return *pending, true
}
