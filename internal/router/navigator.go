package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrRedirectLoop is returned when guards keep redirecting.
var ErrRedirectLoop = errors.New("too many navigation redirects")

const maxRedirects = 10

// Decision is the outcome of a guard. An empty Redirect lets the
// navigation proceed.
type Decision struct {
	Redirect string
}

// Proceed lets the navigation continue to its target.
var Proceed = Decision{}

// RedirectTo aborts the navigation and starts a new one to path.
func RedirectTo(path string) Decision { return Decision{Redirect: path} }

// Navigation describes a completed navigation.
type Navigation struct {
	To   Location `json:"to"`
	From Location `json:"from"`
	// RedirectedFrom lists the paths abandoned by guard redirects, in order.
	RedirectedFrom []string `json:"redirected_from,omitempty"`
}

// Guard runs before a navigation is confirmed.
type Guard func(ctx context.Context, to, from Location) Decision

// Hook runs after a navigation is confirmed.
type Hook func(ctx context.Context, nav Navigation)

// Navigator holds the current location and serializes navigations: guards
// and hooks of one navigation complete before the next one starts.
type Navigator struct {
	table *Table
	log   *slog.Logger

	mu      sync.Mutex
	current Location
	guards  []Guard
	hooks   []Hook
}

// NewNavigator creates a Navigator over table.
func NewNavigator(table *Table, log *slog.Logger) *Navigator {
	return &Navigator{table: table, log: log}
}

// BeforeEach registers a guard. Guards run in registration order; the
// first redirect wins.
func (n *Navigator) BeforeEach(g Guard) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.guards = append(n.guards, g)
}

// AfterEach registers a hook run once per completed navigation.
func (n *Navigator) AfterEach(h Hook) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hooks = append(n.hooks, h)
}

// Table returns the route table.
func (n *Navigator) Table() *Table { return n.table }

// Current returns the location of the last completed navigation.
func (n *Navigator) Current() Location {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Push navigates to path, following guard redirects. Hooks run once, for
// the final location.
func (n *Navigator) Push(ctx context.Context, path string) (Navigation, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	from := n.current
	var redirected []string
	target := path

	for {
		to, err := n.table.Resolve(target)
		if err != nil {
			return Navigation{}, err
		}

		decision := Proceed
		for _, g := range n.guards {
			if decision = g(ctx, to, from); decision.Redirect != "" {
				break
			}
		}
		if decision.Redirect == "" {
			nav := Navigation{To: to, From: from, RedirectedFrom: redirected}
			n.current = to
			for _, h := range n.hooks {
				h(ctx, nav)
			}
			return nav, nil
		}

		redirected = append(redirected, to.Path)
		if len(redirected) > maxRedirects {
			return Navigation{}, fmt.Errorf("%w: %v", ErrRedirectLoop, redirected)
		}
		n.log.Debug("navigation redirected", "from", to.Path, "to", decision.Redirect)
		target = decision.Redirect
	}
}
