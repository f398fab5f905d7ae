// Package notify delivers short user-facing messages.
package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Default display durations.
const (
	DefaultTimeout = 4 * time.Second
	ErrorTimeout   = 5 * time.Second
)

// Colors of a notification.
const (
	ColorSuccess = "success"
	ColorError   = "error"
	ColorInfo    = "info"
	ColorWarning = "warning"
)

// Sink accepts fire-and-forget notifications. A zero timeout means the
// default for the notification color.
type Sink interface {
	Success(message string, timeout time.Duration)
	Error(message string, timeout time.Duration)
	Info(message string, timeout time.Duration)
	Warning(message string, timeout time.Duration)
}

// Notification is one message shown to the user. On the wire the timeout is
// timeout_ms, in milliseconds.
type Notification struct {
	Message   string        `json:"message"`
	Color     string        `json:"color"`
	Timeout   time.Duration `json:"-"`
	CreatedAt time.Time     `json:"created_at"`
}

type notificationJSON struct {
	Message   string    `json:"message"`
	Color     string    `json:"color"`
	TimeoutMS int64     `json:"timeout_ms"`
	CreatedAt time.Time `json:"created_at"`
}

func (n Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(notificationJSON{
		Message:   n.Message,
		Color:     n.Color,
		TimeoutMS: n.Timeout.Milliseconds(),
		CreatedAt: n.CreatedAt,
	})
}

func (n *Notification) UnmarshalJSON(data []byte) error {
	var w notificationJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*n = Notification{
		Message:   w.Message,
		Color:     w.Color,
		Timeout:   time.Duration(w.TimeoutMS) * time.Millisecond,
		CreatedAt: w.CreatedAt,
	}
	return nil
}

// historyLimit bounds the undrained history.
const historyLimit = 50

// Snackbar holds the notification currently displayed and a history of
// everything shown since the last Drain.
type Snackbar struct {
	mu      sync.Mutex
	show    bool
	current Notification
	history []Notification
	log     *slog.Logger
}

var _ Sink = (*Snackbar)(nil)

// NewSnackbar creates a Snackbar. A nil logger discards records.
func NewSnackbar(log *slog.Logger) *Snackbar {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Snackbar{log: log}
}

func (s *Snackbar) notify(message, color string, timeout time.Duration) {
	n := Notification{Message: message, Color: color, Timeout: timeout, CreatedAt: time.Now()}

	s.mu.Lock()
	s.current = n
	s.show = true
	s.history = append(s.history, n)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
	s.mu.Unlock()

	s.log.Info("notification", "color", color, "message", message)
}

func (s *Snackbar) Success(message string, timeout time.Duration) {
	s.notify(message, ColorSuccess, orDefault(timeout, DefaultTimeout))
}

func (s *Snackbar) Error(message string, timeout time.Duration) {
	s.notify(message, ColorError, orDefault(timeout, ErrorTimeout))
}

func (s *Snackbar) Info(message string, timeout time.Duration) {
	s.notify(message, ColorInfo, orDefault(timeout, DefaultTimeout))
}

func (s *Snackbar) Warning(message string, timeout time.Duration) {
	s.notify(message, ColorWarning, orDefault(timeout, DefaultTimeout))
}

// Current returns the displayed notification and whether it is visible.
func (s *Snackbar) Current() (Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.show
}

// Close hides the current notification.
func (s *Snackbar) Close() {
	s.mu.Lock()
	s.show = false
	s.mu.Unlock()
}

// Drain returns and clears the notification history, oldest first.
func (s *Snackbar) Drain() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.history
	s.history = nil
	return out
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
