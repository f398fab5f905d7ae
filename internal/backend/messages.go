package backend

import (
	"context"
	"net/http"
)

// API is the subset of Client used by the stores.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

var _ API = (*Client)(nil)

// GenericMessage is shown for failures without a status-specific message.
const GenericMessage = "An error occurred, please try again."

var defaultMessages = map[int]string{
	http.StatusBadRequest:   "The submitted data is invalid.",
	http.StatusUnauthorized: "Your session has expired, please log in again.",
	http.StatusForbidden:    "You do not have permission to perform this action.",
	http.StatusNotFound:     "The requested resource was not found.",
	http.StatusConflict:     "This resource conflicts with an existing one.",
}

// Messages maps HTTP statuses to user-facing messages.
type Messages map[int]string

// Message returns the user-facing message for err. Statuses present in m
// take precedence over the defaults; fallback replaces GenericMessage for
// any other failure when non-empty.
func (m Messages) Message(err error, fallback string) string {
	status := StatusOf(err)
	if msg, ok := m[status]; ok {
		return msg
	}
	if msg, ok := defaultMessages[status]; ok {
		return msg
	}
	if fallback != "" {
		return fallback
	}
	return GenericMessage
}
