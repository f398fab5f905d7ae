package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coachdesk/coachdesk/internal/backend"
)

// fakeAPI answers requests from canned responses keyed by "METHOD path".
type fakeAPI struct {
	mu        sync.Mutex
	responses map[string]any
	failures  map[string]int
	calls     []string
	bodies    map[string]any
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		responses: make(map[string]any),
		failures:  make(map[string]int),
		bodies:    make(map[string]any),
	}
}

func (f *fakeAPI) respond(key string, v any) { f.responses[key] = v }
func (f *fakeAPI) fail(key string, status int) { f.failures[key] = status }

func (f *fakeAPI) called(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == key {
			n++
		}
	}
	return n
}

func (f *fakeAPI) do(method, path string, body, out any) error {
	key := method + " " + path
	f.mu.Lock()
	f.calls = append(f.calls, key)
	if body != nil {
		f.bodies[key] = body
	}
	status, failed := f.failures[key]
	resp, ok := f.responses[key]
	f.mu.Unlock()

	if failed {
		return &backend.Error{Method: method, Path: path, Status: status, Err: fmt.Errorf("status %d", status)}
	}
	if !ok {
		return &backend.Error{Method: method, Path: path, Status: 404, Err: fmt.Errorf("no canned response")}
	}
	if out == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (f *fakeAPI) Get(ctx context.Context, path string, out any) error {
	return f.do("GET", path, nil, out)
}

func (f *fakeAPI) Post(ctx context.Context, path string, body, out any) error {
	return f.do("POST", path, body, out)
}

func (f *fakeAPI) Patch(ctx context.Context, path string, body, out any) error {
	return f.do("PATCH", path, body, out)
}

func (f *fakeAPI) Delete(ctx context.Context, path string) error {
	return f.do("DELETE", path, nil, nil)
}

var _ backend.API = (*fakeAPI)(nil)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
