package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coachdesk/coachdesk/internal/models"
)

// newTestServer creates an httptest server that routes requests to handler functions
// keyed by method and path.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.Method+" "+r.URL.Path]
		if !ok {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestHTTPNavigate verifies the request body and the decoded navigation.
func TestHTTPNavigate(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/navigate": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["path"] != "/admin" {
				t.Errorf("path = %q, want /admin", body["path"])
			}
			writeTestJSON(t, w, map[string]any{
				"to":              map[string]any{"path": "/", "route": map[string]any{"name": "home", "pattern": "/"}},
				"redirected_from": []string{"/admin"},
				"notifications":   []map[string]any{{"message": "Access denied.", "color": "error"}},
			})
		},
	})
	defer ts.Close()

	result, err := NewHTTPClient(ts.URL).Navigate(context.Background(), "/admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.To.Name() != "home" {
		t.Errorf("route = %q, want home", result.To.Name())
	}
	if len(result.RedirectedFrom) != 1 || len(result.Notifications) != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestHTTPTraining(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/trainings/t1": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, models.TrainingDetail{
				Training:          models.Training{ID: "t1"},
				Tasks:             []models.TaskSummary{{Task: models.Task{ID: "k1"}, ValidationCount: 2, AverageDifficulty: 6.5}},
				OverallDifficulty: 6.5,
			})
		},
	})
	defer ts.Close()

	detail, err := NewHTTPClient(ts.URL).Training(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.OverallDifficulty != 6.5 || len(detail.Tasks) != 1 || detail.Tasks[0].ID != "k1" {
		t.Errorf("detail = %+v", detail)
	}
}

func TestHTTPCreateValidation(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/trainings/t1/tasks/k1/validations": func(w http.ResponseWriter, r *http.Request) {
			var in models.ValidationInput
			json.NewDecoder(r.Body).Decode(&in)
			if in.Repetitions != 8 {
				t.Errorf("repetitions = %d, want 8", in.Repetitions)
			}
			w.WriteHeader(http.StatusCreated)
			writeTestJSON(t, w, models.Validation{ID: "v1", TaskID: "k1", CalculatedDifficulty: 4})
		},
	})
	defer ts.Close()

	v, err := NewHTTPClient(ts.URL).CreateValidation(context.Background(), "t1", "k1", models.ValidationInput{Repetitions: 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.CalculatedDifficulty != 4 {
		t.Errorf("difficulty = %d, want 4", v.CalculatedDifficulty)
	}
}

// TestHTTPErrorMessage verifies the server's error message is surfaced.
func TestHTTPErrorMessage(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/groups/owner/c1": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]string{"error": "Error while loading the groups."})
		},
	})
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL).Groups(context.Background(), "c1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Error while loading the groups.") {
		t.Errorf("error = %v", err)
	}
}

func TestHTTPMe(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/me": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, map[string]any{
				"profile": models.Profile{ID: "u1", Roles: []string{"admin"}},
				"caller":  map[string]string{"login": "local"},
			})
		},
	})
	defer ts.Close()

	me, err := NewHTTPClient(ts.URL).Me(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if me.ID != "u1" || len(me.Roles) != 1 {
		t.Errorf("me = %+v", me)
	}
}

// TestHTTPMeLoggedOut verifies a 401 maps to ErrNotLoggedIn.
func TestHTTPMeLoggedOut(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/me": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
	})
	defer ts.Close()

	if _, err := NewHTTPClient(ts.URL).Me(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("err = %v, want ErrNotLoggedIn", err)
	}
}
