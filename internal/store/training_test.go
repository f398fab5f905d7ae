package store

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/coachdesk/coachdesk/internal/backend"
	"github.com/coachdesk/coachdesk/internal/models"
	"github.com/coachdesk/coachdesk/internal/notify"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func validation(id, task string, reps, sets, rir int, at time.Time) models.Validation {
	return models.Validation{
		ID:          id,
		TaskID:      task,
		Repetitions: intPtr(reps),
		SetNumber:   intPtr(sets),
		RIR:         intPtr(rir),
		SucceededAt: models.Timestamp{Time: at},
	}
}

// TestFetchAllValidationsBuildsIndex verifies grouping, scoring and the
// most-recent-first order.
func TestFetchAllValidationsBuildsIndex(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /trainings/t1/tasks", []models.Task{{ID: "k1"}, {ID: "k2"}})
	api.respond("GET /trainings/t1/validations", []models.Validation{
		validation("v1", "k1", 12, 3, 2, base),
		validation("v2", "k1", 30, 10, 0, base.Add(time.Hour)),
		validation("v3", "k2", 1, 1, 10, base),
	})
	s := NewTraining(api, notify.NewSnackbar(nil), discardLogger())

	all := s.FetchAllValidations(context.Background(), "t1")
	if len(all) != 3 {
		t.Fatalf("got %d validations, want 3", len(all))
	}
	if api.called("GET /trainings/t1/tasks") != 1 {
		t.Error("tasks were not loaded before indexing")
	}

	k1 := s.ValidationsForTask("k1")
	if len(k1) != 2 || k1[0].ID != "v2" || k1[1].ID != "v1" {
		t.Fatalf("k1 = %+v, want v2 then v1", k1)
	}
	if k1[0].CalculatedDifficulty != 10 || k1[1].CalculatedDifficulty != 5 {
		t.Errorf("difficulties = %d, %d, want 10, 5", k1[0].CalculatedDifficulty, k1[1].CalculatedDifficulty)
	}
	if got := s.AverageDifficultyForTask("k1"); got != 7.5 {
		t.Errorf("average k1 = %v, want 7.5", got)
	}
	if got := s.OverallDifficulty(); got != 4.3 {
		t.Errorf("overall = %v, want 4.3", got)
	}
	if s.ValidationCount("k2") != 1 || !s.HasValidations("k2") || s.HasValidations("k3") {
		t.Error("counts do not match the index")
	}
}

// TestFetchAllValidationsSkipsTaskLoad verifies loaded tasks are reused.
func TestFetchAllValidationsSkipsTaskLoad(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /trainings/t1/tasks", []models.Task{{ID: "k1"}})
	api.respond("GET /trainings/t1/validations", []models.Validation{})
	s := NewTraining(api, nil, discardLogger())

	s.FetchTasks(context.Background(), "t1")
	s.FetchAllValidations(context.Background(), "t1")
	if got := api.called("GET /trainings/t1/tasks"); got != 1 {
		t.Errorf("tasks fetched %d times, want 1", got)
	}
}

// TestFetchAllValidationsFailureClearsIndex verifies a failed read empties
// the index and notifies without surfacing an error.
func TestFetchAllValidationsFailureClearsIndex(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /trainings/t1/tasks", []models.Task{{ID: "k1"}})
	api.respond("GET /trainings/t1/validations", []models.Validation{validation("v1", "k1", 12, 3, 2, base)})
	snack := notify.NewSnackbar(nil)
	s := NewTraining(api, snack, discardLogger())
	ctx := context.Background()

	s.FetchAllValidations(ctx, "t1")
	api.fail("GET /trainings/t1/validations", http.StatusInternalServerError)
	if got := s.FetchAllValidations(ctx, "t1"); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if s.HasValidations("k1") {
		t.Error("index not cleared")
	}
	if s.Err() == "" {
		t.Error("error state not set")
	}
	msgs := snack.Drain()
	if len(msgs) != 1 || msgs[0].Color != notify.ColorError {
		t.Errorf("notifications = %+v", msgs)
	}
}

func TestCreateValidationPrepends(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /trainings/t1/tasks", []models.Task{{ID: "k1"}})
	api.respond("GET /trainings/t1/validations", []models.Validation{validation("v1", "k1", 12, 3, 2, base)})
	api.respond("POST /trainings/t1/tasks/k1/validations", validation("v9", "", 30, 10, 0, base.Add(time.Hour)))
	s := NewTraining(api, nil, discardLogger())
	ctx := context.Background()
	s.FetchAllValidations(ctx, "t1")

	v, err := s.CreateValidation(ctx, "t1", "k1", models.ValidationInput{Repetitions: 30, SetNumber: 10})
	if err != nil {
		t.Fatal(err)
	}
	if v.TaskID != "k1" || v.CalculatedDifficulty != 10 {
		t.Errorf("created = %+v", v)
	}
	list := s.ValidationsForTask("k1")
	if len(list) != 2 || list[0].ID != "v9" {
		t.Errorf("list = %+v, want v9 first", list)
	}
}

// TestCreateValidationErrorPropagates verifies mutating failures reach the
// caller and leave the index untouched.
func TestCreateValidationErrorPropagates(t *testing.T) {
	api := newFakeAPI()
	api.fail("POST /trainings/t1/tasks/k1/validations", http.StatusBadRequest)
	snack := notify.NewSnackbar(nil)
	s := NewTraining(api, snack, discardLogger())

	_, err := s.CreateValidation(context.Background(), "t1", "k1", models.ValidationInput{})
	if backend.StatusOf(err) != http.StatusBadRequest {
		t.Errorf("err = %v, want status 400", err)
	}
	if s.HasValidations("k1") {
		t.Error("failed create modified the index")
	}
	n, ok := snack.Current()
	if !ok || n.Message != "The submitted data is invalid." {
		t.Errorf("notification = %+v", n)
	}
}

func TestDeleteValidationFilters(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /trainings/t1/tasks", []models.Task{{ID: "k1"}})
	api.respond("GET /trainings/t1/validations", []models.Validation{
		validation("v1", "k1", 12, 3, 2, base),
		validation("v2", "k1", 12, 3, 2, base.Add(time.Hour)),
	})
	api.respond("DELETE /trainings/t1/tasks/k1/validations/v1", nil)
	s := NewTraining(api, nil, discardLogger())
	ctx := context.Background()
	s.FetchAllValidations(ctx, "t1")

	if err := s.DeleteValidation(ctx, "t1", "k1", "v1"); err != nil {
		t.Fatal(err)
	}
	list := s.ValidationsForTask("k1")
	if len(list) != 1 || list[0].ID != "v2" {
		t.Errorf("list = %+v, want only v2", list)
	}

	api.fail("DELETE /trainings/t1/tasks/k1/validations/v2", http.StatusForbidden)
	if err := s.DeleteValidation(ctx, "t1", "k1", "v2"); err == nil {
		t.Error("expected an error")
	}
	if s.ValidationCount("k1") != 1 {
		t.Error("failed delete modified the index")
	}
}

// TestFetchTrainingSwallowsError verifies read failures return nil.
func TestFetchTrainingSwallowsError(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /trainings/t1", models.Training{ID: "t1", Name: "Push"})
	s := NewTraining(api, nil, discardLogger())
	ctx := context.Background()

	if tr := s.FetchTraining(ctx, "t1"); tr == nil || tr.Name != "Push" {
		t.Fatalf("training = %+v", tr)
	}
	if s.FetchTraining(ctx, "missing") != nil {
		t.Error("missing training returned a value")
	}
	if s.Err() != "The requested resource was not found." {
		t.Errorf("err = %q", s.Err())
	}
	if s.Current() == nil {
		t.Error("failed fetch cleared the previous training")
	}
}

func TestTrainingReset(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /trainings/t1", models.Training{ID: "t1"})
	api.respond("GET /trainings/t1/tasks", []models.Task{{ID: "k1"}})
	api.respond("GET /trainings/t1/validations", []models.Validation{validation("v1", "k1", 12, 3, 2, base)})
	s := NewTraining(api, nil, discardLogger())
	ctx := context.Background()
	s.FetchTraining(ctx, "t1")
	s.FetchAllValidations(ctx, "t1")

	s.Reset()
	if s.Current() != nil || len(s.Tasks()) != 0 || len(s.Index()) != 0 || s.OverallDifficulty() != 0 {
		t.Error("Reset left state behind")
	}
}

func TestFetchMineTrainings(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /trainings/mine", []models.Training{{ID: "t1"}, {ID: "t2"}})
	s := NewTraining(api, nil, discardLogger())
	if got := s.FetchMine(context.Background()); len(got) != 2 {
		t.Errorf("got %d trainings, want 2", len(got))
	}
	api.fail("GET /trainings/mine", http.StatusBadGateway)
	if got := s.FetchMine(context.Background()); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if s.Err() != "Error while loading your trainings." {
		t.Errorf("err = %q", s.Err())
	}
}

// TestLoadSummarizes verifies Load replaces previous state and reports
// per-task figures.
func TestLoadSummarizes(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /trainings/t1", models.Training{ID: "t1"})
	api.respond("GET /trainings/t1/tasks", []models.Task{{ID: "k1"}, {ID: "k2"}})
	api.respond("GET /trainings/t1/validations", []models.Validation{validation("v1", "k1", 12, 3, 2, base)})
	api.respond("GET /trainings/t2", models.Training{ID: "t2"})
	api.respond("GET /trainings/t2/tasks", []models.Task{{ID: "k9"}})
	api.respond("GET /trainings/t2/validations", []models.Validation{})
	s := NewTraining(api, nil, discardLogger())
	ctx := context.Background()

	d := s.Load(ctx, "t1")
	if d == nil {
		t.Fatal("Load returned nil")
	}
	if len(d.Tasks) != 2 || d.Tasks[0].ValidationCount != 1 || d.Tasks[0].AverageDifficulty != 5 {
		t.Errorf("tasks = %+v", d.Tasks)
	}
	if d.OverallDifficulty != 5 {
		t.Errorf("overall = %v, want 5", d.OverallDifficulty)
	}

	d = s.Load(ctx, "t2")
	if len(d.Tasks) != 1 || d.Tasks[0].ID != "k9" {
		t.Errorf("tasks after reload = %+v", d.Tasks)
	}
	if s.HasValidations("k1") {
		t.Error("previous training's validations kept")
	}
	if s.Load(ctx, "t3") != nil {
		t.Error("missing training returned a detail")
	}
}
