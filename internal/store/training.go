// Package store holds the client-side state of the coaching pages: thin
// facades over the backend API that cache results and turn failures into
// user-facing messages.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/coachdesk/coachdesk/internal/backend"
	"github.com/coachdesk/coachdesk/internal/difficulty"
	"github.com/coachdesk/coachdesk/internal/models"
	"github.com/coachdesk/coachdesk/internal/notify"
)

// TrainingLoading flags in-flight training requests.
type TrainingLoading struct {
	Training    bool `json:"training"`
	Tasks       bool `json:"tasks"`
	Validations bool `json:"validations"`
	Creating    bool `json:"creating"`
}

// Training holds the training being viewed, its tasks and the validation
// index (task ID → validations, most recent first).
type Training struct {
	api    backend.API
	sink   notify.Sink
	scorer *difficulty.Scorer
	log    *slog.Logger
	now    func() time.Time

	// loadMu serializes Load.
	loadMu sync.Mutex

	mu          sync.RWMutex
	current     *models.Training
	tasks       []models.Task
	validations map[string][]models.Validation
	mine        []models.Training
	loading     TrainingLoading
	err         string
}

// NewTraining creates an empty Training store.
func NewTraining(api backend.API, sink notify.Sink, log *slog.Logger) *Training {
	return &Training{
		api:         api,
		sink:        sink,
		scorer:      difficulty.NewScorer(log),
		log:         log,
		now:         time.Now,
		validations: make(map[string][]models.Validation),
	}
}

// FetchTraining loads a training. On failure it returns nil and records
// the error state.
func (s *Training) FetchTraining(ctx context.Context, trainingID string) *models.Training {
	s.setLoading(func(l *TrainingLoading) { l.Training = true })
	defer s.setLoading(func(l *TrainingLoading) { l.Training = false })
	s.setError("")

	var t models.Training
	if err := s.api.Get(ctx, "/trainings/"+trainingID, &t); err != nil {
		s.log.Error("fetching training", "training_id", trainingID, "error", err)
		s.fail(backend.Messages{}.Message(err, "Error while loading the training."))
		return nil
	}

	s.mu.Lock()
	s.current = &t
	s.mu.Unlock()
	return &t
}

// FetchMine loads the trainings of the logged-in user.
func (s *Training) FetchMine(ctx context.Context) []models.Training {
	s.setError("")
	var list []models.Training
	if err := s.api.Get(ctx, "/trainings/mine", &list); err != nil {
		s.log.Error("fetching my trainings", "error", err)
		s.fail(backend.Messages{}.Message(err, "Error while loading your trainings."))
		return nil
	}
	s.mu.Lock()
	s.mine = list
	s.mu.Unlock()
	return slices.Clone(list)
}

// FetchTasks loads the tasks of a training.
func (s *Training) FetchTasks(ctx context.Context, trainingID string) []models.Task {
	s.setLoading(func(l *TrainingLoading) { l.Tasks = true })
	defer s.setLoading(func(l *TrainingLoading) { l.Tasks = false })
	s.setError("")

	tasks, err := s.getTasks(ctx, trainingID)
	if err != nil {
		s.log.Error("fetching tasks", "training_id", trainingID, "error", err)
		s.fail(backend.Messages{}.Message(err, "Error while loading the tasks."))
		return nil
	}
	return tasks
}

func (s *Training) getTasks(ctx context.Context, trainingID string) ([]models.Task, error) {
	var tasks []models.Task
	if err := s.api.Get(ctx, "/trainings/"+trainingID+"/tasks", &tasks); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
	return slices.Clone(tasks), nil
}

// FetchAllValidations rebuilds the validation index of a training. Tasks
// are loaded first when none are. Each record is scored once here.
func (s *Training) FetchAllValidations(ctx context.Context, trainingID string) []models.Validation {
	s.setLoading(func(l *TrainingLoading) { l.Validations = true })
	defer s.setLoading(func(l *TrainingLoading) { l.Validations = false })

	var all []models.Validation
	if err := s.api.Get(ctx, "/trainings/"+trainingID+"/validations", &all); err != nil {
		s.log.Error("fetching validations", "training_id", trainingID, "error", err)
		s.mu.Lock()
		s.validations = make(map[string][]models.Validation)
		s.mu.Unlock()
		s.fail(backend.Messages{}.Message(err, "Error while loading the validations."))
		return nil
	}

	if len(s.Tasks()) == 0 {
		s.log.Warn("tasks not loaded yet, fetching them first", "training_id", trainingID)
		if _, err := s.getTasks(ctx, trainingID); err != nil {
			s.log.Error("fetching tasks", "training_id", trainingID, "error", err)
			s.fail(backend.Messages{}.Message(err, "Error while loading the tasks."))
			return nil
		}
	}

	index := make(map[string][]models.Validation)
	for i := range all {
		all[i].CalculatedDifficulty = s.scorer.Score(all[i])
		index[all[i].TaskID] = append(index[all[i].TaskID], all[i])
	}
	for _, list := range index {
		sortRecentFirst(list)
	}

	s.mu.Lock()
	s.validations = index
	s.mu.Unlock()
	return all
}

// CreateValidation logs a validation for a task and prepends it to the
// task's list. A zero SucceededAt is stamped with the current time. Errors
// are returned to the caller.
func (s *Training) CreateValidation(ctx context.Context, trainingID, taskID string, in models.ValidationInput) (*models.Validation, error) {
	s.setLoading(func(l *TrainingLoading) { l.Creating = true })
	defer s.setLoading(func(l *TrainingLoading) { l.Creating = false })

	if in.SucceededAt.IsZero() {
		in.SucceededAt = models.Timestamp{Time: s.now().UTC()}
	}

	var v models.Validation
	path := fmt.Sprintf("/trainings/%s/tasks/%s/validations", trainingID, taskID)
	if err := s.api.Post(ctx, path, in, &v); err != nil {
		s.log.Error("creating validation", "task_id", taskID, "error", err)
		s.fail(backend.Messages{}.Message(err, "Error while saving the validation."))
		return nil, fmt.Errorf("creating validation: %w", err)
	}
	if v.TaskID == "" {
		v.TaskID = taskID
	}
	if v.SucceededAt.IsZero() && v.SucceededAt.Raw == "" {
		v.SucceededAt = in.SucceededAt
	}
	v.CalculatedDifficulty = s.scorer.Score(v)

	s.mu.Lock()
	s.validations[taskID] = append([]models.Validation{v}, s.validations[taskID]...)
	s.mu.Unlock()
	return &v, nil
}

// DeleteValidation removes a validation. Errors are returned to the caller.
func (s *Training) DeleteValidation(ctx context.Context, trainingID, taskID, validationID string) error {
	s.setLoading(func(l *TrainingLoading) { l.Creating = true })
	defer s.setLoading(func(l *TrainingLoading) { l.Creating = false })

	path := fmt.Sprintf("/trainings/%s/tasks/%s/validations/%s", trainingID, taskID, validationID)
	if err := s.api.Delete(ctx, path); err != nil {
		s.log.Error("deleting validation", "validation_id", validationID, "error", err)
		s.fail(backend.Messages{}.Message(err, "Error while deleting the validation."))
		return fmt.Errorf("deleting validation: %w", err)
	}

	s.mu.Lock()
	if list, ok := s.validations[taskID]; ok {
		s.validations[taskID] = slices.DeleteFunc(slices.Clone(list), func(v models.Validation) bool {
			return v.ID == validationID
		})
	}
	s.mu.Unlock()
	return nil
}

// Load replaces the store contents with a training, its tasks and its
// validations, and summarizes them. It returns nil when the training cannot
// be loaded.
func (s *Training) Load(ctx context.Context, trainingID string) *models.TrainingDetail {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.Reset()
	t := s.FetchTraining(ctx, trainingID)
	if t == nil {
		return nil
	}
	s.FetchTasks(ctx, trainingID)
	s.FetchAllValidations(ctx, trainingID)

	tasks := s.Tasks()
	summaries := make([]models.TaskSummary, 0, len(tasks))
	for _, task := range tasks {
		summaries = append(summaries, models.TaskSummary{
			Task:              task,
			ValidationCount:   s.ValidationCount(task.ID),
			AverageDifficulty: s.AverageDifficultyForTask(task.ID),
		})
	}
	return &models.TrainingDetail{
		Training:          *t,
		Tasks:             summaries,
		OverallDifficulty: s.OverallDifficulty(),
		Validations:       s.Index(),
	}
}

// Current returns the loaded training, or nil.
func (s *Training) Current() *models.Training {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	t := *s.current
	return &t
}

// Tasks returns the loaded tasks.
func (s *Training) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks)
}

// ValidationsForTask returns the validations of a task, most recent first.
func (s *Training) ValidationsForTask(taskID string) []models.Validation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.validations[taskID])
}

// Index returns a copy of the whole validation index.
func (s *Training) Index() map[string][]models.Validation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]models.Validation, len(s.validations))
	for k, v := range s.validations {
		out[k] = slices.Clone(v)
	}
	return out
}

// ValidationCount returns how many validations a task has.
func (s *Training) ValidationCount(taskID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.validations[taskID])
}

// HasValidations reports whether a task has at least one validation.
func (s *Training) HasValidations(taskID string) bool {
	return s.ValidationCount(taskID) > 0
}

// AverageDifficultyForTask is the mean difficulty of a task's validations,
// or 0 when it has none.
func (s *Training) AverageDifficultyForTask(taskID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return difficulty.AverageForTask(s.validations[taskID])
}

// OverallDifficulty averages the per-task averages of the loaded tasks,
// ignoring tasks without validations.
func (s *Training) OverallDifficulty() float64 {
	return difficulty.Overall(s.Tasks(), func(t models.Task) float64 {
		return s.AverageDifficultyForTask(t.ID)
	})
}

// Loading returns the in-flight request flags.
func (s *Training) Loading() TrainingLoading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last user-facing error message.
func (s *Training) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Reset clears everything; called when the training view is left.
func (s *Training) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.tasks = nil
	s.validations = make(map[string][]models.Validation)
	s.err = ""
}

func (s *Training) setLoading(f func(*TrainingLoading)) {
	s.mu.Lock()
	f(&s.loading)
	s.mu.Unlock()
}

func (s *Training) setError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

func (s *Training) fail(msg string) {
	s.setError(msg)
	if s.sink != nil {
		s.sink.Error(msg, 0)
	}
}

func sortRecentFirst(list []models.Validation) {
	slices.SortStableFunc(list, func(a, b models.Validation) int {
		return b.SucceededAt.Time.Compare(a.SucceededAt.Time)
	})
}
