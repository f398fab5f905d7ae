package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/coachdesk/coachdesk/internal/backend"
	"github.com/coachdesk/coachdesk/internal/models"
	"github.com/coachdesk/coachdesk/internal/notify"
)

// ErrNoUser is returned by per-user diet requests when nobody is logged in.
var ErrNoUser = errors.New("user not logged in")

// Principal identifies the logged-in user; *session.Session satisfies it.
type Principal interface {
	UserID() string
}

// DietLoading flags in-flight diet requests.
type DietLoading struct {
	Diet       bool `json:"diet"`
	MacroPlans bool `json:"macro_plans"`
	MealPlans  bool `json:"meal_plans"`
}

// Diet holds the diet being viewed and the current user's plans for it.
type Diet struct {
	api  backend.API
	user Principal
	sink notify.Sink
	log  *slog.Logger

	mu         sync.RWMutex
	current    *models.Diet
	mine       []models.Diet
	macroPlans []models.MacroPlan
	mealPlans  []models.MealPlan
	loading    DietLoading
	err        string
}

func NewDiet(api backend.API, user Principal, sink notify.Sink, log *slog.Logger) *Diet {
	return &Diet{api: api, user: user, sink: sink, log: log}
}

// FetchDiet loads a diet, or returns nil after recording the failure.
func (s *Diet) FetchDiet(ctx context.Context, dietID string) *models.Diet {
	s.setLoading(func(l *DietLoading) { l.Diet = true })
	defer s.setLoading(func(l *DietLoading) { l.Diet = false })
	s.setError("")

	var d models.Diet
	if err := s.api.Get(ctx, "/diets/"+dietID, &d); err != nil {
		s.log.Error("fetching diet", "diet_id", dietID, "error", err)
		s.fail(backend.Messages{}.Message(err, "Error while loading the diet."))
		return nil
	}
	s.mu.Lock()
	s.current = &d
	s.mu.Unlock()
	return &d
}

// FetchMine loads the diets assigned to the logged-in user.
func (s *Diet) FetchMine(ctx context.Context) []models.Diet {
	s.setError("")
	var list []models.Diet
	if err := s.api.Get(ctx, "/diets/mine", &list); err != nil {
		s.log.Error("fetching my diets", "error", err)
		s.fail(backend.Messages{}.Message(err, "Error while loading your diets."))
		return nil
	}
	s.mu.Lock()
	s.mine = list
	s.mu.Unlock()
	return slices.Clone(list)
}

// FetchMacroPlans loads the macro plans of a diet for the logged-in user.
func (s *Diet) FetchMacroPlans(ctx context.Context, dietID string) []models.MacroPlan {
	s.setLoading(func(l *DietLoading) { l.MacroPlans = true })
	defer s.setLoading(func(l *DietLoading) { l.MacroPlans = false })
	s.setError("")

	path, ok := s.userPath(dietID, "macro_plans")
	if !ok {
		return nil
	}
	var plans []models.MacroPlan
	if err := s.api.Get(ctx, path, &plans); err != nil {
		s.log.Error("fetching macro plans", "diet_id", dietID, "error", err)
		s.mu.Lock()
		s.macroPlans = nil
		s.mu.Unlock()
		s.fail(backend.Messages{}.Message(err, "Error while loading the macro plans."))
		return nil
	}
	s.mu.Lock()
	s.macroPlans = plans
	s.mu.Unlock()
	return slices.Clone(plans)
}

// FetchMealPlans loads the meal plans of a diet for the logged-in user.
func (s *Diet) FetchMealPlans(ctx context.Context, dietID string) []models.MealPlan {
	s.setLoading(func(l *DietLoading) { l.MealPlans = true })
	defer s.setLoading(func(l *DietLoading) { l.MealPlans = false })
	s.setError("")

	path, ok := s.userPath(dietID, "meal_plans")
	if !ok {
		return nil
	}
	var plans []models.MealPlan
	if err := s.api.Get(ctx, path, &plans); err != nil {
		s.log.Error("fetching meal plans", "diet_id", dietID, "error", err)
		s.mu.Lock()
		s.mealPlans = nil
		s.mu.Unlock()
		s.fail(backend.Messages{}.Message(err, "Error while loading the meal plans."))
		return nil
	}
	s.mu.Lock()
	s.mealPlans = plans
	s.mu.Unlock()
	return slices.Clone(plans)
}

// CreateMacroPlan adds a macro plan to a diet for the logged-in user.
func (s *Diet) CreateMacroPlan(ctx context.Context, dietID string, plan models.MacroPlan) (*models.MacroPlan, error) {
	path, ok := s.userPath(dietID, "macro_plans")
	if !ok {
		return nil, ErrNoUser
	}
	var created models.MacroPlan
	if err := s.api.Post(ctx, path, plan, &created); err != nil {
		s.log.Error("creating macro plan", "diet_id", dietID, "error", err)
		s.fail(backend.Messages{}.Message(err, "Error while saving the macro plan."))
		return nil, fmt.Errorf("creating macro plan: %w", err)
	}
	s.mu.Lock()
	s.macroPlans = append(s.macroPlans, created)
	s.mu.Unlock()
	return &created, nil
}

// CreateMealPlan adds a meal plan to a diet for the logged-in user.
func (s *Diet) CreateMealPlan(ctx context.Context, dietID string, plan models.MealPlan) (*models.MealPlan, error) {
	path, ok := s.userPath(dietID, "meal_plans")
	if !ok {
		return nil, ErrNoUser
	}
	var created models.MealPlan
	if err := s.api.Post(ctx, path, plan, &created); err != nil {
		s.log.Error("creating meal plan", "diet_id", dietID, "error", err)
		s.fail(backend.Messages{}.Message(err, "Error while saving the meal plan."))
		return nil, fmt.Errorf("creating meal plan: %w", err)
	}
	s.mu.Lock()
	s.mealPlans = append(s.mealPlans, created)
	s.mu.Unlock()
	return &created, nil
}

// userPath builds /diets/{id}/user/{userID}/{kind}. Without a logged-in user
// it records the error state and reports false.
func (s *Diet) userPath(dietID, kind string) (string, bool) {
	uid := ""
	if s.user != nil {
		uid = s.user.UserID()
	}
	if uid == "" {
		s.setError("User not logged in.")
		return "", false
	}
	return fmt.Sprintf("/diets/%s/user/%s/%s", dietID, uid, kind), true
}

func (s *Diet) Current() *models.Diet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	d := *s.current
	return &d
}

func (s *Diet) MacroPlans() []models.MacroPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.macroPlans)
}

func (s *Diet) MealPlans() []models.MealPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.mealPlans)
}

func (s *Diet) TotalMacroPlans() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.macroPlans)
}

func (s *Diet) TotalMealPlans() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mealPlans)
}

// HighestCaloriePlan returns the plan with the most kilocalories; plans
// without a value count as zero. The first plan wins ties.
func (s *Diet) HighestCaloriePlan() *models.MacroPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pickPlan(s.macroPlans, 0, func(a, b float64) bool { return a > b })
}

// LowestCaloriePlan returns the plan with the fewest kilocalories; plans
// without a value sort last.
func (s *Diet) LowestCaloriePlan() *models.MacroPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pickPlan(s.macroPlans, math.Inf(1), func(a, b float64) bool { return a < b })
}

func pickPlan(plans []models.MacroPlan, missing float64, better func(a, b float64) bool) *models.MacroPlan {
	if len(plans) == 0 {
		return nil
	}
	kcal := func(p models.MacroPlan) float64 {
		if p.Kilocalorie == nil {
			return missing
		}
		return *p.Kilocalorie
	}
	best := plans[0]
	for _, p := range plans[1:] {
		if better(kcal(p), kcal(best)) {
			best = p
		}
	}
	return &best
}

func (s *Diet) TotalMealsCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.mealPlans {
		n += len(p.Meals)
	}
	return n
}

// AverageMealsPerPlan is rounded to the nearest integer; 0 without plans.
func (s *Diet) AverageMealsPerPlan() int {
	plans := s.TotalMealPlans()
	if plans == 0 {
		return 0
	}
	return int(math.Round(float64(s.TotalMealsCount()) / float64(plans)))
}

func (s *Diet) Loading() DietLoading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Diet) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Diet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.macroPlans = nil
	s.mealPlans = nil
	s.err = ""
}

func (s *Diet) setLoading(f func(*DietLoading)) {
	s.mu.Lock()
	f(&s.loading)
	s.mu.Unlock()
}

func (s *Diet) setError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

func (s *Diet) fail(msg string) {
	s.setError(msg)
	if s.sink != nil {
		s.sink.Error(msg, 0)
	}
}
