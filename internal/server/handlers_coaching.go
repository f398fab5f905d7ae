package server

import (
	"encoding/json"
	"net/http"

	"github.com/coachdesk/coachdesk/internal/backend"
	"github.com/coachdesk/coachdesk/internal/models"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleMyTrainings(w http.ResponseWriter, r *http.Request) {
	list := s.app.Training.FetchMine(r.Context())
	if list == nil && s.app.Training.Err() != "" {
		writeStoreError(w, s.app.Training.Err())
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleTraining(w http.ResponseWriter, r *http.Request) {
	detail := s.app.Training.Load(r.Context(), chi.URLParam(r, "id"))
	if detail == nil {
		writeStoreError(w, s.app.Training.Err())
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleCreateValidation(w http.ResponseWriter, r *http.Request) {
	var in models.ValidationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	v, err := s.app.Training.CreateValidation(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "taskID"), in)
	if err != nil {
		writeBackendError(w, err, backend.Messages{}.Message(err, ""))
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleDeleteValidation(w http.ResponseWriter, r *http.Request) {
	err := s.app.Training.DeleteValidation(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "taskID"), chi.URLParam(r, "validationID"))
	if err != nil {
		writeBackendError(w, err, backend.Messages{}.Message(err, ""))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	list := s.app.Groups.FetchGroups(r.Context(), chi.URLParam(r, "ownerID"))
	if msg := s.app.Groups.Err(); msg != "" {
		writeStoreError(w, msg)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var g models.Group
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	created, err := s.app.Groups.CreateGroup(r.Context(), g)
	if err != nil {
		writeBackendError(w, err, s.app.Groups.Err())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Groups.DeleteGroup(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeBackendError(w, err, s.app.Groups.Err())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMyDiets(w http.ResponseWriter, r *http.Request) {
	list := s.app.Diet.FetchMine(r.Context())
	if list == nil && s.app.Diet.Err() != "" {
		writeStoreError(w, s.app.Diet.Err())
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

// dietView is a diet with the current user's plans and their summary.
type dietView struct {
	Diet                *models.Diet       `json:"diet"`
	MacroPlans          []models.MacroPlan `json:"macro_plans"`
	MealPlans           []models.MealPlan  `json:"meal_plans"`
	HighestCaloriePlan  *models.MacroPlan  `json:"highest_calorie_plan"`
	LowestCaloriePlan   *models.MacroPlan  `json:"lowest_calorie_plan"`
	TotalMealsCount     int                `json:"total_meals_count"`
	AverageMealsPerPlan int                `json:"average_meals_per_plan"`
}

func (s *Server) handleDiet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st := s.app.Diet
	st.Reset()

	d := st.FetchDiet(r.Context(), id)
	if d == nil {
		writeStoreError(w, st.Err())
		return
	}
	st.FetchMacroPlans(r.Context(), id)
	st.FetchMealPlans(r.Context(), id)

	writeJSON(w, http.StatusOK, dietView{
		Diet:                d,
		MacroPlans:          nonNil(st.MacroPlans()),
		MealPlans:           nonNil(st.MealPlans()),
		HighestCaloriePlan:  st.HighestCaloriePlan(),
		LowestCaloriePlan:   st.LowestCaloriePlan(),
		TotalMealsCount:     st.TotalMealsCount(),
		AverageMealsPerPlan: st.AverageMealsPerPlan(),
	})
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
