// Package difficulty rates logged exercise validations on a 1–10 scale and
// aggregates those ratings per task and per training.
package difficulty

import (
	"log/slog"
	"math"

	"github.com/coachdesk/coachdesk/internal/models"
)

// Score bounds. Min is also returned for incomplete records, so a computed
// score is never 0; averages rely on 0 meaning "no data".
const (
	Min = 1
	Max = 10
)

const (
	maxReps = 30
	maxSets = 10
	maxRIR  = 5

	repsWeight = 0.4
	setsWeight = 0.3
	rirWeight  = 0.3
)

// MissingFields lists the scoring inputs absent from v, using their wire names.
func MissingFields(v models.Validation) []string {
	var missing []string
	if v.Repetitions == nil {
		missing = append(missing, "repetitions")
	}
	if v.SetNumber == nil {
		missing = append(missing, "set_number")
	}
	if v.RIR == nil {
		missing = append(missing, "rir")
	}
	return missing
}

// Score returns the difficulty of a validation in [Min, Max]. Records missing
// repetitions, set number or RIR score Min.
func Score(v models.Validation) int {
	if len(MissingFields(v)) > 0 {
		return Min
	}

	repsScore := math.Min(float64(*v.Repetitions)/maxReps, 1)
	setsScore := math.Min(float64(*v.SetNumber)/maxSets, 1)
	rirScore := math.Max(0, (maxRIR-math.Min(float64(*v.RIR), maxRIR))/maxRIR)

	raw := repsScore*repsWeight + setsScore*setsWeight + rirScore*rirWeight
	return clamp(int(math.Round(raw*9+1)))
}

func clamp(score int) int {
	return max(Min, min(Max, score))
}

// Scorer wraps Score and logs a diagnostic for incomplete records.
type Scorer struct {
	log *slog.Logger
}

// NewScorer creates a Scorer. A nil logger discards diagnostics.
func NewScorer(log *slog.Logger) *Scorer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Scorer{log: log}
}

// Score computes the difficulty of v and warns when inputs are missing.
func (s *Scorer) Score(v models.Validation) int {
	if missing := MissingFields(v); len(missing) > 0 {
		s.log.Warn("missing values for difficulty calculation",
			"validation_id", v.ID,
			"task_id", v.TaskID,
			"missing", missing,
		)
		return Min
	}
	return Score(v)
}

// AverageForTask returns the mean calculated difficulty of the records that
// carry one, rounded to one decimal. It returns 0 when none do.
func AverageForTask(records []models.Validation) float64 {
	var total, n int
	for _, r := range records {
		if r.CalculatedDifficulty == 0 {
			continue
		}
		total += r.CalculatedDifficulty
		n++
	}
	if n == 0 {
		return 0
	}
	return roundTenth(float64(total) / float64(n))
}

// Overall averages the per-task averages of tasks, ignoring tasks whose
// average is 0 (no validations). It returns 0 when no task has data.
func Overall[T any](tasks []T, average func(T) float64) float64 {
	var total float64
	var n int
	for _, t := range tasks {
		avg := average(t)
		if avg <= 0 {
			continue
		}
		total += avg
		n++
	}
	if n == 0 {
		return 0
	}
	return roundTenth(total / float64(n))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
