package models

// Role tags carried by a profile.
const (
	RoleAdmin = "admin"
	RoleCoach = "coach"
	RoleUser  = "user"
)

// Profile is the authenticated user as returned by GET /profiles/me.
type Profile struct {
	ID    string   `json:"id"`
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Sex   string   `json:"sex,omitempty"`
	Roles []string `json:"roles"`
}

// Training is a program assigned to a user.
type Training struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	CoachID     string `json:"coach_id,omitempty"`
}

// Task is one exercise of a training.
type Task struct {
	ID          string `json:"id"`
	TrainingID  string `json:"training_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TargetReps  *int   `json:"target_reps,omitempty"`
	TargetSets  *int   `json:"target_sets,omitempty"`
}

// Validation is one logged performance of a task. Repetitions, SetNumber and
// RIR are pointers so that an absent field is distinguishable from zero.
// CalculatedDifficulty is derived locally once, when the record is fetched
// or created.
type Validation struct {
	ID                   string    `json:"id"`
	TaskID               string    `json:"task_id"`
	Repetitions          *int      `json:"repetitions,omitempty"`
	SetNumber            *int      `json:"set_number,omitempty"`
	RestTime             *float64  `json:"rest_time,omitempty"`
	RIR                  *int      `json:"rir,omitempty"`
	Notes                string    `json:"notes,omitempty"`
	SucceededAt          Timestamp `json:"succeeded_at"`
	CalculatedDifficulty int       `json:"calculated_difficulty,omitempty"`
}

// ValidationInput is the body of a validation creation request. A zero
// SucceededAt is filled with the creation time before posting.
type ValidationInput struct {
	Repetitions int       `json:"repetitions"`
	SetNumber   int       `json:"set_number"`
	RestTime    float64   `json:"rest_time"`
	RIR         int       `json:"rir"`
	Notes       string    `json:"notes,omitempty"`
	SucceededAt Timestamp `json:"succeeded_at"`
}

// Group is a set of members owned by a coach.
type Group struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	OwnerID     string   `json:"owner_id,omitempty"`
	Members     []string `json:"members,omitempty"`
}

// Diet is a nutrition program.
type Diet struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UserID      string `json:"user_id,omitempty"`
}

// MacroPlan holds daily macro-nutrient targets. Kilocalorie is optional.
type MacroPlan struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Kilocalorie  *float64 `json:"kilocalorie,omitempty"`
	Protein      *float64 `json:"protein,omitempty"`
	Carbohydrate *float64 `json:"carbohydrate,omitempty"`
	Fat          *float64 `json:"fat,omitempty"`
}

// Meal is a single meal of a meal plan.
type Meal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MealPlan groups meals for a day.
type MealPlan struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Meals []Meal `json:"meals,omitempty"`
}

// Registration is the body of POST /profiles.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Sex      string `json:"sex,omitempty"`
}

// TaskSummary is a task with the difficulty figures of its validations.
type TaskSummary struct {
	Task
	ValidationCount   int     `json:"validation_count"`
	AverageDifficulty float64 `json:"average_difficulty"`
}

// TrainingDetail is a loaded training with its tasks, validations (by task
// ID, most recent first) and overall difficulty.
type TrainingDetail struct {
	Training          Training                `json:"training"`
	Tasks             []TaskSummary           `json:"tasks"`
	OverallDifficulty float64                 `json:"overall_difficulty"`
	Validations       map[string][]Validation `json:"validations"`
}
