package mcp

import (
	"context"
	"fmt"
	"math"

	"github.com/coachdesk/coachdesk/internal/difficulty"
	"github.com/coachdesk/coachdesk/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolNavigate = mcp.NewTool("navigate",
	mcp.WithDescription("Navigate to an application page as the logged-in user. Returns the page actually reached (after login or role redirects) and any notifications shown."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Page path (e.g. /dashboard, /training/{id}, /groups/owner/{ownerId})")),
)

var toolGetTrainingDifficulty = mcp.NewTool("get_training_difficulty",
	mcp.WithDescription("Load a training and return the average difficulty (1-10) of each task's validations plus the overall difficulty. Tasks without validations are excluded from the overall figure."),
	mcp.WithString("training_id", mcp.Required(), mcp.Description("Training ID")),
)

var toolListValidations = mcp.NewTool("list_validations",
	mcp.WithDescription("List the logged validations of one task, most recent first, with their calculated difficulty."),
	mcp.WithString("training_id", mcp.Required(), mcp.Description("Training ID")),
	mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of validations. Defaults to 20.")),
)

var toolLogValidation = mcp.NewTool("log_validation",
	mcp.WithDescription("Record a performed set for a task. Returns the stored validation with its calculated difficulty."),
	mcp.WithString("training_id", mcp.Required(), mcp.Description("Training ID")),
	mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID")),
	mcp.WithNumber("repetitions", mcp.Required(), mcp.Description("Repetitions performed")),
	mcp.WithNumber("set_number", mcp.Required(), mcp.Description("Number of sets")),
	mcp.WithNumber("rir", mcp.Required(), mcp.Description("Reps in reserve (0 = failure)")),
	mcp.WithNumber("rest_time", mcp.Description("Rest between sets in minutes")),
	mcp.WithString("notes", mcp.Description("Free-form notes")),
	mcp.WithString("succeeded_at", mcp.Description("When the set was performed (RFC 3339 or YYYY-MM-DD). Defaults to now.")),
)

var toolScoreValidation = mcp.NewTool("score_validation",
	mcp.WithDescription("Compute the 1-10 difficulty of a performance without recording it. Missing inputs score 1."),
	mcp.WithNumber("repetitions", mcp.Description("Repetitions performed")),
	mcp.WithNumber("set_number", mcp.Description("Number of sets")),
	mcp.WithNumber("rir", mcp.Description("Reps in reserve")),
)

var toolListGroups = mcp.NewTool("list_groups",
	mcp.WithDescription("List the groups owned by a coach. Requires the coach or admin role."),
	mcp.WithString("owner_id", mcp.Description("Owner profile ID. Defaults to the logged-in user.")),
)

// optionalInt reads a numeric argument, reporting nil when it is absent.
func optionalInt(req mcp.CallToolRequest, key string) (*int, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	f, ok := raw.(float64)
	if !ok || f != math.Trunc(f) {
		return nil, fmt.Errorf("%s must be an integer", key)
	}
	n := int(f)
	return &n, nil
}

// --- Tool handlers ---

func (h *handlers) navigate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path parameter is required"), nil
	}

	result, err := h.ds.Navigate(ctx, path)
	if err != nil {
		h.log.Error("mcp navigate", "path", path, "error", err)
		return mcp.NewToolResultError("navigation failed: " + err.Error()), nil
	}

	res, err := mcp.NewToolResultJSON(result)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return res, nil
}

func (h *handlers) getTrainingDifficulty(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("training_id")
	if err != nil {
		return mcp.NewToolResultError("training_id parameter is required"), nil
	}

	detail, err := h.ds.Training(ctx, id)
	if err != nil {
		h.log.Error("mcp get_training_difficulty", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	res, err := mcp.NewToolResultJSON(map[string]any{
		"training":           detail.Training,
		"tasks":              detail.Tasks,
		"overall_difficulty": detail.OverallDifficulty,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return res, nil
}

func (h *handlers) listValidations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	trainingID, err := req.RequireString("training_id")
	if err != nil {
		return mcp.NewToolResultError("training_id parameter is required"), nil
	}
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError("task_id parameter is required"), nil
	}
	limit := int(req.GetFloat("limit", 20))
	if limit <= 0 {
		limit = 20
	}

	detail, err := h.ds.Training(ctx, trainingID)
	if err != nil {
		h.log.Error("mcp list_validations", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	list := detail.Validations[taskID]
	if list == nil {
		list = []models.Validation{}
	}
	if len(list) > limit {
		list = list[:limit]
	}

	res, err := mcp.NewToolResultJSON(list)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return res, nil
}

func (h *handlers) logValidation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	trainingID, err := req.RequireString("training_id")
	if err != nil {
		return mcp.NewToolResultError("training_id parameter is required"), nil
	}
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError("task_id parameter is required"), nil
	}

	var in models.ValidationInput
	for key, dst := range map[string]*int{
		"repetitions": &in.Repetitions,
		"set_number":  &in.SetNumber,
		"rir":         &in.RIR,
	} {
		v, err := optionalInt(req, key)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if v == nil {
			return mcp.NewToolResultError(key + " parameter is required"), nil
		}
		*dst = *v
	}
	in.RestTime = req.GetFloat("rest_time", 0)
	in.Notes = req.GetString("notes", "")
	if at := req.GetString("succeeded_at", ""); at != "" {
		ts, ok := models.ParseTimestamp(at)
		if !ok {
			return mcp.NewToolResultError("invalid succeeded_at: " + at), nil
		}
		in.SucceededAt = ts
	}

	v, err := h.ds.CreateValidation(ctx, trainingID, taskID, in)
	if err != nil {
		h.log.Error("mcp log_validation", "task_id", taskID, "error", err)
		return mcp.NewToolResultError("saving failed: " + err.Error()), nil
	}

	res, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return res, nil
}

func (h *handlers) scoreValidation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var v models.Validation
	var err error
	if v.Repetitions, err = optionalInt(req, "repetitions"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if v.SetNumber, err = optionalInt(req, "set_number"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if v.RIR, err = optionalInt(req, "rir"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := mcp.NewToolResultJSON(map[string]any{
		"difficulty": difficulty.Score(v),
		"missing":    difficulty.MissingFields(v),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return res, nil
}

func (h *handlers) listGroups(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ownerID := req.GetString("owner_id", "")
	if ownerID == "" {
		me, err := h.ds.Me(ctx)
		if err != nil {
			return mcp.NewToolResultError("owner_id is required when not logged in"), nil
		}
		ownerID = me.ID
	}

	groups, err := h.ds.Groups(ctx, ownerID)
	if err != nil {
		h.log.Error("mcp list_groups", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if groups == nil {
		groups = []models.Group{}
	}

	res, err := mcp.NewToolResultJSON(groups)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return res, nil
}
