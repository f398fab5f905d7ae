package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) session(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	summary := map[string]any{"authenticated": false}

	user, err := h.ds.Me(ctx)
	switch {
	case errors.Is(err, ErrNotLoggedIn):
	case err != nil:
		h.log.Warn("session resource: profile lookup failed", "error", err)
	default:
		summary = map[string]any{
			"authenticated": true,
			"profile":       user,
			"roles":         user.Roles,
		}
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
