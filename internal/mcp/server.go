// Package mcp exposes the coaching workflow to MCP clients: navigation,
// training difficulty and validation logging.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("coachdesk", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("coachdesk coaching client. Navigate pages as the logged-in user, inspect training difficulty, and log exercise validations. Access follows the user's roles."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolNavigate, Handler: h.navigate},
		server.ServerTool{Tool: toolGetTrainingDifficulty, Handler: h.getTrainingDifficulty},
		server.ServerTool{Tool: toolListValidations, Handler: h.listValidations},
		server.ServerTool{Tool: toolLogValidation, Handler: h.logValidation},
		server.ServerTool{Tool: toolScoreValidation, Handler: h.scoreValidation},
		server.ServerTool{Tool: toolListGroups, Handler: h.listGroups},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resSession, Handler: h.session},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

var resSession = mcp.NewResource(
	"coachdesk://session",
	"Session",
	mcp.WithResourceDescription("The logged-in user's profile and roles"),
	mcp.WithMIMEType("application/json"),
)
