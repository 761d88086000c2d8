package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/auth"
	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/distribution"
	tasksvc "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/task"
)

// RegisterTools registers all MCP tools on the server.
func RegisterTools(
	s *mcpserver.MCPServer,
	reg *SessionRegistry,
	distSvc *distribution.Service,
	taskSvc *tasksvc.Service,
	defaults distribution.EligibilityPolicy,
) {
	s.AddTool(mcpmcp.NewTool("get_workload_stats",
		mcpmcp.WithDescription("Returns the tasks of an assignment, the group roster and each member's workload share. Tasks held by users who left the group are unassigned first."),
		mcpmcp.WithString("group_id", mcpmcp.Required(), mcpmcp.Description("Group UUID")),
		mcpmcp.WithString("assignment_id", mcpmcp.Required(), mcpmcp.Description("Assignment UUID")),
	), getWorkloadStatsHandler(reg, distSvc))

	s.AddTool(mcpmcp.NewTool("distribute_tasks",
		mcpmcp.WithDescription("Assigns the assignment's tasks across group members so weighted workload (effort hours x importance) is balanced. Group leader only."),
		mcpmcp.WithString("group_id", mcpmcp.Required(), mcpmcp.Description("Group UUID")),
		mcpmcp.WithString("assignment_id", mcpmcp.Required(), mcpmcp.Description("Assignment UUID")),
		mcpmcp.WithBoolean("unassigned_only", mcpmcp.Description("Only place tasks nobody holds yet")),
		mcpmcp.WithBoolean("include_completed", mcpmcp.Description("Also redistribute completed tasks")),
	), distributeTasksHandler(reg, distSvc, defaults))

	s.AddTool(mcpmcp.NewTool("list_tasks",
		mcpmcp.WithDescription("Lists an assignment's tasks in display order."),
		mcpmcp.WithString("assignment_id", mcpmcp.Required(), mcpmcp.Description("Assignment UUID")),
		mcpmcp.WithString("status", mcpmcp.Description("Optional filter: pending, in_progress or completed")),
	), listTasksHandler(taskSvc))
}

// ── Tool handlers ─────────────────────────────────────────────────────────

func getWorkloadStatsHandler(reg *SessionRegistry, svc *distribution.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		user, ok := auth.FromContext(ctx)
		if !ok {
			return mcpmcp.NewToolResultText("error: authentication required"), nil
		}
		groupID, assignmentID, errText := parseIDs(req)
		if errText != "" {
			return mcpmcp.NewToolResultText(errText), nil
		}

		st, err := svc.Stats(ctx, groupID, assignmentID, user.ID)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}
		watch(ctx, reg, user, assignmentID)
		return jsonResult(st)
	}
}

func distributeTasksHandler(reg *SessionRegistry, svc *distribution.Service, defaults distribution.EligibilityPolicy) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		user, ok := auth.FromContext(ctx)
		if !ok {
			return mcpmcp.NewToolResultText("error: authentication required"), nil
		}
		groupID, assignmentID, errText := parseIDs(req)
		if errText != "" {
			return mcpmcp.NewToolResultText(errText), nil
		}

		res, err := svc.Distribute(ctx, distribution.Request{
			GroupID:      groupID,
			AssignmentID: assignmentID,
			Actor:        user.ID,
			Policy: distribution.EligibilityPolicy{
				UnassignedOnly:   mcpmcp.ParseBoolean(req, "unassigned_only", defaults.UnassignedOnly),
				IncludeCompleted: mcpmcp.ParseBoolean(req, "include_completed", defaults.IncludeCompleted),
			},
		})
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}
		watch(ctx, reg, user, assignmentID)

		errs := res.Errors
		if errs == nil {
			errs = []distribution.TaskError{}
		}
		return jsonResult(map[string]any{
			"distributed":           res.Distributed,
			"errors":                errs,
			"workload_distribution": res.Workload,
		})
	}
}

func listTasksHandler(svc *tasksvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		user, ok := auth.FromContext(ctx)
		if !ok {
			return mcpmcp.NewToolResultText("error: authentication required"), nil
		}
		assignmentID, err := uuid.Parse(mcpmcp.ParseString(req, "assignment_id", ""))
		if err != nil {
			return mcpmcp.NewToolResultText("error: invalid assignment_id"), nil
		}
		filters := domaintask.ListFilters{AssignmentID: &assignmentID}
		if v := mcpmcp.ParseString(req, "status", ""); v != "" {
			s := domaintask.Status(v)
			if !s.Valid() {
				return mcpmcp.NewToolResultText("error: invalid status"), nil
			}
			filters.Status = &s
		}

		tasks, err := svc.List(ctx, filters, user.ID)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}
		if tasks == nil {
			tasks = []domaintask.Task{}
		}
		return jsonResult(tasks)
	}
}

// ── helpers ──────────────────────────────────────────────────────────────

func parseIDs(req mcpmcp.CallToolRequest) (uuid.UUID, uuid.UUID, string) {
	groupID, err := uuid.Parse(mcpmcp.ParseString(req, "group_id", ""))
	if err != nil {
		return uuid.Nil, uuid.Nil, "error: invalid group_id"
	}
	assignmentID, err := uuid.Parse(mcpmcp.ParseString(req, "assignment_id", ""))
	if err != nil {
		return uuid.Nil, uuid.Nil, "error: invalid assignment_id"
	}
	return groupID, assignmentID, ""
}

func watch(ctx context.Context, reg *SessionRegistry, user auth.User, assignmentID uuid.UUID) {
	if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
		reg.Watch(session.SessionID(), user.ID, assignmentID)
	}
}

func jsonResult(v any) (*mcpmcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcpmcp.NewToolResultText(string(data)), nil
}
