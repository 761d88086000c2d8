package mcp

import (
	"context"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/auth"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/distribution"
	tasksvc "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/task"
)

// Server wraps the mark3labs/mcp-go MCPServer and its StreamableHTTPServer.
// Tools are registered in tools.go, session state lives in registry.go.
type Server struct {
	httpSrv *mcpserver.StreamableHTTPServer
	reg     *SessionRegistry
}

// New creates the MCP transport server. The caller identity is taken from the
// request context, so the handler must sit behind auth.Middleware.
func New(
	reg *SessionRegistry,
	distSvc *distribution.Service,
	taskSvc *tasksvc.Service,
	defaults distribution.EligibilityPolicy,
) *Server {
	s := &Server{reg: reg}

	hooks := &mcpserver.Hooks{}
	hooks.OnUnregisterSession = append(hooks.OnUnregisterSession, s.onSessionClose)

	mcpSrv := mcpserver.NewMCPServer(
		"workflow",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithHooks(hooks),
	)
	reg.SetMCPServer(mcpSrv)

	RegisterTools(mcpSrv, reg, distSvc, taskSvc, defaults)

	s.httpSrv = mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithHTTPContextFunc(carryUser),
	)
	return s
}

// Handler returns the streamable HTTP endpoint.
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}

func (s *Server) Registry() *SessionRegistry {
	return s.reg
}

func (s *Server) onSessionClose(ctx context.Context, session mcpserver.ClientSession) {
	userID, ok := s.reg.Unregister(session.SessionID())
	if !ok {
		return
	}
	slog.DebugContext(ctx, "mcp: session closed", "session_id", session.SessionID(), "user_id", userID)
}

// carryUser copies the authenticated caller from the HTTP request onto the
// context tool handlers run with.
func carryUser(ctx context.Context, r *http.Request) context.Context {
	if u, ok := auth.FromContext(r.Context()); ok {
		return auth.WithUser(ctx, u)
	}
	return ctx
}
