package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/auth"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/event"
	porteventbus "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/eventbus"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/distribution"
	groupsvc "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/group"
	tasksvc "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/task"

	grouphandler "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/transport/group"
	mcptransport "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/transport/mcp"
	taskhandler "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/transport/task"
	workloadhandler "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/transport/workload"
	wshandler "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/transport/ws"
)

type Deps struct {
	Distribution *distribution.Service
	Tasks        *tasksvc.Service
	Groups       *groupsvc.Service
	EventBus     porteventbus.EventBus
	Tokens       *auth.Tokens
	MCP          *mcptransport.Server
	Defaults     distribution.EligibilityPolicy
	CORSOrigins  []string
}

func NewRouter(ctx context.Context, d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware(d.CORSOrigins))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	authed := auth.Middleware(d.Tokens)

	workloadhandler.Register(r.Group("/groups", authed), d.Distribution, d.Defaults)

	api := r.Group("/api", authed)
	grouphandler.Register(api.Group("/groups"), d.Groups)
	taskhandler.Register(api, d.Tasks)

	hub := wshandler.NewHub(d.Tasks)
	hub.Register(api.Group("/ws"))

	if d.MCP != nil {
		r.Any("/mcp", authed, gin.WrapH(d.MCP.Handler()))
	}

	// Bridge: one subscription per domain channel. Every event reaches the
	// websocket hub; assignment-scoped events also reach MCP sessions that
	// are watching that assignment.
	for _, ch := range event.Channels {
		c := ch
		if _, err := d.EventBus.Subscribe(ctx, c, func(ctx context.Context, e event.Event) {
			hub.Broadcast(e)
			if d.MCP != nil && e.AssignmentID != uuid.Nil {
				if err := d.MCP.Registry().NotifyAssignment(ctx, e.AssignmentID, e); err != nil {
					slog.WarnContext(ctx, "failed to notify mcp sessions", "assignment_id", e.AssignmentID, "error", err)
				}
			}
		}); err != nil {
			slog.Error("failed to subscribe channel to event bridge", "channel", c, "error", err)
		}
	}

	return r
}
