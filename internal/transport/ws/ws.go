package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/auth"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/event"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/transport/httperr"
)

// Authorizer decides whether actor may follow an assignment's events.
type Authorizer interface {
	Authorize(ctx context.Context, assignmentID, actor uuid.UUID) error
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one browser connection subscribed to a single assignment.
type client struct {
	conn         *websocket.Conn
	assignmentID uuid.UUID
	writeMu      sync.Mutex
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type Hub struct {
	authz   Authorizer
	clients map[*client]bool
	mu      sync.RWMutex
}

func NewHub(authz Authorizer) *Hub {
	return &Hub{
		authz:   authz,
		clients: make(map[*client]bool),
	}
}

// Register mounts the upgrade endpoint. ?assignment_id= is required and the
// caller must belong to the assignment's group.
func (h *Hub) Register(rg *gin.RouterGroup) {
	rg.GET("", h.handleWS)
}

func (h *Hub) handleWS(c *gin.Context) {
	filter, err := uuid.Parse(c.Query("assignment_id"))
	if err != nil {
		httperr.BadRequest(c, "invalid assignment_id")
		return
	}
	user, ok := auth.RequireUser(c)
	if !ok {
		return
	}
	if err := h.authz.Authorize(c.Request.Context(), filter, user.ID); err != nil {
		httperr.Abort(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	cl := &client{conn: conn, assignmentID: filter}

	h.mu.Lock()
	h.clients[cl] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, cl)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) Broadcast(e event.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("websocket broadcast marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for cl := range h.clients {
		if cl.assignmentID != e.AssignmentID {
			continue
		}
		if err := cl.write(data); err != nil {
			slog.Error("websocket write failed", "error", err)
		}
	}
}

// Clients reports the number of open connections.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
