package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// sessionEntry tracks who is behind a session and which assignments it looked at.
type sessionEntry struct {
	userID   uuid.UUID
	watching map[uuid.UUID]struct{}
}

// SessionRegistry is the in-memory registry of active MCP sessions. A session
// starts watching an assignment when one of its tools touches it and then
// receives that assignment's events as notifications.
type SessionRegistry struct {
	mu         sync.RWMutex
	bySessions map[string]*sessionEntry // sessionID → entry

	// mcpSrv is set after the MCP server is constructed.
	mcpMu  sync.RWMutex
	mcpSrv *mcpserver.MCPServer
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		bySessions: make(map[string]*sessionEntry),
	}
}

func (r *SessionRegistry) SetMCPServer(s *mcpserver.MCPServer) {
	r.mcpMu.Lock()
	r.mcpSrv = s
	r.mcpMu.Unlock()
}

// Watch subscribes a session to an assignment's events.
func (r *SessionRegistry) Watch(sessionID string, userID, assignmentID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.bySessions[sessionID]
	if !ok {
		entry = &sessionEntry{userID: userID, watching: make(map[uuid.UUID]struct{})}
		r.bySessions[sessionID] = entry
	}
	entry.userID = userID
	entry.watching[assignmentID] = struct{}{}
}

// Unregister removes a session when it closes. Returns the user it belonged to.
func (r *SessionRegistry) Unregister(sessionID string) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.bySessions[sessionID]
	if !ok {
		return uuid.Nil, false
	}
	delete(r.bySessions, sessionID)
	return entry.userID, true
}

// Watchers returns the sessions watching an assignment.
func (r *SessionRegistry) Watchers(assignmentID uuid.UUID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for sessionID, entry := range r.bySessions {
		if _, ok := entry.watching[assignmentID]; ok {
			out = append(out, sessionID)
		}
	}
	return out
}

// NotifyAssignment sends event to every session watching the assignment.
// Sessions that cannot be reached are skipped; the last error is returned.
func (r *SessionRegistry) NotifyAssignment(_ context.Context, assignmentID uuid.UUID, event any) error {
	targets := r.Watchers(assignmentID)
	if len(targets) == 0 {
		return nil
	}

	r.mcpMu.RLock()
	srv := r.mcpSrv
	r.mcpMu.RUnlock()
	if srv == nil {
		return fmt.Errorf("mcp server not initialized")
	}

	params, err := toParams(event)
	if err != nil {
		return fmt.Errorf("serialize notification: %w", err)
	}

	var lastErr error
	for _, sessionID := range targets {
		if err := srv.SendNotificationToSpecificClient(sessionID, "notifications/message", params); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func toParams(event any) (map[string]any, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return map[string]any{"data": event}, nil
	}
	return params, nil
}
