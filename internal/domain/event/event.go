package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeTaskCreated         Type = "task_created"
	TypeTaskUpdated         Type = "task_updated"
	TypeTaskAssigned        Type = "task_assigned"
	TypeTasksDistributed    Type = "tasks_distributed"
	TypeAssignmentsRepaired Type = "assignments_repaired"
	TypeMemberJoined        Type = "member_joined"
)

// Channel is a domain-scoped notification channel.
// All event types within a domain share one LISTEN connection.
type Channel string

const (
	ChannelTask       Channel = "task"
	ChannelAssignment Channel = "assignment"
	ChannelGroup      Channel = "group"
)

var typeToChannel = map[Type]Channel{
	TypeTaskCreated:         ChannelTask,
	TypeTaskUpdated:         ChannelTask,
	TypeTaskAssigned:        ChannelTask,
	TypeTasksDistributed:    ChannelAssignment,
	TypeAssignmentsRepaired: ChannelAssignment,
	TypeMemberJoined:        ChannelGroup,
}

// Channels lists every domain channel, in a stable order.
var Channels = []Channel{ChannelTask, ChannelAssignment, ChannelGroup}

// ChannelFor returns the domain channel for a given event type.
func ChannelFor(t Type) Channel { return typeToChannel[t] }

// Event carries identifiers only, not full state.
// Subscribers fetch fresh state from the appropriate repository.
// AssignmentID scopes task and assignment events so browsers can filter.
type Event struct {
	Type         Type      `json:"type"`
	EntityID     uuid.UUID `json:"entity_id"`
	AssignmentID uuid.UUID `json:"assignment_id"`
	Timestamp    time.Time `json:"timestamp"`
}

func New(eventType Type, entityID, assignmentID uuid.UUID) Event {
	return Event{
		Type:         eventType,
		EntityID:     entityID,
		AssignmentID: assignmentID,
		Timestamp:    time.Now().UTC(),
	}
}
