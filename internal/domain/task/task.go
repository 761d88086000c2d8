package task

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("task not found")
	// ErrStatusConflict means the task was not in the expected status when a
	// compare-and-set transition ran.
	ErrStatusConflict = errors.New("task status changed concurrently")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

var validTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCompleted},
	StatusInProgress: {StatusPending, StatusCompleted},
	StatusCompleted:  {StatusInProgress},
}

func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

const (
	MinImportance = 1
	MaxImportance = 5

	// DefaultImportance stands in for a missing importance score, leaving the
	// weight equal to the effort hours.
	DefaultImportance = 1
)

type Task struct {
	ID             uuid.UUID  `json:"id"`
	AssignmentID   uuid.UUID  `json:"assignment_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	EffortHours    int        `json:"effort_hours"`
	Importance     *int       `json:"importance"`
	AssignedUserID *uuid.UUID `json:"assigned_user_id"`
	Priority       Priority   `json:"priority"`
	Status         Status     `json:"status"`
	OrderIndex     int        `json:"order_index"`
	CreatedBy      uuid.UUID  `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func New(assignmentID uuid.UUID, title, description string, effortHours int, importance *int, priority Priority, createdBy uuid.UUID) Task {
	now := time.Now().UTC()
	return Task{
		ID:           uuid.New(),
		AssignmentID: assignmentID,
		Title:        title,
		Description:  description,
		EffortHours:  effortHours,
		Importance:   importance,
		Priority:     priority,
		Status:       StatusPending,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ImportanceOrDefault returns the importance score, or DefaultImportance when unset.
func (t Task) ImportanceOrDefault() int {
	if t.Importance == nil {
		return DefaultImportance
	}
	return *t.Importance
}

// Weight is the balancing scalar: effort hours times importance.
func (t Task) Weight() int {
	return t.EffortHours * t.ImportanceOrDefault()
}

func (t Task) IsAssigned() bool {
	return t.AssignedUserID != nil
}

type ListFilters struct {
	AssignmentID *uuid.UUID
	Status       *Status
	AssignedTo   *uuid.UUID
	Unassigned   bool // WHERE assigned_user_id IS NULL
}
