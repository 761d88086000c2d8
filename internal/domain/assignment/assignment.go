package assignment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("assignment not found")

// Assignment is a unit of group work (a project, a report) that owns a set of tasks.
type Assignment struct {
	ID          uuid.UUID  `json:"id"`
	GroupID     uuid.UUID  `json:"group_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

func New(groupID uuid.UUID, title, description string, dueDate *time.Time, createdBy uuid.UUID) Assignment {
	return Assignment{
		ID:          uuid.New(),
		GroupID:     groupID,
		Title:       title,
		Description: description,
		DueDate:     dueDate,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	}
}
