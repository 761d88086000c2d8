package task

import (
	"context"

	"github.com/google/uuid"

	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
)

type Repository interface {
	Create(ctx context.Context, t domaintask.Task) (domaintask.Task, error)
	GetByID(ctx context.Context, id uuid.UUID) (domaintask.Task, error)
	// List returns non-deleted tasks ordered by order_index, created_at, id.
	List(ctx context.Context, filters domaintask.ListFilters) ([]domaintask.Task, error)

	// UpdateStatus performs an atomic CAS: only transitions if current status matches `from`.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domaintask.Status) error

	Assign(ctx context.Context, taskID, userID uuid.UUID) error
	Unassign(ctx context.Context, taskID uuid.UUID) error
}
