package assignment

import (
	"context"

	"github.com/google/uuid"

	domainassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/assignment"
)

type Repository interface {
	Create(ctx context.Context, a domainassignment.Assignment) (domainassignment.Assignment, error)
	GetByID(ctx context.Context, id uuid.UUID) (domainassignment.Assignment, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domainassignment.Assignment, error)
	// List returns every assignment, oldest first. Used by the repair sweep.
	List(ctx context.Context) ([]domainassignment.Assignment, error)
}
