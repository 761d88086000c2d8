package group

import (
	"context"

	"github.com/google/uuid"

	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
)

// Repository manages groups and their rosters.
type Repository interface {
	Create(ctx context.Context, g domaingroup.Group) (domaingroup.Group, error)
	GetByID(ctx context.Context, id uuid.UUID) (domaingroup.Group, error)

	// AddMember upserts a membership row; re-adding an existing member updates its role.
	AddMember(ctx context.Context, member domaingroup.Member) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error

	// ListMembers returns the roster ordered by user ID ascending.
	ListMembers(ctx context.Context, groupID uuid.UUID) (domaingroup.Members, error)
}
