package group

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/assignment"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/event"
	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	portassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/assignment"
	portbus "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/eventbus"
	portgroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/group"
)

var ErrInvalidInput = errors.New("invalid input")

// StatsInvalidator drops cached workload stats after a roster change.
type StatsInvalidator interface {
	InvalidateStats(ctx context.Context, assignmentID uuid.UUID)
}

// Detail is a group with its roster and assignments.
type Detail struct {
	domaingroup.Group
	Members     domaingroup.Members           `json:"members"`
	Assignments []domainassignment.Assignment `json:"assignments"`
}

type Service struct {
	repo        portgroup.Repository
	assignments portassignment.Repository
	bus         portbus.EventBus
	stats       StatsInvalidator
}

func NewService(repo portgroup.Repository, assignments portassignment.Repository, bus portbus.EventBus, stats StatsInvalidator) *Service {
	return &Service{repo: repo, assignments: assignments, bus: bus, stats: stats}
}

// Create makes a group with the creator as its leader.
func (s *Service) Create(ctx context.Context, name, description string, creator uuid.UUID, creatorName string) (Detail, error) {
	if name == "" {
		return Detail{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	created, err := s.repo.Create(ctx, domaingroup.New(name, description, creator))
	if err != nil {
		return Detail{}, fmt.Errorf("create group: %w", err)
	}

	leader := domaingroup.Member{
		GroupID:  created.ID,
		UserID:   creator,
		Name:     creatorName,
		Role:     domaingroup.RoleLeader,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.repo.AddMember(ctx, leader); err != nil {
		return Detail{}, fmt.Errorf("add group leader: %w", err)
	}
	return Detail{Group: created, Members: domaingroup.Members{leader}, Assignments: []domainassignment.Assignment{}}, nil
}

// Get returns a group with its roster and assignments. Only members may view
// it; a nil actor skips the check.
func (s *Service) Get(ctx context.Context, id, actor uuid.UUID) (Detail, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Detail{}, fmt.Errorf("get group: %w", err)
	}
	members, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return Detail{}, fmt.Errorf("list group members: %w", err)
	}
	if actor != uuid.Nil && !members.IsMember(actor) {
		return Detail{}, fmt.Errorf("only group members can view the group: %w", domaingroup.ErrForbidden)
	}
	assignments, err := s.assignments.ListByGroup(ctx, id)
	if err != nil {
		return Detail{}, fmt.Errorf("list group assignments: %w", err)
	}
	if members == nil {
		members = domaingroup.Members{}
	}
	if assignments == nil {
		assignments = []domainassignment.Assignment{}
	}
	return Detail{Group: g, Members: members, Assignments: assignments}, nil
}

// AddMember adds or re-roles a member. Leader only.
func (s *Service) AddMember(ctx context.Context, groupID, userID uuid.UUID, name string, role domaingroup.Role, actor uuid.UUID) (domaingroup.Member, error) {
	if role == "" {
		role = domaingroup.RoleMember
	}
	if !role.Valid() {
		return domaingroup.Member{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if err := s.requireLeader(ctx, groupID, actor); err != nil {
		return domaingroup.Member{}, err
	}

	m := domaingroup.Member{GroupID: groupID, UserID: userID, Name: name, Role: role, JoinedAt: time.Now().UTC()}
	if err := s.repo.AddMember(ctx, m); err != nil {
		return domaingroup.Member{}, fmt.Errorf("add member: %w", err)
	}
	if err := s.bus.Publish(ctx, event.New(event.TypeMemberJoined, userID, uuid.Nil)); err != nil {
		slog.ErrorContext(ctx, "failed to publish MemberJoined event", "group_id", groupID, "user_id", userID, "error", err)
	}
	s.invalidateGroup(ctx, groupID)
	return m, nil
}

// RemoveMember drops a member from the roster. Their tasks are unassigned by
// the next stats request or repair sweep.
func (s *Service) RemoveMember(ctx context.Context, groupID, userID, actor uuid.UUID) error {
	if err := s.requireLeader(ctx, groupID, actor); err != nil {
		return err
	}
	if err := s.repo.RemoveMember(ctx, groupID, userID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	s.invalidateGroup(ctx, groupID)
	return nil
}

// CreateAssignment adds an assignment to a group. Leader only.
func (s *Service) CreateAssignment(ctx context.Context, groupID uuid.UUID, title, description string, dueDate *time.Time, actor uuid.UUID) (domainassignment.Assignment, error) {
	if title == "" {
		return domainassignment.Assignment{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if _, err := s.repo.GetByID(ctx, groupID); err != nil {
		return domainassignment.Assignment{}, fmt.Errorf("get group: %w", err)
	}
	if err := s.requireLeader(ctx, groupID, actor); err != nil {
		return domainassignment.Assignment{}, err
	}

	created, err := s.assignments.Create(ctx, domainassignment.New(groupID, title, description, dueDate, actor))
	if err != nil {
		return domainassignment.Assignment{}, fmt.Errorf("create assignment: %w", err)
	}
	return created, nil
}

func (s *Service) requireLeader(ctx context.Context, groupID, actor uuid.UUID) error {
	if actor == uuid.Nil {
		return nil
	}
	members, err := s.repo.ListMembers(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list group members: %w", err)
	}
	if !members.IsLeader(actor) {
		return fmt.Errorf("only the group leader can manage the group: %w", domaingroup.ErrForbidden)
	}
	return nil
}

func (s *Service) invalidateGroup(ctx context.Context, groupID uuid.UUID) {
	assignments, err := s.assignments.ListByGroup(ctx, groupID)
	if err != nil {
		slog.WarnContext(ctx, "failed to list assignments for stats invalidation", "group_id", groupID, "error", err)
		return
	}
	for _, a := range assignments {
		s.stats.InvalidateStats(ctx, a.ID)
	}
}
