package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/event"
	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	portassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/assignment"
	portbus "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/eventbus"
	portgroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/group"
	porttask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/task"
)

var (
	ErrInvalidTask       = errors.New("invalid task")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// StatsInvalidator drops cached workload stats after a task changes.
type StatsInvalidator interface {
	InvalidateStats(ctx context.Context, assignmentID uuid.UUID)
}

// Service manages task lifecycle and manual (re)assignment.
// [DIP] Depends on ports, never on adapters or transport.
type Service struct {
	repo        porttask.Repository
	assignments portassignment.Repository
	groups      portgroup.Repository
	bus         portbus.EventBus
	stats       StatsInvalidator
}

func NewService(
	repo porttask.Repository,
	assignments portassignment.Repository,
	groups portgroup.Repository,
	bus portbus.EventBus,
	stats StatsInvalidator,
) *Service {
	return &Service{
		repo:        repo,
		assignments: assignments,
		groups:      groups,
		bus:         bus,
		stats:       stats,
	}
}

type CreateInput struct {
	Title       string
	Description string
	EffortHours int
	Importance  *int
	Priority    domaintask.Priority
}

func (in CreateInput) validate() error {
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if in.EffortHours <= 0 {
		return fmt.Errorf("%w: effort_hours must be positive, got %d", ErrInvalidTask, in.EffortHours)
	}
	if in.Importance != nil && (*in.Importance < domaintask.MinImportance || *in.Importance > domaintask.MaxImportance) {
		return fmt.Errorf("%w: importance must be between %d and %d", ErrInvalidTask, domaintask.MinImportance, domaintask.MaxImportance)
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, in.Priority)
	}
	return nil
}

// Create adds a task to an assignment. Only members of the owning group may
// create tasks; a nil createdBy skips that check.
func (s *Service) Create(ctx context.Context, assignmentID uuid.UUID, in CreateInput, createdBy uuid.UUID) (domaintask.Task, error) {
	if err := in.validate(); err != nil {
		return domaintask.Task{}, err
	}
	if in.Priority == "" {
		in.Priority = domaintask.PriorityMedium
	}

	if _, err := s.membership(ctx, assignmentID, createdBy); err != nil {
		return domaintask.Task{}, err
	}

	t := domaintask.New(assignmentID, in.Title, in.Description, in.EffortHours, in.Importance, in.Priority, createdBy)
	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return domaintask.Task{}, fmt.Errorf("create task: %w", err)
	}

	if err := s.bus.Publish(ctx, event.New(event.TypeTaskCreated, created.ID, assignmentID)); err != nil {
		slog.ErrorContext(ctx, "failed to publish TaskCreated event", "task_id", created.ID, "error", err)
	}
	s.stats.InvalidateStats(ctx, assignmentID)

	return created, nil
}

// Authorize checks that actor belongs to the group owning the assignment. A
// nil actor is the system caller and always passes.
func (s *Service) Authorize(ctx context.Context, assignmentID, actor uuid.UUID) error {
	_, err := s.membership(ctx, assignmentID, actor)
	return err
}

// membership loads the assignment's roster and requires actor to be on it
// (nil actor skips the roster check but still requires the assignment).
func (s *Service) membership(ctx context.Context, assignmentID, actor uuid.UUID) (domaingroup.Members, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	if actor == uuid.Nil {
		return nil, nil
	}
	members, err := s.groups.ListMembers(ctx, a.GroupID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	if !members.IsMember(actor) {
		return nil, fmt.Errorf("only group members can access the assignment's tasks: %w", domaingroup.ErrForbidden)
	}
	return members, nil
}

// GetByID returns a task visible to actor.
func (s *Service) GetByID(ctx context.Context, id, actor uuid.UUID) (domaintask.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domaintask.Task{}, fmt.Errorf("get task: %w", err)
	}
	if actor != uuid.Nil {
		if err := s.Authorize(ctx, t.AssignmentID, actor); err != nil {
			return domaintask.Task{}, err
		}
	}
	return t, nil
}

// List returns tasks matching filters. Non-system callers must scope the
// query to one assignment of a group they belong to.
func (s *Service) List(ctx context.Context, filters domaintask.ListFilters, actor uuid.UUID) ([]domaintask.Task, error) {
	if actor != uuid.Nil {
		if filters.AssignmentID == nil {
			return nil, fmt.Errorf("%w: assignment is required", ErrInvalidTask)
		}
		if err := s.Authorize(ctx, *filters.AssignmentID, actor); err != nil {
			return nil, err
		}
	}
	tasks, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateStatus performs a CAS status transition on behalf of a group member.
// A lost race surfaces as domaintask.ErrStatusConflict.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domaintask.Status, actor uuid.UUID) (domaintask.Task, error) {
	if !from.CanTransitionTo(to) {
		return domaintask.Task{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	if actor != uuid.Nil {
		if _, err := s.GetByID(ctx, id, actor); err != nil {
			return domaintask.Task{}, err
		}
	}

	if err := s.repo.UpdateStatus(ctx, id, from, to); err != nil {
		return domaintask.Task{}, fmt.Errorf("update task status: %w", err)
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domaintask.Task{}, fmt.Errorf("fetch task after status update: %w", err)
	}
	s.bus.Publish(ctx, event.New(event.TypeTaskUpdated, id, t.AssignmentID)) //nolint:errcheck
	s.stats.InvalidateStats(ctx, t.AssignmentID)
	return t, nil
}

// Reassign sets or clears a task's assignee by hand. Only the group leader may
// do it (nil actor skips the check) and the new assignee must be a member.
func (s *Service) Reassign(ctx context.Context, id uuid.UUID, userID *uuid.UUID, actor uuid.UUID) (domaintask.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domaintask.Task{}, fmt.Errorf("get task: %w", err)
	}
	a, err := s.assignments.GetByID(ctx, t.AssignmentID)
	if err != nil {
		return domaintask.Task{}, fmt.Errorf("get assignment: %w", err)
	}
	members, err := s.groups.ListMembers(ctx, a.GroupID)
	if err != nil {
		return domaintask.Task{}, fmt.Errorf("list group members: %w", err)
	}
	if actor != uuid.Nil && !members.IsLeader(actor) {
		return domaintask.Task{}, fmt.Errorf("only the group leader can reassign tasks: %w", domaingroup.ErrForbidden)
	}

	if userID == nil {
		if err := s.repo.Unassign(ctx, id); err != nil {
			return domaintask.Task{}, fmt.Errorf("unassign task: %w", err)
		}
		s.bus.Publish(ctx, event.New(event.TypeTaskUpdated, id, t.AssignmentID)) //nolint:errcheck
	} else {
		if !members.IsMember(*userID) {
			return domaintask.Task{}, fmt.Errorf("assign task to %s: %w", *userID, domaingroup.ErrNotMember)
		}
		if err := s.repo.Assign(ctx, id, *userID); err != nil {
			return domaintask.Task{}, fmt.Errorf("assign task: %w", err)
		}
		s.bus.Publish(ctx, event.New(event.TypeTaskAssigned, id, t.AssignmentID)) //nolint:errcheck
	}
	s.stats.InvalidateStats(ctx, t.AssignmentID)

	t.AssignedUserID = userID
	return t, nil
}
