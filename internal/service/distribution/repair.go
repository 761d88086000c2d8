package distribution

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/event"
	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
)

// repair unassigns tasks whose assignee is not in members and returns the
// tasks as they stand afterwards. A task that fails to unassign keeps its
// assignee and is retried on the next call.
func (s *Service) repair(ctx context.Context, assignmentID uuid.UUID, tasks []domaintask.Task, members domaingroup.Members) ([]domaintask.Task, int) {
	roster := members.IDSet()
	out := make([]domaintask.Task, len(tasks))
	fixed := 0
	for i, t := range tasks {
		out[i] = t
		if t.AssignedUserID == nil {
			continue
		}
		if _, ok := roster[*t.AssignedUserID]; ok {
			continue
		}
		if err := s.tasks.Unassign(ctx, t.ID); err != nil {
			slog.ErrorContext(ctx, "repair: failed to unassign task",
				"assignment_id", assignmentID, "task_id", t.ID, "user_id", *t.AssignedUserID, "error", err)
			continue
		}
		out[i].AssignedUserID = nil
		fixed++
		s.bus.Publish(ctx, event.New(event.TypeTaskUpdated, t.ID, assignmentID)) //nolint:errcheck
	}

	if fixed > 0 {
		s.invalidateStats(ctx, assignmentID)
		s.bus.Publish(ctx, event.New(event.TypeAssignmentsRepaired, assignmentID, assignmentID)) //nolint:errcheck
		slog.InfoContext(ctx, "repaired invalid task assignments", "assignment_id", assignmentID, "fixed", fixed)
	}
	return out, fixed
}

// RepairAssignment unassigns tasks of one assignment held by non-members. It
// shares the distribution lock so it never races a run for the same assignment.
func (s *Service) RepairAssignment(ctx context.Context, groupID, assignmentID uuid.UUID) (int, error) {
	var fixed int
	err := s.locker.WithLock(ctx, lockKey(assignmentID), func(ctx context.Context) error {
		loaded, err := s.load(ctx, groupID, assignmentID)
		if err != nil {
			return err
		}
		_, fixed = s.repair(ctx, assignmentID, loaded.Tasks, loaded.Members)
		return nil
	})
	return fixed, err
}

// RepairAll sweeps every assignment. A failing assignment is logged and
// skipped; the total of fixed tasks is returned.
func (s *Service) RepairAll(ctx context.Context) (int, error) {
	assignments, err := s.assignments.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list assignments: %w", err)
	}

	total := 0
	for _, a := range assignments {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		fixed, err := s.RepairAssignment(ctx, a.GroupID, a.ID)
		if err != nil {
			slog.ErrorContext(ctx, "repair: assignment sweep failed", "assignment_id", a.ID, "error", err)
			continue
		}
		total += fixed
	}
	return total, nil
}
