package distribution

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	domainassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/assignment"
	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/workload"
)

// EligibilityPolicy decides which tasks of an assignment take part in a run.
type EligibilityPolicy struct {
	// UnassignedOnly keeps existing assignments and only places tasks nobody holds.
	UnassignedOnly bool `json:"unassigned_only"`
	// IncludeCompleted lets finished tasks be redistributed too.
	IncludeCompleted bool `json:"include_completed"`
}

func (p EligibilityPolicy) Eligible(t domaintask.Task) bool {
	if p.UnassignedOnly && t.IsAssigned() {
		return false
	}
	if !p.IncludeCompleted && t.Status == domaintask.StatusCompleted {
		return false
	}
	return true
}

// Loaded is the input of one distribution run.
type Loaded struct {
	Assignment domainassignment.Assignment
	Members    domaingroup.Members
	// Tasks holds every task of the assignment; Eligible is the subset to distribute,
	// in the same order.
	Tasks    []domaintask.Task
	Eligible []domaintask.Task
}

// Load fetches the assignment's tasks and the owning group's roster. It fails with
// ErrNotFound when the assignment does not exist under groupID and with
// workload.ErrNoMembers when the group is empty.
func (s *Service) Load(ctx context.Context, groupID, assignmentID uuid.UUID, policy EligibilityPolicy) (Loaded, error) {
	loaded, err := s.load(ctx, groupID, assignmentID)
	if err != nil {
		return Loaded{}, err
	}
	if len(loaded.Members) == 0 {
		return Loaded{}, fmt.Errorf("group %s: %w", groupID, workload.ErrNoMembers)
	}

	loaded.Eligible = make([]domaintask.Task, 0, len(loaded.Tasks))
	for _, t := range loaded.Tasks {
		if policy.Eligible(t) {
			loaded.Eligible = append(loaded.Eligible, t)
		}
	}
	return loaded, nil
}

func (s *Service) load(ctx context.Context, groupID, assignmentID uuid.UUID) (Loaded, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return Loaded{}, fmt.Errorf("get assignment: %w", err)
	}
	if a.GroupID != groupID {
		return Loaded{}, fmt.Errorf("assignment %s in group %s: %w", assignmentID, groupID, domainassignment.ErrNotFound)
	}

	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return Loaded{}, fmt.Errorf("list group members: %w", err)
	}

	tasks, err := s.tasks.List(ctx, domaintask.ListFilters{AssignmentID: &assignmentID})
	if err != nil {
		return Loaded{}, fmt.Errorf("list assignment tasks: %w", err)
	}

	return Loaded{Assignment: a, Members: members, Tasks: tasks}, nil
}
