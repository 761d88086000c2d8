package distribution

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/event"
	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/workload"
	portassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/assignment"
	portcache "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/cache"
	portdist "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/distributor"
	portbus "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/eventbus"
	portgroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/group"
	portlocker "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/locker"
	porttask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/task"
)

var (
	// ErrForbidden means the caller is not allowed to act on the group.
	ErrForbidden = domaingroup.ErrForbidden
	// ErrInvalidPlan means the distributor produced a plan that does not cover the
	// eligible tasks exactly once with group members. Nothing is written.
	ErrInvalidPlan = errors.New("invalid distribution plan")
)

// TaskError records one task whose assignment could not be saved.
type TaskError struct {
	TaskID  uuid.UUID `json:"task_id"`
	Message string    `json:"message"`
}

// Request describes one distribution run. A nil Actor runs without an
// authorization check (system callers such as the repair job).
type Request struct {
	GroupID      uuid.UUID
	AssignmentID uuid.UUID
	Actor        uuid.UUID
	Policy       EligibilityPolicy
}

// Result is the outcome of a run. Errors lists per-task persistence failures;
// the run still succeeds when some tasks fail to save.
type Result struct {
	Plan        workload.Plan
	Tasks       []domaintask.Task
	Members     domaingroup.Members
	Workload    []workload.Record
	Distributed int
	Errors      []TaskError
}

// Service loads, plans, persists and reports task distributions.
// [DIP] Depends on ports, never on adapters or transport.
type Service struct {
	assignments portassignment.Repository
	groups      portgroup.Repository
	tasks       porttask.Repository
	dist        portdist.Distributor
	bus         portbus.EventBus
	locker      portlocker.AdvisoryLocker
	cache       portcache.Cache
	statsTTL    time.Duration
}

func NewService(
	assignments portassignment.Repository,
	groups portgroup.Repository,
	tasks porttask.Repository,
	dist portdist.Distributor,
	bus portbus.EventBus,
	locker portlocker.AdvisoryLocker,
	cache portcache.Cache,
	statsTTL time.Duration,
) *Service {
	return &Service{
		assignments: assignments,
		groups:      groups,
		tasks:       tasks,
		dist:        dist,
		bus:         bus,
		locker:      locker,
		cache:       cache,
		statsTTL:    statsTTL,
	}
}

// Distribute runs one distribution under the assignment's advisory lock, so two
// runs for the same assignment never interleave their writes.
//
// Preconditions (assignment, roster, caller role) and planning are all-or-nothing:
// any failure there returns before a single task is touched. Persistence is best
// effort: a task that fails to save is recorded in Result.Errors and the rest
// continue.
func (s *Service) Distribute(ctx context.Context, req Request) (Result, error) {
	var result Result
	err := s.locker.WithLock(ctx, lockKey(req.AssignmentID), func(ctx context.Context) error {
		var err error
		result, err = s.distribute(ctx, req)
		return err
	})
	return result, err
}

func (s *Service) distribute(ctx context.Context, req Request) (Result, error) {
	loaded, err := s.Load(ctx, req.GroupID, req.AssignmentID, req.Policy)
	if err != nil {
		return Result{}, err
	}
	if req.Actor != uuid.Nil && !loaded.Members.IsLeader(req.Actor) {
		return Result{}, fmt.Errorf("only the group leader can distribute tasks: %w", ErrForbidden)
	}

	plan, err := s.dist.Distribute(ctx, loaded.Eligible, loaded.Members)
	if err != nil {
		return Result{}, fmt.Errorf("plan distribution: %w", err)
	}
	if err := plan.Validate(loaded.Eligible, loaded.Members); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}

	result := Result{Plan: plan, Members: loaded.Members}
	saved := make(map[uuid.UUID]uuid.UUID, len(plan.Allocations))
	for _, a := range plan.Allocations {
		if err := s.tasks.Assign(ctx, a.TaskID, a.MemberID); err != nil {
			slog.ErrorContext(ctx, "distribution: failed to save task assignment",
				"assignment_id", req.AssignmentID, "task_id", a.TaskID, "user_id", a.MemberID, "error", err)
			result.Errors = append(result.Errors, TaskError{TaskID: a.TaskID, Message: err.Error()})
			continue
		}
		saved[a.TaskID] = a.MemberID
		result.Distributed++
		s.bus.Publish(ctx, event.New(event.TypeTaskAssigned, a.TaskID, req.AssignmentID)) //nolint:errcheck
	}

	s.invalidateStats(ctx, req.AssignmentID)
	if err := s.bus.Publish(ctx, event.New(event.TypeTasksDistributed, req.AssignmentID, req.AssignmentID)); err != nil {
		slog.ErrorContext(ctx, "failed to publish TasksDistributed event", "assignment_id", req.AssignmentID, "error", err)
	}

	result.Tasks = make([]domaintask.Task, len(loaded.Tasks))
	for i, t := range loaded.Tasks {
		if userID, ok := saved[t.ID]; ok {
			t.AssignedUserID = &userID
		}
		result.Tasks[i] = t
	}
	result.Workload = workload.Report(result.Tasks, loaded.Members)

	slog.InfoContext(ctx, "tasks distributed",
		"assignment_id", req.AssignmentID,
		"eligible", len(loaded.Eligible),
		"distributed", result.Distributed,
		"errors", len(result.Errors),
		"spread", plan.Spread(),
	)
	return result, nil
}

// lockKey hashes an assignment ID to a stable int64 advisory-lock key.
func lockKey(assignmentID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("distribute:"))
	h.Write(assignmentID[:])
	return int64(h.Sum64())
}
