package distributor

import (
	"context"
	"fmt"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/workload"
	portdist "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/distributor"
)

var _ portdist.Distributor = (*Service)(nil)

// Service plans distributions with the deterministic greedy heuristic.
// [SRP] Only plans; the distribution service persists and reports.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Distribute hands each task to the currently least-loaded member, heaviest task first.
func (s *Service) Distribute(ctx context.Context, tasks []task.Task, members group.Members) (workload.Plan, error) {
	if err := ctx.Err(); err != nil {
		return workload.Plan{}, err
	}
	plan, err := workload.Distribute(tasks, members)
	if err != nil {
		return workload.Plan{}, fmt.Errorf("greedy distribution over %d members: %w", len(members), err)
	}
	return plan, nil
}
