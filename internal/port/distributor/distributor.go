package distributor

import (
	"context"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/workload"
)

// Distributor plans which member takes which task.
// [SRP] Only plans. Persisting and reporting happen elsewhere.
type Distributor interface {
	Distribute(ctx context.Context, tasks []task.Task, members group.Members) (workload.Plan, error)
}
