package workload

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
)

// ErrNoMembers is returned when there is nobody to hand work to. Nothing is
// allocated when it is returned.
var ErrNoMembers = errors.New("no group members to distribute tasks to")

// Allocation pairs a task with the member chosen to do it.
type Allocation struct {
	TaskID   uuid.UUID `json:"task_id"`
	MemberID uuid.UUID `json:"assigned_user_id"`
	Weight   int       `json:"weight"`
}

// Plan is the outcome of a distribution run. Allocations are in processing
// order (heaviest first); Loads holds the accumulated weight per member,
// including members that received nothing.
type Plan struct {
	Allocations []Allocation
	Loads       map[uuid.UUID]int
}

// AssigneeOf returns the member allocated to taskID.
func (p Plan) AssigneeOf(taskID uuid.UUID) (uuid.UUID, bool) {
	for _, a := range p.Allocations {
		if a.TaskID == taskID {
			return a.MemberID, true
		}
	}
	return uuid.Nil, false
}

// Spread is the gap between the most and least loaded member.
func (p Plan) Spread() int {
	if len(p.Loads) == 0 {
		return 0
	}
	first := true
	var lo, hi int
	for _, load := range p.Loads {
		if first {
			lo, hi, first = load, load, false
			continue
		}
		lo = min(lo, load)
		hi = max(hi, load)
	}
	return hi - lo
}

// Distribute assigns every task to exactly one member using the greedy
// heaviest-first heuristic: tasks are taken by descending weight (input order
// breaks ties) and each goes to the member with the lowest accumulated weight
// (lowest member ID breaks ties). The result depends only on its inputs.
func Distribute(tasks []task.Task, members group.Members) (Plan, error) {
	ids := sortedMemberIDs(members)
	if len(ids) == 0 {
		return Plan{}, ErrNoMembers
	}

	ordered := make([]task.Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Weight() > ordered[j].Weight()
	})

	loads := make(map[uuid.UUID]int, len(ids))
	for _, id := range ids {
		loads[id] = 0
	}

	allocations := make([]Allocation, 0, len(ordered))
	for _, t := range ordered {
		target := ids[0]
		for _, id := range ids[1:] {
			if loads[id] < loads[target] {
				target = id
			}
		}
		w := t.Weight()
		loads[target] += w
		allocations = append(allocations, Allocation{TaskID: t.ID, MemberID: target, Weight: w})
	}

	return Plan{Allocations: allocations, Loads: loads}, nil
}

// Validate checks that the plan allocates every task exactly once and only to
// members of the roster. Plans produced outside Distribute must pass it before
// anything is written.
func (p Plan) Validate(tasks []task.Task, members group.Members) error {
	if len(members) == 0 {
		return ErrNoMembers
	}
	roster := members.IDSet()
	wanted := make(map[uuid.UUID]bool, len(tasks))
	for _, t := range tasks {
		wanted[t.ID] = false
	}

	for _, a := range p.Allocations {
		seen, ok := wanted[a.TaskID]
		if !ok {
			return fmt.Errorf("plan allocates unknown task %s", a.TaskID)
		}
		if seen {
			return fmt.Errorf("plan allocates task %s more than once", a.TaskID)
		}
		if _, ok := roster[a.MemberID]; !ok {
			return fmt.Errorf("plan allocates task %s to non-member %s", a.TaskID, a.MemberID)
		}
		wanted[a.TaskID] = true
	}
	for id, seen := range wanted {
		if !seen {
			return fmt.Errorf("plan leaves task %s unallocated", id)
		}
	}
	return nil
}

// Rebalance rebuilds Loads from the allocations and task weights. Used for
// plans that arrive without load bookkeeping.
func Rebalance(allocations []Allocation, tasks []task.Task, members group.Members) Plan {
	weights := make(map[uuid.UUID]int, len(tasks))
	for _, t := range tasks {
		weights[t.ID] = t.Weight()
	}
	loads := make(map[uuid.UUID]int, len(members))
	for _, m := range members {
		loads[m.UserID] = 0
	}
	out := make([]Allocation, len(allocations))
	for i, a := range allocations {
		a.Weight = weights[a.TaskID]
		loads[a.MemberID] += a.Weight
		out[i] = a
	}
	return Plan{Allocations: out, Loads: loads}
}

func sortedMemberIDs(members group.Members) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(members))
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		if _, dup := seen[m.UserID]; dup {
			continue
		}
		seen[m.UserID] = struct{}{}
		ids = append(ids, m.UserID)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}
