package workload

import (
	"math"

	"github.com/google/uuid"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
)

type TaskSummary struct {
	ID         uuid.UUID     `json:"id"`
	Title      string        `json:"title"`
	Effort     int           `json:"effort"`
	Importance int           `json:"importance"`
	Priority   task.Priority `json:"priority"`
	Status     task.Status   `json:"status"`
}

// Record is one member's row in the workload report.
type Record struct {
	ID               uuid.UUID     `json:"id"`
	Name             string        `json:"name"`
	TaskCount        int           `json:"taskCount"`
	TotalEffort      int           `json:"totalEffort"`
	TotalImportance  int           `json:"totalImportance"`
	WeightedWorkload int           `json:"weightedWorkload"`
	Percentage       int           `json:"percentage"`
	Tasks            []TaskSummary `json:"tasks"`
}

// Report aggregates assigned tasks per member. Every member gets a row, in
// roster order, even with nothing assigned. Tasks held by non-members are not
// counted. Percentages are each member's share of the total weighted workload,
// rounded independently to whole numbers, so they may miss 100 by up to
// len(members)-1.
func Report(tasks []task.Task, members group.Members) []Record {
	records := make([]Record, len(members))
	index := make(map[uuid.UUID]int, len(members))
	for i, m := range members {
		records[i] = Record{ID: m.UserID, Name: m.Name, Tasks: []TaskSummary{}}
		index[m.UserID] = i
	}

	total := 0
	for _, t := range tasks {
		if t.AssignedUserID == nil {
			continue
		}
		i, ok := index[*t.AssignedUserID]
		if !ok {
			continue
		}
		r := &records[i]
		r.TaskCount++
		r.TotalEffort += t.EffortHours
		r.TotalImportance += t.ImportanceOrDefault()
		r.WeightedWorkload += t.Weight()
		r.Tasks = append(r.Tasks, TaskSummary{
			ID:         t.ID,
			Title:      t.Title,
			Effort:     t.EffortHours,
			Importance: t.ImportanceOrDefault(),
			Priority:   t.Priority,
			Status:     t.Status,
		})
		total += t.Weight()
	}

	if total == 0 {
		return records
	}
	for i := range records {
		records[i].Percentage = int(math.Round(float64(records[i].WeightedWorkload) * 100 / float64(total)))
	}
	return records
}

// HasUnassigned reports whether any task lacks an assignee.
func HasUnassigned(tasks []task.Task) bool {
	for _, t := range tasks {
		if t.AssignedUserID == nil {
			return true
		}
	}
	return false
}
