package mysql

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
)

func TestTaskModel_RoundTrip(t *testing.T) {
	importance := 4
	assignee := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)

	tests := []struct {
		name string
		task domaintask.Task
	}{
		{
			name: "assigned with importance",
			task: domaintask.Task{
				ID: uuid.New(), AssignmentID: uuid.New(), Title: "Slides", EffortHours: 3,
				Importance: &importance, AssignedUserID: &assignee,
				Priority: domaintask.PriorityHigh, Status: domaintask.StatusInProgress,
				OrderIndex: 2, CreatedBy: uuid.New(), CreatedAt: now, UpdatedAt: now,
			},
		},
		{
			name: "unassigned without importance",
			task: domaintask.Task{
				ID: uuid.New(), AssignmentID: uuid.New(), Title: "Research", EffortHours: 8,
				Priority: domaintask.PriorityMedium, Status: domaintask.StatusPending,
				CreatedBy: uuid.New(), CreatedAt: now, UpdatedAt: now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := toTaskModel(tt.task)
			if tt.task.AssignedUserID == nil {
				assert.Nil(t, m.AssignedUserID)
			} else {
				require.NotNil(t, m.AssignedUserID)
				assert.Equal(t, tt.task.AssignedUserID.String(), *m.AssignedUserID)
			}
			assert.Equal(t, tt.task, m.toDomain())
		})
	}
}

func TestTaskModel_MalformedAssigneeIsDropped(t *testing.T) {
	bad := "not-a-uuid"
	m := taskModel{ID: uuid.NewString(), AssignmentID: uuid.NewString(), CreatedBy: uuid.NewString(), AssignedUserID: &bad}
	assert.Nil(t, m.toDomain().AssignedUserID)
}

func TestMemberModel_RoundTrip(t *testing.T) {
	m := domaingroup.Member{
		GroupID: uuid.New(), UserID: uuid.New(), Name: "Bob",
		Role: domaingroup.RoleLeader, JoinedAt: time.Now().UTC(),
	}
	assert.Equal(t, m, toMemberModel(m).toDomain())
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "groups", groupModel{}.TableName())
	assert.Equal(t, "group_members", memberModel{}.TableName())
	assert.Equal(t, "assignments", assignmentModel{}.TableName())
	assert.Equal(t, "tasks", taskModel{}.TableName())
}

func TestNormalizeDSN(t *testing.T) {
	got, err := normalizeDSN("app:secret@tcp(localhost:3306)/workflow")
	require.NoError(t, err)
	assert.True(t, strings.Contains(got, "parseTime=true"), got)
	assert.True(t, strings.Contains(got, "clientFoundRows=true"), got)

	_, err = normalizeDSN("app:secret@tcp(localhost:3306)workflow")
	assert.Error(t, err)
}
