package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/memory"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/auth"
	domainassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/assignment"
	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/mocks"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/distribution"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/distributor"
	tasksvc "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/testutil"
)

// ── helpers ───────────────────────────────────────────────────────────────────

var (
	leaderID = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	memberID = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
)

type toolsDeps struct {
	assignments *mocks.MockAssignmentRepository
	groups      *mocks.MockGroupRepository
	tasks       *mocks.MockTaskRepository
}

func newToolsDeps(t *testing.T) (*distribution.Service, *tasksvc.Service, toolsDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := toolsDeps{
		assignments: mocks.NewMockAssignmentRepository(ctrl),
		groups:      mocks.NewMockGroupRepository(ctrl),
		tasks:       mocks.NewMockTaskRepository(ctrl),
	}
	bus := memory.NewEventBus()
	distSvc := distribution.NewService(d.assignments, d.groups, d.tasks, distributor.NewService(),
		bus, memory.NewLocker(), memory.NewCache(), time.Minute)
	taskSvc := tasksvc.NewService(d.tasks, d.assignments, d.groups, bus, &testutil.CaptureInvalidator{})
	return distSvc, taskSvc, d
}

func expectLoad(d toolsDeps, groupID, assignmentID uuid.UUID, tasks []domaintask.Task) {
	d.assignments.EXPECT().GetByID(gomock.Any(), assignmentID).
		Return(domainassignment.Assignment{ID: assignmentID, GroupID: groupID}, nil)
	d.groups.EXPECT().ListMembers(gomock.Any(), groupID).Return(domaingroup.Members{
		{GroupID: groupID, UserID: leaderID, Name: "Alice", Role: domaingroup.RoleLeader},
		{GroupID: groupID, UserID: memberID, Name: "Bob", Role: domaingroup.RoleMember},
	}, nil)
	d.tasks.EXPECT().List(gomock.Any(), gomock.Any()).Return(tasks, nil)
}

func makeReq(args map[string]any) mcpmcp.CallToolRequest {
	var req mcpmcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(r *mcpmcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	b, _ := json.Marshal(r.Content[0])
	var m map[string]interface{}
	json.Unmarshal(b, &m) //nolint:errcheck
	if t, ok := m["text"].(string); ok {
		return t
	}
	return ""
}

func as(id uuid.UUID) context.Context {
	return auth.WithUser(context.Background(), auth.User{ID: id})
}

func pending(effort int) domaintask.Task {
	return domaintask.Task{ID: uuid.New(), Title: "t", EffortHours: effort, Status: domaintask.StatusPending, Priority: domaintask.PriorityLow}
}

// ── get_workload_stats ────────────────────────────────────────────────────────

func TestGetWorkloadStatsHandler(t *testing.T) {
	distSvc, _, d := newToolsDeps(t)
	groupID, assignmentID := uuid.New(), uuid.New()
	tasks := []domaintask.Task{pending(6), pending(4)}
	tasks[0].AssignedUserID = &leaderID
	tasks[1].AssignedUserID = &memberID
	expectLoad(d, groupID, assignmentID, tasks)

	h := getWorkloadStatsHandler(NewSessionRegistry(), distSvc)
	res, err := h(as(memberID), makeReq(map[string]any{
		"group_id": groupID.String(), "assignment_id": assignmentID.String(),
	}))
	require.NoError(t, err)

	var st distribution.Stats
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &st))
	require.Len(t, st.Workload, 2)
	assert.Equal(t, 60, st.Workload[0].Percentage)
	assert.Equal(t, 40, st.Workload[1].Percentage)
	assert.False(t, st.HasUnassigned)
}

func TestGetWorkloadStatsHandler_Rejects(t *testing.T) {
	distSvc, _, d := newToolsDeps(t)
	h := getWorkloadStatsHandler(NewSessionRegistry(), distSvc)
	groupID, assignmentID := uuid.New(), uuid.New()

	res, err := h(context.Background(), makeReq(map[string]any{"group_id": groupID.String(), "assignment_id": assignmentID.String()}))
	require.NoError(t, err)
	assert.Equal(t, "error: authentication required", resultText(res))

	res, err = h(as(memberID), makeReq(map[string]any{"group_id": "nope", "assignment_id": assignmentID.String()}))
	require.NoError(t, err)
	assert.Equal(t, "error: invalid group_id", resultText(res))

	expectLoad(d, groupID, assignmentID, nil)
	res, err = h(as(uuid.New()), makeReq(map[string]any{"group_id": groupID.String(), "assignment_id": assignmentID.String()}))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resultText(res), "error:"))
	assert.Contains(t, resultText(res), "forbidden")
}

// ── distribute_tasks ──────────────────────────────────────────────────────────

func TestDistributeTasksHandler(t *testing.T) {
	distSvc, _, d := newToolsDeps(t)
	groupID, assignmentID := uuid.New(), uuid.New()
	expectLoad(d, groupID, assignmentID, []domaintask.Task{pending(5), pending(5), pending(5)})
	d.tasks.EXPECT().Assign(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)

	h := distributeTasksHandler(NewSessionRegistry(), distSvc, distribution.EligibilityPolicy{})
	res, err := h(as(leaderID), makeReq(map[string]any{
		"group_id": groupID.String(), "assignment_id": assignmentID.String(),
	}))
	require.NoError(t, err)

	var out struct {
		Distributed int                      `json:"distributed"`
		Errors      []distribution.TaskError `json:"errors"`
		Workload    []struct {
			ID               uuid.UUID `json:"id"`
			WeightedWorkload int       `json:"weightedWorkload"`
		} `json:"workload_distribution"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &out), resultText(res))
	assert.Equal(t, 3, out.Distributed)
	assert.Empty(t, out.Errors)
	require.Len(t, out.Workload, 2)
	assert.Equal(t, 10, out.Workload[0].WeightedWorkload)
	assert.Equal(t, 5, out.Workload[1].WeightedWorkload)
}

func TestDistributeTasksHandler_MemberForbidden(t *testing.T) {
	distSvc, _, d := newToolsDeps(t)
	groupID, assignmentID := uuid.New(), uuid.New()
	expectLoad(d, groupID, assignmentID, []domaintask.Task{pending(1)})

	h := distributeTasksHandler(NewSessionRegistry(), distSvc, distribution.EligibilityPolicy{})
	res, err := h(as(memberID), makeReq(map[string]any{
		"group_id": groupID.String(), "assignment_id": assignmentID.String(),
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(res), "forbidden")
}

// ── list_tasks ────────────────────────────────────────────────────────────────

// expectRoster answers the membership lookup list_tasks performs before
// reading any task.
func expectRoster(d toolsDeps) {
	groupID := uuid.New()
	d.assignments.EXPECT().GetByID(gomock.Any(), gomock.Any()).
		Return(domainassignment.Assignment{ID: uuid.New(), GroupID: groupID}, nil)
	d.groups.EXPECT().ListMembers(gomock.Any(), groupID).Return(domaingroup.Members{
		{GroupID: groupID, UserID: leaderID, Name: "Alice", Role: domaingroup.RoleLeader},
		{GroupID: groupID, UserID: memberID, Name: "Bob", Role: domaingroup.RoleMember},
	}, nil)
}

func TestListTasksHandler(t *testing.T) {
	tests := []struct {
		name         string
		actor        uuid.UUID
		args         map[string]any
		setup        func(d toolsDeps)
		wantContains string
	}{
		{
			name:  "lists tasks",
			actor: memberID,
			args:  map[string]any{"assignment_id": uuid.NewString(), "status": "pending"},
			setup: func(d toolsDeps) {
				expectRoster(d)
				d.tasks.EXPECT().List(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, f domaintask.ListFilters) ([]domaintask.Task, error) {
						require.NotNil(t, f.Status)
						return []domaintask.Task{{Title: "Draft outline"}}, nil
					})
			},
			wantContains: "Draft outline",
		},
		{name: "empty list", actor: memberID, args: map[string]any{"assignment_id": uuid.NewString()}, setup: func(d toolsDeps) {
			expectRoster(d)
			d.tasks.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, nil)
		}, wantContains: "[]"},
		{name: "outsider forbidden", actor: uuid.New(), args: map[string]any{"assignment_id": uuid.NewString()}, setup: func(d toolsDeps) {
			expectRoster(d)
		}, wantContains: "forbidden"},
		{name: "invalid assignment", actor: memberID, args: map[string]any{"assignment_id": "x"}, wantContains: "error: invalid assignment_id"},
		{name: "invalid status", actor: memberID, args: map[string]any{"assignment_id": uuid.NewString(), "status": "done"}, wantContains: "error: invalid status"},
		{name: "system actor rejected", actor: uuid.Nil, args: map[string]any{"assignment_id": uuid.NewString()}, wantContains: "authentication required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, taskSvc, d := newToolsDeps(t)
			if tt.setup != nil {
				tt.setup(d)
			}
			res, err := listTasksHandler(taskSvc)(as(tt.actor), makeReq(tt.args))
			require.NoError(t, err)
			assert.Contains(t, resultText(res), tt.wantContains)
		})
	}
}
