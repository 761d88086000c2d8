package distribution_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/memory"
	domainassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/assignment"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/event"
	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/workload"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/mocks"
	portdist "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/distributor"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/distribution"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/distributor"
)

// ── helpers ───────────────────────────────────────────────────────────────────

var (
	leaderID = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	memberID = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	outsider = uuid.MustParse("00000000-0000-0000-0000-0000000000ff")
)

type svcDeps struct {
	assignments *mocks.MockAssignmentRepository
	groups      *mocks.MockGroupRepository
	tasks       *mocks.MockTaskRepository
	dist        *mocks.MockDistributor
	bus         *mocks.MockEventBus
	locker      *mocks.MockAdvisoryLocker
	cache       *mocks.MockCache
}

type fixture struct {
	groupID      uuid.UUID
	assignmentID uuid.UUID
	members      domaingroup.Members
}

func newFixture() fixture {
	groupID := uuid.New()
	return fixture{
		groupID:      groupID,
		assignmentID: uuid.New(),
		members: domaingroup.Members{
			{GroupID: groupID, UserID: leaderID, Name: "Alice", Role: domaingroup.RoleLeader},
			{GroupID: groupID, UserID: memberID, Name: "Bob", Role: domaingroup.RoleMember},
		},
	}
}

// newSvc wires the service with mocks. When greedy is true the real greedy
// distributor is used instead of the mock.
func newSvc(t *testing.T, greedy bool) (*distribution.Service, svcDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := svcDeps{
		assignments: mocks.NewMockAssignmentRepository(ctrl),
		groups:      mocks.NewMockGroupRepository(ctrl),
		tasks:       mocks.NewMockTaskRepository(ctrl),
		dist:        mocks.NewMockDistributor(ctrl),
		bus:         mocks.NewMockEventBus(ctrl),
		locker:      mocks.NewMockAdvisoryLocker(ctrl),
		cache:       mocks.NewMockCache(ctrl),
	}
	var planner portdist.Distributor = d.dist
	if greedy {
		planner = distributor.NewService()
	}
	svc := distribution.NewService(d.assignments, d.groups, d.tasks, planner, d.bus, d.locker, d.cache, time.Minute)
	return svc, d
}

func syncLocker(d svcDeps) {
	d.locker.EXPECT().WithLock(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ int64, fn func(context.Context) error) error {
			return fn(ctx)
		}).AnyTimes()
}

func expectLoad(d svcDeps, f fixture, tasks []domaintask.Task) {
	d.assignments.EXPECT().GetByID(gomock.Any(), f.assignmentID).
		Return(domainassignment.Assignment{ID: f.assignmentID, GroupID: f.groupID}, nil)
	d.groups.EXPECT().ListMembers(gomock.Any(), f.groupID).Return(f.members, nil)
	d.tasks.EXPECT().List(gomock.Any(), gomock.Any()).Return(tasks, nil)
}

func allowEvents(d svcDeps) {
	d.bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	d.cache.EXPECT().Invalidate(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func newTask(effort int, importance *int) domaintask.Task {
	return domaintask.Task{
		ID:          uuid.New(),
		Title:       "task",
		EffortHours: effort,
		Importance:  importance,
		Priority:    domaintask.PriorityMedium,
		Status:      domaintask.StatusPending,
	}
}

func intPtr(v int) *int { return &v }

func matchEventType(et event.Type) gomock.Matcher {
	return eventTypeMatcher{et}
}

type eventTypeMatcher struct{ want event.Type }

func (m eventTypeMatcher) Matches(x interface{}) bool {
	e, ok := x.(event.Event)
	return ok && e.Type == m.want
}
func (m eventTypeMatcher) String() string { return "event.Type=" + string(m.want) }

func recordFor(records []workload.Record, id uuid.UUID) workload.Record {
	for _, r := range records {
		if r.ID == id {
			return r
		}
	}
	return workload.Record{}
}

// ── Distribute ────────────────────────────────────────────────────────────────

func TestDistribute_GreedyEndToEnd(t *testing.T) {
	svc, d := newSvc(t, true)
	f := newFixture()
	tasks := []domaintask.Task{newTask(8, nil), newTask(6, nil), newTask(4, nil), newTask(4, nil), newTask(2, nil)}

	syncLocker(d)
	expectLoad(d, f, tasks)
	d.tasks.EXPECT().Assign(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(5)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeTaskAssigned)).Return(nil).Times(5)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeTasksDistributed)).Return(nil)
	d.cache.EXPECT().Invalidate(gomock.Any(), "stats:"+f.assignmentID.String()).Return(nil)

	res, err := svc.Distribute(context.Background(), distribution.Request{
		GroupID: f.groupID, AssignmentID: f.assignmentID, Actor: leaderID,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Distributed)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 12, recordFor(res.Workload, leaderID).WeightedWorkload)
	assert.Equal(t, 12, recordFor(res.Workload, memberID).WeightedWorkload)
	assert.Equal(t, 50, recordFor(res.Workload, leaderID).Percentage)
	for _, tk := range res.Tasks {
		require.NotNil(t, tk.AssignedUserID, "task %s left unassigned", tk.ID)
	}
}

func TestDistribute_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		actor   uuid.UUID
		setup   func(d svcDeps, f fixture)
		wantErr error
		wantMsg string
	}{
		{
			name:  "assignment not found",
			actor: leaderID,
			setup: func(d svcDeps, f fixture) {
				d.assignments.EXPECT().GetByID(gomock.Any(), f.assignmentID).
					Return(domainassignment.Assignment{}, domainassignment.ErrNotFound)
			},
			wantErr: domainassignment.ErrNotFound,
		},
		{
			name:  "assignment belongs to another group",
			actor: leaderID,
			setup: func(d svcDeps, f fixture) {
				d.assignments.EXPECT().GetByID(gomock.Any(), f.assignmentID).
					Return(domainassignment.Assignment{ID: f.assignmentID, GroupID: uuid.New()}, nil)
			},
			wantErr: domainassignment.ErrNotFound,
		},
		{
			name:  "no members is a configuration error",
			actor: leaderID,
			setup: func(d svcDeps, f fixture) {
				d.assignments.EXPECT().GetByID(gomock.Any(), f.assignmentID).
					Return(domainassignment.Assignment{ID: f.assignmentID, GroupID: f.groupID}, nil)
				d.groups.EXPECT().ListMembers(gomock.Any(), f.groupID).Return(domaingroup.Members{}, nil)
				d.tasks.EXPECT().List(gomock.Any(), gomock.Any()).Return([]domaintask.Task{newTask(3, nil)}, nil)
			},
			wantErr: workload.ErrNoMembers,
		},
		{
			name:  "plain member cannot distribute",
			actor: memberID,
			setup: func(d svcDeps, f fixture) {
				expectLoad(d, f, []domaintask.Task{newTask(3, nil)})
			},
			wantErr: distribution.ErrForbidden,
		},
		{
			name:  "outsider cannot distribute",
			actor: outsider,
			setup: func(d svcDeps, f fixture) {
				expectLoad(d, f, []domaintask.Task{newTask(3, nil)})
			},
			wantErr: distribution.ErrForbidden,
		},
		{
			name:  "planner failure writes nothing",
			actor: leaderID,
			setup: func(d svcDeps, f fixture) {
				expectLoad(d, f, []domaintask.Task{newTask(3, nil)})
				d.dist.EXPECT().Distribute(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(workload.Plan{}, errors.New("upstream down"))
			},
			wantMsg: "plan distribution",
		},
		{
			name:  "plan missing a task is rejected before any write",
			actor: leaderID,
			setup: func(d svcDeps, f fixture) {
				expectLoad(d, f, []domaintask.Task{newTask(3, nil), newTask(2, nil)})
				d.dist.EXPECT().Distribute(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(workload.Plan{}, nil)
			},
			wantErr: distribution.ErrInvalidPlan,
		},
		{
			name:  "plan naming a non-member is rejected",
			actor: leaderID,
			setup: func(d svcDeps, f fixture) {
				tk := newTask(3, nil)
				expectLoad(d, f, []domaintask.Task{tk})
				d.dist.EXPECT().Distribute(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(workload.Plan{Allocations: []workload.Allocation{{TaskID: tk.ID, MemberID: outsider}}}, nil)
			},
			wantErr: distribution.ErrInvalidPlan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newSvc(t, false)
			f := newFixture()
			syncLocker(d)
			tt.setup(d, f)

			_, err := svc.Distribute(context.Background(), distribution.Request{
				GroupID: f.groupID, AssignmentID: f.assignmentID, Actor: tt.actor,
			})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestDistribute_SystemActorSkipsRoleCheck(t *testing.T) {
	svc, d := newSvc(t, true)
	f := newFixture()
	syncLocker(d)
	expectLoad(d, f, []domaintask.Task{newTask(1, nil)})
	d.tasks.EXPECT().Assign(gomock.Any(), gomock.Any(), leaderID).Return(nil)
	allowEvents(d)

	res, err := svc.Distribute(context.Background(), distribution.Request{GroupID: f.groupID, AssignmentID: f.assignmentID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Distributed)
}

func TestDistribute_PartialPersistenceFailure(t *testing.T) {
	svc, d := newSvc(t, true)
	f := newFixture()
	heavy, light := newTask(5, nil), newTask(1, nil)

	syncLocker(d)
	expectLoad(d, f, []domaintask.Task{light, heavy})
	d.tasks.EXPECT().Assign(gomock.Any(), heavy.ID, leaderID).Return(errors.New("deadlock detected"))
	d.tasks.EXPECT().Assign(gomock.Any(), light.ID, memberID).Return(nil)
	allowEvents(d)

	res, err := svc.Distribute(context.Background(), distribution.Request{
		GroupID: f.groupID, AssignmentID: f.assignmentID, Actor: leaderID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Distributed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, heavy.ID, res.Errors[0].TaskID)
	assert.Contains(t, res.Errors[0].Message, "deadlock")

	// The failed task keeps its previous (empty) assignee in the response.
	for _, tk := range res.Tasks {
		if tk.ID == heavy.ID {
			assert.Nil(t, tk.AssignedUserID)
		}
	}
	assert.Equal(t, 100, recordFor(res.Workload, memberID).Percentage)
}

func TestDistribute_EligibilityPolicy(t *testing.T) {
	tests := []struct {
		name      string
		policy    distribution.EligibilityPolicy
		wantWrite int
	}{
		{name: "default redistributes assigned, skips completed", policy: distribution.EligibilityPolicy{}, wantWrite: 2},
		{name: "unassigned only", policy: distribution.EligibilityPolicy{UnassignedOnly: true}, wantWrite: 1},
		{name: "include completed", policy: distribution.EligibilityPolicy{IncludeCompleted: true}, wantWrite: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newSvc(t, true)
			f := newFixture()
			assigned := newTask(4, intPtr(2))
			assigned.AssignedUserID = &memberID
			done := newTask(2, nil)
			done.Status = domaintask.StatusCompleted
			open := newTask(3, nil)

			syncLocker(d)
			expectLoad(d, f, []domaintask.Task{assigned, done, open})
			d.tasks.EXPECT().Assign(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(tt.wantWrite)
			allowEvents(d)

			res, err := svc.Distribute(context.Background(), distribution.Request{
				GroupID: f.groupID, AssignmentID: f.assignmentID, Actor: leaderID, Policy: tt.policy,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantWrite, res.Distributed)
			assert.Len(t, res.Tasks, 3)
		})
	}
}

func TestDistribute_LockError(t *testing.T) {
	svc, d := newSvc(t, false)
	d.locker.EXPECT().WithLock(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("acquire conn"))

	_, err := svc.Distribute(context.Background(), distribution.Request{GroupID: uuid.New(), AssignmentID: uuid.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire conn")
}

// ── Stats ─────────────────────────────────────────────────────────────────────

func TestStats(t *testing.T) {
	svc, d := newSvc(t, false)
	f := newFixture()
	a := newTask(7, nil)
	a.AssignedUserID = &leaderID
	b := newTask(3, nil)
	b.AssignedUserID = &memberID
	c := newTask(2, nil)

	syncLocker(d)
	d.cache.EXPECT().Get(gomock.Any(), "stats:"+f.assignmentID.String()).Return(nil, errors.New("miss")).Times(2)
	expectLoad(d, f, []domaintask.Task{a, b, c})
	d.cache.EXPECT().Set(gomock.Any(), "stats:"+f.assignmentID.String(), gomock.Any(), time.Minute).Return(nil)

	st, err := svc.Stats(context.Background(), f.groupID, f.assignmentID, memberID)
	require.NoError(t, err)
	assert.True(t, st.HasUnassigned)
	assert.Zero(t, st.InvalidFixed)
	assert.Len(t, st.Tasks, 3)
	require.Len(t, st.Workload, 2)
	assert.Equal(t, 70, recordFor(st.Workload, leaderID).Percentage)
	assert.Equal(t, 30, recordFor(st.Workload, memberID).Percentage)
}

func TestStats_RepairsNonMemberAssignments(t *testing.T) {
	svc, d := newSvc(t, false)
	f := newFixture()
	stale := newTask(4, nil)
	stale.AssignedUserID = &outsider
	ok := newTask(2, nil)
	ok.AssignedUserID = &leaderID

	syncLocker(d)
	d.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("miss")).Times(2)
	expectLoad(d, f, []domaintask.Task{stale, ok})
	d.tasks.EXPECT().Unassign(gomock.Any(), stale.ID).Return(nil)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeTaskUpdated)).Return(nil)
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeAssignmentsRepaired)).Return(nil)
	d.cache.EXPECT().Invalidate(gomock.Any(), gomock.Any()).Return(nil)
	d.cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	st, err := svc.Stats(context.Background(), f.groupID, f.assignmentID, leaderID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.InvalidFixed)
	assert.True(t, st.HasUnassigned)
	assert.Equal(t, 100, recordFor(st.Workload, leaderID).Percentage)
}

func TestStats_Forbidden(t *testing.T) {
	svc, d := newSvc(t, false)
	f := newFixture()
	syncLocker(d)
	d.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("miss")).Times(2)
	d.assignments.EXPECT().GetByID(gomock.Any(), f.assignmentID).
		Return(domainassignment.Assignment{ID: f.assignmentID, GroupID: f.groupID}, nil)
	d.groups.EXPECT().ListMembers(gomock.Any(), f.groupID).Return(f.members, nil)
	stale := newTask(1, nil)
	stale.AssignedUserID = &outsider
	d.tasks.EXPECT().List(gomock.Any(), gomock.Any()).Return([]domaintask.Task{stale}, nil)

	_, err := svc.Stats(context.Background(), f.groupID, f.assignmentID, outsider)
	assert.ErrorIs(t, err, distribution.ErrForbidden)
}

func TestStats_LockError(t *testing.T) {
	svc, d := newSvc(t, false)
	f := newFixture()
	d.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("miss"))
	d.locker.EXPECT().WithLock(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("acquire conn"))

	_, err := svc.Stats(context.Background(), f.groupID, f.assignmentID, memberID)
	assert.ErrorContains(t, err, "acquire conn")
}

// A write that invalidates stats while a rebuild is loading must wait for the
// rebuild to finish; otherwise the rebuild caches the pre-write snapshot.
func TestStats_InvalidationWaitsForRebuild(t *testing.T) {
	ctrl := gomock.NewController(t)
	assignments := mocks.NewMockAssignmentRepository(ctrl)
	groups := mocks.NewMockGroupRepository(ctrl)
	tasks := mocks.NewMockTaskRepository(ctrl)
	cache := memory.NewCache()
	svc := distribution.NewService(assignments, groups, tasks, distributor.NewService(),
		memory.NewEventBus(), memory.NewLocker(), cache, time.Minute)
	f := newFixture()
	ctx := context.Background()

	assignments.EXPECT().GetByID(gomock.Any(), f.assignmentID).
		Return(domainassignment.Assignment{ID: f.assignmentID, GroupID: f.groupID}, nil)
	groups.EXPECT().ListMembers(gomock.Any(), f.groupID).Return(f.members, nil)

	invalidated := make(chan struct{})
	var blocked bool
	tasks.EXPECT().List(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domaintask.ListFilters) ([]domaintask.Task, error) {
			go func() {
				svc.InvalidateStats(ctx, f.assignmentID)
				close(invalidated)
			}()
			select {
			case <-invalidated:
			case <-time.After(50 * time.Millisecond):
				blocked = true
			}
			return []domaintask.Task{newTask(2, nil)}, nil
		})

	_, err := svc.Stats(ctx, f.groupID, f.assignmentID, memberID)
	require.NoError(t, err)
	<-invalidated

	assert.True(t, blocked, "invalidation must wait for the rebuild lock")
	_, err = cache.Get(ctx, "stats:"+f.assignmentID.String())
	assert.Error(t, err, "stale snapshot left in cache")
}

func TestStats_CacheHit(t *testing.T) {
	svc, d := newSvc(t, false)
	f := newFixture()
	cached := distribution.Stats{
		Tasks:        []domaintask.Task{},
		Members:      f.members,
		Workload:     workload.Report(nil, f.members),
		InvalidFixed: 4,
	}
	raw, err := json.Marshal(cached)
	require.NoError(t, err)
	d.cache.EXPECT().Get(gomock.Any(), "stats:"+f.assignmentID.String()).Return(raw, nil).Times(2)
	d.locker.EXPECT().WithLock(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	st, err := svc.Stats(context.Background(), f.groupID, f.assignmentID, memberID)
	require.NoError(t, err)
	assert.Zero(t, st.InvalidFixed)
	assert.Len(t, st.Members, 2)

	_, err = svc.Stats(context.Background(), f.groupID, f.assignmentID, outsider)
	assert.Error(t, err)
}

// ── Repair ────────────────────────────────────────────────────────────────────

func TestRepairAll(t *testing.T) {
	svc, d := newSvc(t, false)
	f := newFixture()
	broken := domainassignment.Assignment{ID: uuid.New(), GroupID: uuid.New()}
	stale := newTask(1, nil)
	stale.AssignedUserID = &outsider

	syncLocker(d)
	d.assignments.EXPECT().List(gomock.Any()).Return([]domainassignment.Assignment{
		{ID: f.assignmentID, GroupID: f.groupID}, broken,
	}, nil)
	expectLoad(d, f, []domaintask.Task{stale})
	d.assignments.EXPECT().GetByID(gomock.Any(), broken.ID).Return(domainassignment.Assignment{}, errors.New("db error"))
	d.tasks.EXPECT().Unassign(gomock.Any(), stale.ID).Return(nil)
	allowEvents(d)

	fixed, err := svc.RepairAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)
}

func TestRepairAll_ListError(t *testing.T) {
	svc, d := newSvc(t, false)
	d.assignments.EXPECT().List(gomock.Any()).Return(nil, errors.New("db error"))

	_, err := svc.RepairAll(context.Background())
	assert.ErrorContains(t, err, "list assignments")
}
