//go:build integration

package mysql_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/mysql"
	domainassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/assignment"
	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set, skipping integration test")
	}
	db, err := mysql.Open(dsn, mysql.Options{})
	require.NoError(t, err)
	require.NoError(t, mysql.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedAssignment(t *testing.T, db *gorm.DB, members ...uuid.UUID) (domaingroup.Group, domainassignment.Assignment) {
	t.Helper()
	ctx := context.Background()
	groups := mysql.NewGroupRepository(db)
	g, err := groups.Create(ctx, domaingroup.New("g-"+uuid.NewString()[:8], "", members[0]))
	require.NoError(t, err)
	for i, id := range members {
		role := domaingroup.RoleMember
		if i == 0 {
			role = domaingroup.RoleLeader
		}
		require.NoError(t, groups.AddMember(ctx, domaingroup.Member{GroupID: g.ID, UserID: id, Name: "m", Role: role}))
	}
	a, err := mysql.NewAssignmentRepository(db).Create(ctx, domainassignment.New(g.ID, "a", "", nil, members[0]))
	require.NoError(t, err)
	return g, a
}

func TestGroupRepository_Members(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := mysql.NewGroupRepository(db)
	leader, member := uuid.New(), uuid.New()
	g, _ := seedAssignment(t, db, leader, member)

	members, err := repo.ListMembers(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Less(t, members[0].UserID.String(), members[1].UserID.String())
	assert.True(t, members.IsLeader(leader))

	require.NoError(t, repo.AddMember(ctx, domaingroup.Member{GroupID: g.ID, UserID: member, Name: "m", Role: domaingroup.RoleLeader}))
	members, err = repo.ListMembers(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.True(t, members.IsLeader(member))

	require.NoError(t, repo.RemoveMember(ctx, g.ID, member))
	assert.ErrorIs(t, repo.RemoveMember(ctx, g.ID, member), domaingroup.ErrNotMember)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domaingroup.ErrNotFound)
}

func TestTaskRepository_Lifecycle(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := mysql.NewTaskRepository(db)
	user := uuid.New()
	_, a := seedAssignment(t, db, user)

	first, err := repo.Create(ctx, domaintask.New(a.ID, "first", "", 3, nil, domaintask.PriorityLow, user))
	require.NoError(t, err)
	second, err := repo.Create(ctx, domaintask.New(a.ID, "second", "", 5, nil, domaintask.PriorityLow, user))
	require.NoError(t, err)
	assert.Equal(t, 1, first.OrderIndex)
	assert.Equal(t, 2, second.OrderIndex)

	require.NoError(t, repo.Assign(ctx, first.ID, user))
	require.NoError(t, repo.Assign(ctx, first.ID, user), "reassigning to the same user still matches the row")

	unassigned, err := repo.List(ctx, domaintask.ListFilters{AssignmentID: &a.ID, Unassigned: true})
	require.NoError(t, err)
	require.Len(t, unassigned, 1)
	assert.Equal(t, second.ID, unassigned[0].ID)

	require.NoError(t, repo.UpdateStatus(ctx, first.ID, domaintask.StatusPending, domaintask.StatusCompleted))
	assert.Error(t, repo.UpdateStatus(ctx, first.ID, domaintask.StatusPending, domaintask.StatusCompleted))

	require.NoError(t, repo.Unassign(ctx, first.ID))
	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedUserID)
	assert.Equal(t, domaintask.StatusCompleted, got.Status)

	assert.ErrorIs(t, repo.Assign(ctx, uuid.New(), user), domaintask.ErrNotFound)
}

func TestAssignmentRepository_List(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := mysql.NewAssignmentRepository(db)
	g, a := seedAssignment(t, db, uuid.New())

	byGroup, err := repo.ListByGroup(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, byGroup, 1)
	assert.Equal(t, a.ID, byGroup[0].ID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domainassignment.ErrNotFound)
}
