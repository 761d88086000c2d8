//go:build integration

package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	pgdb "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/postgres"
	pgassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/postgres/assignment"
	pggroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/postgres/group"
	domainassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/assignment"
	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
)

// SetupTestDB connects to the test database and applies the migrations.
// It skips the test if TEST_DATABASE_URL is not set.
// Each call uses the same DB; callers scope isolation by unique group/assignment IDs.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgdb.Connect(ctx, url, 0)
	if err != nil {
		t.Fatalf("connect to test DB: %v", err)
	}
	if err := pgdb.Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("migrate test DB: %v", err)
	}

	t.Cleanup(func() { pool.Close() })
	return pool
}

// MakeAssignment creates a group with the given members and one assignment in it.
// The first member becomes the leader.
func MakeAssignment(t *testing.T, pool *pgxpool.Pool, memberIDs ...uuid.UUID) (domaingroup.Group, domainassignment.Assignment) {
	t.Helper()
	ctx := context.Background()
	groups := pggroup.New(pool)

	g, err := groups.Create(ctx, domaingroup.New("g-"+uuid.New().String()[:6], "", uuid.New()))
	require.NoError(t, err)
	for i, id := range memberIDs {
		role := domaingroup.RoleMember
		if i == 0 {
			role = domaingroup.RoleLeader
		}
		require.NoError(t, groups.AddMember(ctx, domaingroup.Member{GroupID: g.ID, UserID: id, Name: id.String()[:8], Role: role}))
	}

	a, err := pgassignment.New(pool).Create(ctx, domainassignment.New(g.ID, "a-"+uuid.New().String()[:6], "", nil, uuid.New()))
	require.NoError(t, err)
	return g, a
}
