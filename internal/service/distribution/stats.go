package distribution

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/workload"
)

// Stats is the workload view of one assignment.
type Stats struct {
	Tasks         []domaintask.Task   `json:"tasks"`
	Members       domaingroup.Members `json:"group_members"`
	Workload      []workload.Record   `json:"workload_distribution"`
	HasUnassigned bool                `json:"has_unassigned_tasks"`
	// InvalidFixed counts tasks unassigned because their assignee left the group.
	// Always 0 when served from cache.
	InvalidFixed int `json:"invalid_assignments_fixed"`
}

// Stats reports the current workload of an assignment. Tasks held by users who
// are no longer group members are unassigned first. A nil actor skips the
// membership check.
//
// Cache misses are rebuilt under the assignment lock, so a snapshot is never
// cached after a concurrent distribution or task write has invalidated it.
func (s *Service) Stats(ctx context.Context, groupID, assignmentID, actor uuid.UUID) (Stats, error) {
	if cached, ok := s.cachedStats(ctx, groupID, assignmentID); ok {
		return cached.forActor(actor)
	}

	var stats Stats
	err := s.locker.WithLock(ctx, lockKey(assignmentID), func(ctx context.Context) error {
		if cached, ok := s.cachedStats(ctx, groupID, assignmentID); ok {
			var err error
			stats, err = cached.forActor(actor)
			return err
		}
		var err error
		stats, err = s.buildStats(ctx, groupID, assignmentID, actor)
		return err
	})
	if err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func (s *Service) cachedStats(ctx context.Context, groupID, assignmentID uuid.UUID) (Stats, bool) {
	raw, err := s.cache.Get(ctx, statsKey(assignmentID))
	if err != nil {
		return Stats{}, false
	}
	var cached Stats
	if err := json.Unmarshal(raw, &cached); err != nil || cached.groupID() != groupID {
		return Stats{}, false
	}
	cached.InvalidFixed = 0
	return cached, true
}

// buildStats loads, repairs and caches the stats. Callers hold the lock.
func (s *Service) buildStats(ctx context.Context, groupID, assignmentID, actor uuid.UUID) (Stats, error) {
	loaded, err := s.load(ctx, groupID, assignmentID)
	if err != nil {
		return Stats{}, err
	}
	if actor != uuid.Nil && !loaded.Members.IsMember(actor) {
		return Stats{}, fmt.Errorf("only group members can view workload stats: %w", ErrForbidden)
	}

	tasks, fixed := s.repair(ctx, assignmentID, loaded.Tasks, loaded.Members)
	stats := Stats{
		Tasks:         tasks,
		Members:       loaded.Members,
		Workload:      workload.Report(tasks, loaded.Members),
		HasUnassigned: workload.HasUnassigned(tasks),
		InvalidFixed:  fixed,
	}
	if stats.Members == nil {
		stats.Members = domaingroup.Members{}
	}

	if raw, err := json.Marshal(stats); err == nil {
		if err := s.cache.Set(ctx, statsKey(assignmentID), raw, s.statsTTL); err != nil {
			slog.WarnContext(ctx, "failed to cache workload stats", "assignment_id", assignmentID, "error", err)
		}
	}
	return stats, nil
}

func (st Stats) forActor(actor uuid.UUID) (Stats, error) {
	if actor != uuid.Nil && !st.Members.IsMember(actor) {
		return Stats{}, fmt.Errorf("only group members can view workload stats: %w", ErrForbidden)
	}
	return st, nil
}

// groupID recovers the owning group of a cached entry from its roster so a
// request under the wrong group never hits another group's cache entry.
func (st Stats) groupID() uuid.UUID {
	if len(st.Members) == 0 {
		return uuid.Nil
	}
	return st.Members[0].GroupID
}

func (s *Service) invalidateStats(ctx context.Context, assignmentID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, statsKey(assignmentID)); err != nil {
		slog.WarnContext(ctx, "failed to invalidate workload stats", "assignment_id", assignmentID, "error", err)
	}
}

// InvalidateStats drops the cached stats of an assignment. Called by services
// that change tasks or rosters outside a distribution run. It waits for any
// in-flight rebuild so the rebuild's Set cannot land after the drop.
func (s *Service) InvalidateStats(ctx context.Context, assignmentID uuid.UUID) {
	err := s.locker.WithLock(ctx, lockKey(assignmentID), func(ctx context.Context) error {
		s.invalidateStats(ctx, assignmentID)
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "stats invalidation ran without the assignment lock", "assignment_id", assignmentID, "error", err)
		s.invalidateStats(ctx, assignmentID)
	}
}

func statsKey(assignmentID uuid.UUID) string {
	return "stats:" + assignmentID.String()
}
