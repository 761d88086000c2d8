package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/memory"
	mysqldb "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/mysql"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/openrouter"
	pgdb "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/postgres"
	pgassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/postgres/assignment"
	pgeventbus "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/postgres/eventbus"
	pggroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/postgres/group"
	pglocker "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/postgres/locker"
	pgtask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/adapter/postgres/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/auth"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/config"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/event"
	portassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/assignment"
	portdist "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/distributor"
	porteventbus "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/eventbus"
	portgroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/group"
	portlocker "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/locker"
	porttask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/distribution"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/distributor"
	groupsvc "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/group"
	tasksvc "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/service/task"
	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/transport"
	mcptransport "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/transport/mcp"
)

// App holds the top-level resources needed to run and gracefully stop the server.
type App struct {
	Server       *http.Server
	Distribution *distribution.Service
	Cron         *cron.Cron

	closers []func()
}

// Close releases storage handles and stops the repair schedule.
func (a *App) Close() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// storage is the set of adapters one driver provides.
type storage struct {
	assignments portassignment.Repository
	groups      portgroup.Repository
	tasks       porttask.Repository
	bus         porteventbus.EventBus
	locker      portlocker.AdvisoryLocker
}

// Build is the composition root: the only place concrete types are wired to their
// interface dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}

	// ── Storage ──────────────────────────────────────────────────────────────
	var (
		st  storage
		err error
	)
	switch cfg.Storage.Driver {
	case "mysql":
		st, err = openMySQL(cfg.Database, app)
	default:
		st, err = openPostgres(ctx, cfg.Database, app)
	}
	if err != nil {
		app.Close()
		return nil, err
	}

	cache := memory.NewCache()
	if cfg.Cache.SweepInterval > 0 {
		go cache.RunJanitor(ctx, cfg.Cache.SweepInterval)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	distSvc := distribution.NewService(
		st.assignments, st.groups, st.tasks,
		planner(cfg.AI),
		st.bus, st.locker, cache, cfg.Cache.StatsTTL,
	)
	app.Distribution = distSvc

	// The distribution service owns the stats cache, so it is what task and
	// group writes invalidate.
	taskSvc := tasksvc.NewService(st.tasks, st.assignments, st.groups, st.bus, distSvc)
	groupSvc := groupsvc.NewService(st.groups, st.assignments, st.bus, distSvc)

	defaults := distribution.EligibilityPolicy{
		UnassignedOnly:   cfg.Distribution.UnassignedOnly,
		IncludeCompleted: cfg.Distribution.IncludeCompleted,
	}

	reg := mcptransport.NewSessionRegistry()
	mcpServer := mcptransport.New(reg, distSvc, taskSvc, defaults)

	// ── Transport ─────────────────────────────────────────────────────────────
	router := transport.NewRouter(ctx, transport.Deps{
		Distribution: distSvc,
		Tasks:        taskSvc,
		Groups:       groupSvc,
		EventBus:     st.bus,
		Tokens:       auth.NewTokens(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TTL),
		MCP:          mcpServer,
		Defaults:     defaults,
		CORSOrigins:  cfg.Server.CORSOrigins,
	})

	app.Server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── Scheduled repair ──────────────────────────────────────────────────────
	app.Cron, err = scheduleRepair(cfg.Repair.Schedule, distSvc)
	if err != nil {
		app.Close()
		return nil, err
	}

	slog.Info("application wired",
		"addr", app.Server.Addr,
		"storage", cfg.Storage.Driver,
		"ai_planner", cfg.AI.Enabled,
	)
	return app, nil
}

func openPostgres(ctx context.Context, db config.DatabaseConfig, app *App) (storage, error) {
	pool, err := pgdb.Connect(ctx, db.URL, int32(db.MaxConnections))
	if err != nil {
		return storage{}, fmt.Errorf("connecting to database: %w", err)
	}
	app.closers = append(app.closers, pool.Close)

	if err := pgdb.Migrate(ctx, pool); err != nil {
		return storage{}, err
	}
	return postgresStorage(pool, app), nil
}

func postgresStorage(pool *pgxpool.Pool, app *App) storage {
	bus := pgeventbus.New(pool)
	app.closers = append(app.closers, bus.Close)
	return storage{
		assignments: pgassignment.New(pool),
		groups:      pggroup.New(pool),
		tasks:       pgtask.New(pool),
		bus:         bus,
		locker:      pglocker.New(pool, int32(len(event.Channels))),
	}
}

// openMySQL has no LISTEN/NOTIFY or advisory locks to lean on, so events and
// locks stay in process. Run a single replica on this driver.
func openMySQL(db config.DatabaseConfig, app *App) (storage, error) {
	gdb, err := mysqldb.Open(db.MySQLDSN, mysqldb.Options{
		MaxOpenConns:    db.MaxConnections,
		MaxIdleConns:    db.MaxIdle,
		ConnMaxLifetime: db.ConnMaxLifetime,
	})
	if err != nil {
		return storage{}, fmt.Errorf("connecting to database: %w", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		app.closers = append(app.closers, func() { sqlDB.Close() }) //nolint:errcheck
	}

	if err := mysqldb.Migrate(gdb); err != nil {
		return storage{}, err
	}
	return storage{
		assignments: mysqldb.NewAssignmentRepository(gdb),
		groups:      mysqldb.NewGroupRepository(gdb),
		tasks:       mysqldb.NewTaskRepository(gdb),
		bus:         memory.NewEventBus(),
		locker:      memory.NewLocker(),
	}, nil
}

func planner(ai config.AIConfig) portdist.Distributor {
	greedy := distributor.NewService()
	if !ai.Enabled {
		return greedy
	}
	return openrouter.NewPlanner(openrouter.Config{
		APIKey:  ai.APIKey,
		BaseURL: ai.BaseURL,
		Model:   ai.Model,
		Timeout: ai.Timeout,
		Referer: ai.Referer,
		Title:   "workflow",
	}, greedy)
}
