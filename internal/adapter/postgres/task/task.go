package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	porttask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/task"
)

var _ porttask.Repository = (*Repository)(nil)

const taskColumns = `id, assignment_id, title, description, effort_hours, importance,
	assigned_user_id, priority, status, order_index, created_by, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a task. OrderIndex 0 appends it after the assignment's last task.
func (r *Repository) Create(ctx context.Context, t domaintask.Task) (domaintask.Task, error) {
	query := `
		INSERT INTO tasks (id, assignment_id, title, description, effort_hours, importance,
			assigned_user_id, priority, status, order_index, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,
			CASE WHEN $10 > 0 THEN $10 ELSE
				(SELECT COALESCE(MAX(order_index), 0) + 1 FROM tasks WHERE assignment_id = $2 AND deleted_at IS NULL)
			END,
			$11,$12,$13)
		RETURNING ` + taskColumns

	created, err := scanTask(r.pool.QueryRow(ctx, query,
		t.ID, t.AssignmentID, t.Title, t.Description, t.EffortHours, t.Importance,
		t.AssignedUserID, string(t.Priority), string(t.Status), t.OrderIndex, t.CreatedBy,
		t.CreatedAt, t.UpdatedAt,
	))
	if err != nil {
		return domaintask.Task{}, fmt.Errorf("inserting task: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domaintask.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND deleted_at IS NULL`

	t, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domaintask.Task{}, fmt.Errorf("task %s: %w", id, domaintask.ErrNotFound)
		}
		return domaintask.Task{}, fmt.Errorf("querying task: %w", err)
	}
	return t, nil
}

func (r *Repository) List(ctx context.Context, filters domaintask.ListFilters) ([]domaintask.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE deleted_at IS NULL`

	args := []interface{}{}
	argIdx := 1

	if filters.AssignmentID != nil {
		query += fmt.Sprintf(" AND assignment_id = $%d", argIdx)
		args = append(args, *filters.AssignmentID)
		argIdx++
	}
	if filters.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*filters.Status))
		argIdx++
	}
	if filters.AssignedTo != nil {
		query += fmt.Sprintf(" AND assigned_user_id = $%d", argIdx)
		args = append(args, *filters.AssignedTo)
		argIdx++
	}
	if filters.Unassigned {
		query += " AND assigned_user_id IS NULL"
	}

	query += " ORDER BY order_index, created_at, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domaintask.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task rows: %w", err)
	}
	return tasks, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domaintask.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4 AND deleted_at IS NULL`,
		string(to), time.Now().UTC(), id, string(from))
	if err != nil {
		return fmt.Errorf("updating task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s status CAS failed: expected status %s: %w", id, from, domaintask.ErrStatusConflict)
	}
	return nil
}

func (r *Repository) Assign(ctx context.Context, taskID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET assigned_user_id = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`,
		userID, taskID)
	if err != nil {
		return fmt.Errorf("assigning task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s: %w", taskID, domaintask.ErrNotFound)
	}
	return nil
}

func (r *Repository) Unassign(ctx context.Context, taskID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET assigned_user_id = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		taskID)
	if err != nil {
		return fmt.Errorf("unassigning task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s: %w", taskID, domaintask.ErrNotFound)
	}
	return nil
}

func scanTask(row pgx.Row) (domaintask.Task, error) {
	var (
		t        domaintask.Task
		priority string
		status   string
	)
	err := row.Scan(
		&t.ID, &t.AssignmentID, &t.Title, &t.Description, &t.EffortHours, &t.Importance,
		&t.AssignedUserID, &priority, &status, &t.OrderIndex, &t.CreatedBy,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domaintask.Task{}, err
	}
	t.Priority = domaintask.Priority(priority)
	t.Status = domaintask.Status(status)
	return t, nil
}
