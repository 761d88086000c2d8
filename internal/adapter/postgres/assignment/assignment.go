package assignment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/assignment"
	portassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/assignment"
)

var _ portassignment.Repository = (*Repository)(nil)

const assignmentColumns = `id, group_id, title, description, due_date, created_by, created_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, a domainassignment.Assignment) (domainassignment.Assignment, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO assignments (`+assignmentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+assignmentColumns,
		a.ID, a.GroupID, a.Title, a.Description, a.DueDate, a.CreatedBy, a.CreatedAt,
	)
	out, err := scanAssignment(row)
	if err != nil {
		return domainassignment.Assignment{}, fmt.Errorf("insert assignment: %w", err)
	}
	return out, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domainassignment.Assignment, error) {
	out, err := scanAssignment(r.pool.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainassignment.Assignment{}, fmt.Errorf("assignment %s: %w", id, domainassignment.ErrNotFound)
		}
		return domainassignment.Assignment{}, fmt.Errorf("get assignment: %w", err)
	}
	return out, nil
}

func (r *Repository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domainassignment.Assignment, error) {
	return r.list(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE group_id = $1 ORDER BY created_at, id`, groupID)
}

func (r *Repository) List(ctx context.Context) ([]domainassignment.Assignment, error) {
	return r.list(ctx, `SELECT `+assignmentColumns+` FROM assignments ORDER BY created_at, id`)
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]domainassignment.Assignment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var out []domainassignment.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignment rows: %w", err)
	}
	return out, nil
}

func scanAssignment(row pgx.Row) (domainassignment.Assignment, error) {
	var a domainassignment.Assignment
	err := row.Scan(&a.ID, &a.GroupID, &a.Title, &a.Description, &a.DueDate, &a.CreatedBy, &a.CreatedAt)
	return a, err
}
