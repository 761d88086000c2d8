package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
	porttask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/task"
)

var _ porttask.Repository = (*TaskRepository)(nil)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a task. OrderIndex 0 appends it after the assignment's last task.
func (r *TaskRepository) Create(ctx context.Context, t domaintask.Task) (domaintask.Task, error) {
	m := toTaskModel(t)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if m.OrderIndex == 0 {
			var last int
			err := tx.Model(&taskModel{}).
				Where("assignment_id = ?", m.AssignmentID).
				Select("COALESCE(MAX(order_index), 0)").
				Scan(&last).Error
			if err != nil {
				return fmt.Errorf("reading last order index: %w", err)
			}
			m.OrderIndex = last + 1
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return domaintask.Task{}, fmt.Errorf("inserting task: %w", err)
	}
	return m.toDomain(), nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (domaintask.Task, error) {
	var m taskModel
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domaintask.Task{}, fmt.Errorf("task %s: %w", id, domaintask.ErrNotFound)
		}
		return domaintask.Task{}, fmt.Errorf("querying task: %w", err)
	}
	return m.toDomain(), nil
}

func (r *TaskRepository) List(ctx context.Context, filters domaintask.ListFilters) ([]domaintask.Task, error) {
	q := r.db.WithContext(ctx)
	if filters.AssignmentID != nil {
		q = q.Where("assignment_id = ?", filters.AssignmentID.String())
	}
	if filters.Status != nil {
		q = q.Where("status = ?", string(*filters.Status))
	}
	if filters.AssignedTo != nil {
		q = q.Where("assigned_user_id = ?", filters.AssignedTo.String())
	}
	if filters.Unassigned {
		q = q.Where("assigned_user_id IS NULL")
	}

	var rows []taskModel
	if err := q.Order("order_index, created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	tasks := make([]domaintask.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toDomain())
	}
	return tasks, nil
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domaintask.Status) error {
	res := r.db.WithContext(ctx).Model(&taskModel{}).
		Where("id = ? AND status = ?", id.String(), string(from)).
		Updates(map[string]interface{}{"status": string(to), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("updating task status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %s status CAS failed: expected status %s: %w", id, from, domaintask.ErrStatusConflict)
	}
	return nil
}

func (r *TaskRepository) Assign(ctx context.Context, taskID, userID uuid.UUID) error {
	return r.setAssignee(ctx, taskID, userID.String())
}

func (r *TaskRepository) Unassign(ctx context.Context, taskID uuid.UUID) error {
	return r.setAssignee(ctx, taskID, nil)
}

func (r *TaskRepository) setAssignee(ctx context.Context, taskID uuid.UUID, assignee interface{}) error {
	res := r.db.WithContext(ctx).Model(&taskModel{}).
		Where("id = ?", taskID.String()).
		Updates(map[string]interface{}{"assigned_user_id": assignee, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("setting task assignee: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %s: %w", taskID, domaintask.ErrNotFound)
	}
	return nil
}
