package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/assignment"
	portassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/assignment"
)

var _ portassignment.Repository = (*AssignmentRepository)(nil)

type AssignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Create(ctx context.Context, a domainassignment.Assignment) (domainassignment.Assignment, error) {
	m := toAssignmentModel(a)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domainassignment.Assignment{}, fmt.Errorf("inserting assignment: %w", err)
	}
	return m.toDomain(), nil
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (domainassignment.Assignment, error) {
	var m assignmentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainassignment.Assignment{}, fmt.Errorf("assignment %s: %w", id, domainassignment.ErrNotFound)
		}
		return domainassignment.Assignment{}, fmt.Errorf("querying assignment: %w", err)
	}
	return m.toDomain(), nil
}

func (r *AssignmentRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domainassignment.Assignment, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("group_id = ?", groupID.String()))
}

func (r *AssignmentRepository) List(ctx context.Context) ([]domainassignment.Assignment, error) {
	return r.list(ctx, r.db.WithContext(ctx))
}

func (r *AssignmentRepository) list(_ context.Context, q *gorm.DB) ([]domainassignment.Assignment, error) {
	var rows []assignmentModel
	if err := q.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	out := make([]domainassignment.Assignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
