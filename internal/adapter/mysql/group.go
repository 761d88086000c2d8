package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	portgroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/group"
)

var _ portgroup.Repository = (*GroupRepository)(nil)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) Create(ctx context.Context, g domaingroup.Group) (domaingroup.Group, error) {
	m := toGroupModel(g)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domaingroup.Group{}, fmt.Errorf("inserting group: %w", err)
	}
	return m.toDomain(), nil
}

func (r *GroupRepository) GetByID(ctx context.Context, id uuid.UUID) (domaingroup.Group, error) {
	var m groupModel
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domaingroup.Group{}, fmt.Errorf("group %s: %w", id, domaingroup.ErrNotFound)
		}
		return domaingroup.Group{}, fmt.Errorf("querying group: %w", err)
	}
	return m.toDomain(), nil
}

func (r *GroupRepository) AddMember(ctx context.Context, member domaingroup.Member) error {
	m := toMemberModel(member)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "role"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("upserting group member: %w", err)
	}
	return nil
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID.String(), userID.String()).
		Delete(&memberModel{})
	if res.Error != nil {
		return fmt.Errorf("deleting group member: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s in group %s: %w", userID, groupID, domaingroup.ErrNotMember)
	}
	return nil
}

func (r *GroupRepository) ListMembers(ctx context.Context, groupID uuid.UUID) (domaingroup.Members, error) {
	var rows []memberModel
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID.String()).
		Order("user_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing group members: %w", err)
	}
	members := make(domaingroup.Members, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.toDomain())
	}
	return members, nil
}
