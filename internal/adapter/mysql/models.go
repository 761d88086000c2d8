package mysql

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainassignment "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/assignment"
	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	domaintask "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/task"
)

type groupModel struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Name        string    `gorm:"size:255;not null"`
	Description string    `gorm:"type:text"`
	CreatedBy   string    `gorm:"size:36;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (groupModel) TableName() string { return "groups" }

type memberModel struct {
	GroupID  string    `gorm:"primaryKey;size:36"`
	UserID   string    `gorm:"primaryKey;size:36"`
	Name     string    `gorm:"size:255"`
	Role     string    `gorm:"type:enum('leader','member');default:'member'"`
	JoinedAt time.Time `gorm:"autoCreateTime"`
}

func (memberModel) TableName() string { return "group_members" }

type assignmentModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	GroupID     string `gorm:"size:36;not null;index"`
	Title       string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	DueDate     *time.Time
	CreatedBy   string    `gorm:"size:36;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (assignmentModel) TableName() string { return "assignments" }

type taskModel struct {
	ID             string  `gorm:"primaryKey;size:36"`
	AssignmentID   string  `gorm:"size:36;not null;index:idx_tasks_assignment,priority:1"`
	Title          string  `gorm:"size:255;not null"`
	Description    string  `gorm:"type:text"`
	EffortHours    int     `gorm:"not null"`
	Importance     *int    `gorm:""`
	AssignedUserID *string `gorm:"size:36;index"`
	Priority       string  `gorm:"type:enum('low','medium','high');default:'medium'"`
	Status         string  `gorm:"type:enum('pending','in_progress','completed');default:'pending'"`
	OrderIndex     int     `gorm:"not null;default:0;index:idx_tasks_assignment,priority:2"`
	CreatedBy      string  `gorm:"size:36;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (taskModel) TableName() string { return "tasks" }

func toGroupModel(g domaingroup.Group) groupModel {
	return groupModel{
		ID:          g.ID.String(),
		Name:        g.Name,
		Description: g.Description,
		CreatedBy:   g.CreatedBy.String(),
		CreatedAt:   g.CreatedAt,
	}
}

func (m groupModel) toDomain() domaingroup.Group {
	return domaingroup.Group{
		ID:          parseID(m.ID),
		Name:        m.Name,
		Description: m.Description,
		CreatedBy:   parseID(m.CreatedBy),
		CreatedAt:   m.CreatedAt,
	}
}

func toMemberModel(m domaingroup.Member) memberModel {
	return memberModel{
		GroupID:  m.GroupID.String(),
		UserID:   m.UserID.String(),
		Name:     m.Name,
		Role:     string(m.Role),
		JoinedAt: m.JoinedAt,
	}
}

func (m memberModel) toDomain() domaingroup.Member {
	return domaingroup.Member{
		GroupID:  parseID(m.GroupID),
		UserID:   parseID(m.UserID),
		Name:     m.Name,
		Role:     domaingroup.Role(m.Role),
		JoinedAt: m.JoinedAt,
	}
}

func toAssignmentModel(a domainassignment.Assignment) assignmentModel {
	return assignmentModel{
		ID:          a.ID.String(),
		GroupID:     a.GroupID.String(),
		Title:       a.Title,
		Description: a.Description,
		DueDate:     a.DueDate,
		CreatedBy:   a.CreatedBy.String(),
		CreatedAt:   a.CreatedAt,
	}
}

func (m assignmentModel) toDomain() domainassignment.Assignment {
	return domainassignment.Assignment{
		ID:          parseID(m.ID),
		GroupID:     parseID(m.GroupID),
		Title:       m.Title,
		Description: m.Description,
		DueDate:     m.DueDate,
		CreatedBy:   parseID(m.CreatedBy),
		CreatedAt:   m.CreatedAt,
	}
}

func toTaskModel(t domaintask.Task) taskModel {
	m := taskModel{
		ID:           t.ID.String(),
		AssignmentID: t.AssignmentID.String(),
		Title:        t.Title,
		Description:  t.Description,
		EffortHours:  t.EffortHours,
		Importance:   t.Importance,
		Priority:     string(t.Priority),
		Status:       string(t.Status),
		OrderIndex:   t.OrderIndex,
		CreatedBy:    t.CreatedBy.String(),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if t.AssignedUserID != nil {
		s := t.AssignedUserID.String()
		m.AssignedUserID = &s
	}
	return m
}

func (m taskModel) toDomain() domaintask.Task {
	t := domaintask.Task{
		ID:           parseID(m.ID),
		AssignmentID: parseID(m.AssignmentID),
		Title:        m.Title,
		Description:  m.Description,
		EffortHours:  m.EffortHours,
		Importance:   m.Importance,
		Priority:     domaintask.Priority(m.Priority),
		Status:       domaintask.Status(m.Status),
		OrderIndex:   m.OrderIndex,
		CreatedBy:    parseID(m.CreatedBy),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.AssignedUserID != nil {
		if id, err := uuid.Parse(*m.AssignedUserID); err == nil {
			t.AssignedUserID = &id
		}
	}
	return t
}

func parseID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}
