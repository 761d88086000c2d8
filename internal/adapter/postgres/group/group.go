package group

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domaingroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/group"
	portgroup "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/group"
)

var _ portgroup.Repository = (*Repository)(nil)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, g domaingroup.Group) (domaingroup.Group, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO groups (id, name, description, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, name, description, created_by, created_at`,
		g.ID, g.Name, g.Description, g.CreatedBy, g.CreatedAt,
	)

	var out domaingroup.Group
	if err := row.Scan(&out.ID, &out.Name, &out.Description, &out.CreatedBy, &out.CreatedAt); err != nil {
		return domaingroup.Group{}, fmt.Errorf("insert group: %w", err)
	}
	return out, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domaingroup.Group, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_by, created_at FROM groups WHERE id = $1`, id,
	)

	var out domaingroup.Group
	if err := row.Scan(&out.ID, &out.Name, &out.Description, &out.CreatedBy, &out.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domaingroup.Group{}, fmt.Errorf("group %s: %w", id, domaingroup.ErrNotFound)
		}
		return domaingroup.Group{}, fmt.Errorf("get group: %w", err)
	}
	return out, nil
}

func (r *Repository) AddMember(ctx context.Context, m domaingroup.Member) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id, name, role, joined_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (group_id, user_id) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role`,
		m.GroupID, m.UserID, m.Name, string(m.Role), m.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert group member: %w", err)
	}
	return nil
}

func (r *Repository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return fmt.Errorf("delete group member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("member %s of group %s: %w", userID, groupID, domaingroup.ErrNotMember)
	}
	return nil
}

func (r *Repository) ListMembers(ctx context.Context, groupID uuid.UUID) (domaingroup.Members, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT group_id, user_id, name, role, joined_at
		 FROM group_members WHERE group_id = $1
		 ORDER BY user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("listing group members: %w", err)
	}
	defer rows.Close()

	var members domaingroup.Members
	for rows.Next() {
		var (
			m    domaingroup.Member
			role string
		)
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Name, &role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		m.Role = domaingroup.Role(role)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating member rows: %w", err)
	}
	return members, nil
}
