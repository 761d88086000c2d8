package group

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("group not found")
	// ErrForbidden is returned when the acting user lacks the role an operation needs.
	ErrForbidden = errors.New("forbidden")
	ErrNotMember = errors.New("user is not a group member")
)

type Role string

const (
	RoleLeader Role = "leader"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleLeader || r == RoleMember
}

type Group struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func New(name, description string, createdBy uuid.UUID) Group {
	return Group{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	}
}

// Member is a user's membership row in a group. UserID is the identity that tasks
// are assigned to.
type Member struct {
	GroupID  uuid.UUID `json:"group_id"`
	UserID   uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Members is a group roster, ordered by UserID ascending when loaded from storage.
type Members []Member

func (ms Members) Find(userID uuid.UUID) (Member, bool) {
	for _, m := range ms {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

func (ms Members) IsMember(userID uuid.UUID) bool {
	_, ok := ms.Find(userID)
	return ok
}

func (ms Members) IsLeader(userID uuid.UUID) bool {
	m, ok := ms.Find(userID)
	return ok && m.Role == RoleLeader
}

// IDSet returns the roster as a lookup set.
func (ms Members) IDSet() map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ms))
	for _, m := range ms {
		set[m.UserID] = struct{}{}
	}
	return set
}
