package user

import (
	"context"
	"strings"
	"time"

	"staybook/internal/domain/shared/errs"
)

var (
	ErrIDRequired  = errs.New(errs.ErrInvalidInput, "user: id is required")
	ErrInvalidRole = errs.New(errs.ErrInvalidInput, "user: invalid role")
	ErrNotFound    = errs.New(errs.ErrNotFound, "user: not found")
)

type ID string

type Role string

const (
	RoleGuest Role = "guest"
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
)

// User is the directory entry the engine resolves guests and message parties against.
type User struct {
	ID        ID
	Name      string
	Roles     []Role
	CreatedAt time.Time
}

// Directory is the read port onto the external user directory.
type Directory interface {
	ByID(ctx context.Context, id ID) (*User, error)
}

type CreateParams struct {
	ID        ID
	Name      string
	Roles     []Role
	CreatedAt time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	roles, err := normalizeRoles(params.Roles)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		roles = []Role{RoleGuest}
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	return &User{
		ID:        ID(id),
		Name:      strings.TrimSpace(params.Name),
		Roles:     roles,
		CreatedAt: now.UTC(),
	}, nil
}

func (u *User) HasRole(role Role) bool {
	role = normalizeRole(role)
	for _, current := range u.Roles {
		if current == role {
			return true
		}
	}
	return false
}

func normalizeRoles(roles []Role) ([]Role, error) {
	seen := make(map[Role]struct{}, len(roles))
	normalized := make([]Role, 0, len(roles))
	for _, role := range roles {
		r := normalizeRole(role)
		switch r {
		case RoleGuest, RoleOwner, RoleAdmin:
		default:
			return nil, ErrInvalidRole
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		normalized = append(normalized, r)
	}
	return normalized, nil
}

func normalizeRole(role Role) Role {
	switch v := strings.ToLower(strings.TrimSpace(string(role))); v {
	case "host":
		return RoleOwner
	default:
		return Role(v)
	}
}
