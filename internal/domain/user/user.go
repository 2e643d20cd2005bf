package user

import (
	"context"
	"time"

	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
)

type User struct {
	ID        common.UUID      `json:"id"`
	Email     string           `json:"email"`
	FirstName string           `json:"first_name,omitempty"`
	LastName  string           `json:"last_name,omitempty"`
	Roles     []principal.Role `json:"roles"`
	// Profile carries the public-facing intern attributes shares may
	// snapshot (university, major, graduationYear, skills, avatar, location).
	Profile   map[string]any `json:"profile,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (u User) HasRole(role principal.Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Repository interface {
	Create(ctx context.Context, u User) (*User, error)
	GetByID(ctx context.Context, id common.UUID) (*User, error)
	ListByRole(ctx context.Context, role principal.Role) ([]User, error)
}
