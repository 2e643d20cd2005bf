package share

import (
	"context"
	"time"

	"stagelink/internal/common"
)

type Type string

const (
	TypeJob     Type = "job"
	TypeCompany Type = "company"
	TypeUser    Type = "user"
)

func ParseType(value string) (Type, bool) {
	switch Type(value) {
	case TypeJob, TypeCompany, TypeUser:
		return Type(value), true
	default:
		return "", false
	}
}

// Share is a token-addressable read-only view. Payload is the redacted
// snapshot taken at creation; it is never regenerated afterwards.
type Share struct {
	ID         common.UUID    `json:"id"`
	Type       Type           `json:"type"`
	TargetID   common.UUID    `json:"target_id"`
	Token      string         `json:"token"`
	CreatedBy  common.UUID    `json:"created_by"`
	Note       string         `json:"note,omitempty"`
	Payload    map[string]any `json:"payload"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
	DisabledAt *time.Time     `json:"disabled_at,omitempty"`
	Clicks     int            `json:"clicks"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// View is what an unauthenticated token open sees: no target linkage, no
// creator identity.
type View struct {
	Type      Type           `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, s Share) (*Share, error)
	GetByID(ctx context.Context, id common.UUID) (*Share, error)
	GetByToken(ctx context.Context, token string) (*Share, error)
	TokenExists(ctx context.Context, token string) (bool, error)
	// IncrementClicks atomically bumps the counter and reports the value it
	// had before, so first-open stays exactly-once under races.
	IncrementClicks(ctx context.Context, id common.UUID) (int, error)
	// Disable sets disabledAt only if it is not already set (first write
	// wins) and returns the stored record either way.
	Disable(ctx context.Context, id common.UUID, at time.Time) (*Share, error)
	ListByCreator(ctx context.Context, createdBy common.UUID) ([]Share, error)
}
