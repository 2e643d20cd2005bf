// Package store defines the document-store contract the lifecycle engine
// mutates through. Single-record updates are atomic; there are no
// cross-record transactions.
package store

import (
	"context"
	"time"

	"stagelink/internal/common"
)

type Kind string

const (
	KindCompany    Kind = "company"
	KindListing    Kind = "job-listing"
	KindTimesheet  Kind = "timesheet"
	KindEmployment Kind = "employment-record"
)

// Record is the envelope shared by every lifecycle-managed resource.
// Scoping and ownership refs are first-class columns; everything
// kind-specific lives in Attrs.
type Record struct {
	ID           common.UUID    `json:"id"`
	Kind         Kind           `json:"kind"`
	State        int            `json:"state"`
	OwnerID      common.UUID    `json:"owner_id,omitempty"`
	CompanyID    common.UUID    `json:"company_id,omitempty"`
	EmploymentID common.UUID    `json:"employment_id,omitempty"`
	Attrs        map[string]any `json:"attrs"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Clone returns a deep-enough copy: the Attrs map is copied one level down,
// which covers every field the engine merges.
func (r Record) Clone() Record {
	attrs := make(map[string]any, len(r.Attrs))
	for k, v := range r.Attrs {
		attrs[k] = v
	}
	r.Attrs = attrs
	return r
}

// Query is the closed filter set. Typed fields keep forced scoping a plain
// assignment: a caller-smuggled value for the same field cannot survive.
type Query struct {
	State         *int
	OwnerID       common.UUID
	CompanyID     common.UUID
	EmploymentIDs []common.UUID
	// AttrBefore / AttrAfter compare timestamp-valued attrs (RFC3339).
	AttrBefore map[string]time.Time
	AttrAfter  map[string]time.Time
	Limit      int
	Offset     int
}

// FieldSet is the merged change committed by a transition: an optional state
// move plus attr upserts. Nil State leaves the state untouched.
type FieldSet struct {
	State *int
	Attrs map[string]any
}

type Store interface {
	FindByID(ctx context.Context, kind Kind, id common.UUID) (*Record, error)
	Find(ctx context.Context, kind Kind, q Query) ([]Record, error)
	Insert(ctx context.Context, rec Record) (*Record, error)
	// UpdateFields commits fields only if the record's current state equals
	// expectState; a stale expectation yields CodeConflict.
	UpdateFields(ctx context.Context, kind Kind, id common.UUID, expectState int, fields FieldSet) (*Record, error)
}

// IntState is a convenience for building state filters.
func IntState(s int) *int { return &s }
