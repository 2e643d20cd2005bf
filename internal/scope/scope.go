// Package scope rewrites list/read queries before they reach the store, so
// a caller can never widen its view by smuggling filter values.
package scope

import (
	"context"

	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/lifecycle"
	"stagelink/internal/store"
)

type Scoper struct {
	store store.Store
	guard *lifecycle.Guard
}

func NewScoper(st store.Store, guard *lifecycle.Guard) *Scoper {
	return &Scoper{store: st, guard: guard}
}

// Scope forces the role-appropriate narrowing onto q. Forced fields always
// overwrite whatever the caller supplied; admin (and the in-process system
// principal) queries pass through untouched.
func (s *Scoper) Scope(ctx context.Context, p principal.Principal, kind store.Kind, q store.Query) (store.Query, error) {
	if p.Role == principal.RoleAdmin || p.Role == principal.RoleSystem {
		return q, nil
	}
	switch kind {
	case store.KindCompany:
		// the public directory shows approved companies only; a company
		// reaches its own record by id
		q.State = store.IntState(lifecycle.CompanyApproved)
	case store.KindListing:
		if p.Role == principal.RoleCompany {
			company, err := s.guard.CompanyForUser(ctx, p.UserID)
			if err != nil {
				return store.Query{}, err
			}
			q.CompanyID = company.ID
			q.State = nil
		} else {
			q.State = store.IntState(lifecycle.ListingActive)
			q.CompanyID = ""
			q.OwnerID = ""
		}
	case store.KindTimesheet:
		switch p.Role {
		case principal.RoleStudent:
			ids, err := s.employmentIDs(ctx, store.Query{OwnerID: p.UserID})
			if err != nil {
				return store.Query{}, err
			}
			q.EmploymentIDs = ids
			q.OwnerID = ""
		case principal.RoleCompany:
			company, err := s.guard.CompanyForUser(ctx, p.UserID)
			if err != nil {
				return store.Query{}, err
			}
			ids, err := s.employmentIDs(ctx, store.Query{CompanyID: company.ID})
			if err != nil {
				return store.Query{}, err
			}
			q.EmploymentIDs = ids
			q.CompanyID = ""
		default:
			return store.Query{}, common.NewError(common.CodeForbidden, "timesheets require authentication", nil)
		}
	case store.KindEmployment:
		switch p.Role {
		case principal.RoleStudent:
			q.OwnerID = p.UserID
			q.CompanyID = ""
		case principal.RoleCompany:
			company, err := s.guard.CompanyForUser(ctx, p.UserID)
			if err != nil {
				return store.Query{}, err
			}
			q.CompanyID = company.ID
			q.OwnerID = ""
		default:
			return store.Query{}, common.NewError(common.CodeForbidden, "employment records require authentication", nil)
		}
	}
	return q, nil
}

func (s *Scoper) employmentIDs(ctx context.Context, q store.Query) ([]common.UUID, error) {
	records, err := s.store.Find(ctx, store.KindEmployment, q)
	if err != nil {
		return nil, err
	}
	ids := make([]common.UUID, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	if len(ids) == 0 {
		// an impossible filter, so an empty scope never falls open
		ids = []common.UUID{common.UUID("00000000-0000-0000-0000-000000000000")}
	}
	return ids, nil
}
