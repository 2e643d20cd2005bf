package lifecycle

import (
	"context"

	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/store"
)

// Guard decides whether a principal may perform an action on a concrete
// record. Derived ownership (company-of-listing, student-of-employment) is
// resolved through the store.
type Guard struct {
	store store.Store
}

func NewGuard(st store.Store) *Guard {
	return &Guard{store: st}
}

// Authorize returns nil when any grant in access matches the principal.
// Anonymous principals are always denied.
func (g *Guard) Authorize(ctx context.Context, p principal.Principal, rec *store.Record, access []Access) error {
	if p.IsAnonymous() {
		return common.NewError(common.CodeForbidden, "authentication required", nil)
	}
	for _, grant := range access {
		if grant.Role != p.Role {
			continue
		}
		ok, err := g.holdsRelation(ctx, p, rec, grant.Relation)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return common.NewError(common.CodeForbidden, "not authorized for this action", nil)
}

func (g *Guard) holdsRelation(ctx context.Context, p principal.Principal, rec *store.Record, rel Relation) (bool, error) {
	switch rel {
	case RelationAny:
		return true, nil
	case RelationOwner:
		return !rec.OwnerID.IsZero() && rec.OwnerID == p.UserID, nil
	case RelationCompanyOwner:
		companyID, err := g.resourceCompany(ctx, rec)
		if err != nil || companyID.IsZero() {
			return false, err
		}
		company, err := g.store.FindByID(ctx, store.KindCompany, companyID)
		if err != nil {
			if common.Is(err, common.CodeNotFound) {
				return false, nil
			}
			return false, err
		}
		return company.OwnerID == p.UserID, nil
	case RelationEmploymentStudent:
		emp, err := g.employment(ctx, rec)
		if err != nil || emp == nil {
			return false, err
		}
		return emp.OwnerID == p.UserID, nil
	default:
		return false, nil
	}
}

// resourceCompany resolves the company a record belongs to. Timesheets hang
// off their employment record; everything else carries the ref directly.
func (g *Guard) resourceCompany(ctx context.Context, rec *store.Record) (common.UUID, error) {
	if rec.Kind == store.KindCompany {
		return rec.ID, nil
	}
	if rec.Kind == store.KindTimesheet {
		emp, err := g.employment(ctx, rec)
		if err != nil || emp == nil {
			return "", err
		}
		return emp.CompanyID, nil
	}
	return rec.CompanyID, nil
}

func (g *Guard) employment(ctx context.Context, rec *store.Record) (*store.Record, error) {
	if rec.Kind == store.KindEmployment {
		return rec, nil
	}
	if rec.EmploymentID.IsZero() {
		return nil, nil
	}
	emp, err := g.store.FindByID(ctx, store.KindEmployment, rec.EmploymentID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return emp, nil
}

// CompanyForUser finds the company record owned by the given user. Shared by
// query scoping and the service layer.
func (g *Guard) CompanyForUser(ctx context.Context, userID common.UUID) (*store.Record, error) {
	companies, err := g.store.Find(ctx, store.KindCompany, store.Query{OwnerID: userID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(companies) == 0 {
		return nil, common.NewError(common.CodeNotFound, "company profile not found", nil)
	}
	company := companies[0]
	return &company, nil
}
