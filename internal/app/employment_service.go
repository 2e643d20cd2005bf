package app

import (
	"context"

	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/lifecycle"
	"stagelink/internal/scope"
	"stagelink/internal/store"
)

type EmploymentService struct {
	store      store.Store
	engine     *lifecycle.Engine
	scoper     *scope.Scoper
	dispatcher Dispatcher
}

func NewEmploymentService(st store.Store, engine *lifecycle.Engine, scoper *scope.Scoper, dispatcher Dispatcher) *EmploymentService {
	return &EmploymentService{store: st, engine: engine, scoper: scoper, dispatcher: dispatcher}
}

// Create opens an upcoming employment record for a student. Companies create
// under their own company; admins name one via companyId.
func (s *EmploymentService) Create(ctx context.Context, p principal.Principal, payload map[string]any) (*store.Record, error) {
	rawUser := attrString(payload, "userId")
	if rawUser == "" {
		return nil, common.NewValidationError("invalid employment record", map[string]string{"userId": "userId is required"})
	}
	studentID, err := common.ParseUUID(rawUser)
	if err != nil {
		return nil, err
	}

	var companyID common.UUID
	switch p.Role {
	case principal.RoleCompany:
		company, err := s.engine.Guard().CompanyForUser(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		companyID = company.ID
	case principal.RoleAdmin:
		raw := attrString(payload, "companyId")
		if raw == "" {
			return nil, common.NewValidationError("invalid employment record", map[string]string{"companyId": "companyId is required"})
		}
		companyID, err = common.ParseUUID(raw)
		if err != nil {
			return nil, err
		}
	default:
		return nil, common.NewError(common.CodeForbidden, "only companies or admins create employment records", nil)
	}

	attrs := map[string]any{}
	for _, field := range []string{"startDate", "endDate", "cadence", "jobListingId", "applicationId", "requiredDocs"} {
		if value, ok := payload[field]; ok {
			attrs[field] = value
		}
	}
	if attrString(attrs, "cadence") == "" {
		attrs["cadence"] = "weekly"
	}
	return s.store.Insert(ctx, store.Record{
		Kind:      store.KindEmployment,
		State:     lifecycle.EmploymentUpcoming,
		OwnerID:   studentID,
		CompanyID: companyID,
		Attrs:     attrs,
	})
}

// Apply runs a lifecycle action (begin, enterClosure, complete, terminate).
func (s *EmploymentService) Apply(ctx context.Context, p principal.Principal, id common.UUID, action lifecycle.Action, payload map[string]any) (*store.Record, error) {
	return applyAndDispatch(ctx, s.engine, s.dispatcher, p, store.KindEmployment, id, action, payload)
}

func (s *EmploymentService) Get(ctx context.Context, p principal.Principal, id common.UUID) (*store.Record, error) {
	rec, err := s.store.FindByID(ctx, store.KindEmployment, id)
	if err != nil {
		return nil, err
	}
	if p.IsAdmin() || rec.OwnerID == p.UserID {
		return rec, nil
	}
	if p.Role == principal.RoleCompany {
		company, err := s.engine.Guard().CompanyForUser(ctx, p.UserID)
		if err == nil && company.ID == rec.CompanyID {
			return rec, nil
		}
	}
	return nil, common.NewError(common.CodeForbidden, "not authorized to view this employment record", nil)
}

func (s *EmploymentService) List(ctx context.Context, p principal.Principal, q store.Query) ([]store.Record, error) {
	scoped, err := s.scoper.Scope(ctx, p, store.KindEmployment, q)
	if err != nil {
		return nil, err
	}
	return s.store.Find(ctx, store.KindEmployment, scoped)
}
