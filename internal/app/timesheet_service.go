package app

import (
	"context"

	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/lifecycle"
	"stagelink/internal/scope"
	"stagelink/internal/store"
)

type TimesheetService struct {
	store      store.Store
	engine     *lifecycle.Engine
	scoper     *scope.Scoper
	dispatcher Dispatcher
}

func NewTimesheetService(st store.Store, engine *lifecycle.Engine, scoper *scope.Scoper, dispatcher Dispatcher) *TimesheetService {
	return &TimesheetService{store: st, engine: engine, scoper: scoper, dispatcher: dispatcher}
}

// Create opens a draft timesheet against the caller's own employment.
// totalHours is derived, never accepted from the payload.
func (s *TimesheetService) Create(ctx context.Context, p principal.Principal, payload map[string]any) (*store.Record, error) {
	raw := attrString(payload, "employmentId")
	if raw == "" {
		return nil, common.NewValidationError("invalid timesheet", map[string]string{"employmentId": "employmentId is required"})
	}
	employmentID, err := common.ParseUUID(raw)
	if err != nil {
		return nil, err
	}
	emp, err := s.store.FindByID(ctx, store.KindEmployment, employmentID)
	if err != nil {
		return nil, err
	}
	if p.Role != principal.RoleStudent || emp.OwnerID != p.UserID {
		return nil, common.NewError(common.CodeForbidden, "only the student can create timesheets", nil)
	}
	total, err := lifecycle.TotalHours(payload["items"])
	if err != nil {
		return nil, err
	}
	cadence := attrString(emp.Attrs, "cadence")
	if cadence == "" {
		cadence = "weekly"
	}
	attrs := map[string]any{
		"items":      payload["items"],
		"totalHours": total,
		"cadence":    cadence,
	}
	for _, field := range []string{"periodStart", "periodEnd"} {
		if value, ok := payload[field]; ok {
			attrs[field] = value
		}
	}
	return s.store.Insert(ctx, store.Record{
		Kind:         store.KindTimesheet,
		State:        lifecycle.TimesheetDraft,
		OwnerID:      p.UserID,
		CompanyID:    emp.CompanyID,
		EmploymentID: employmentID,
		Attrs:        attrs,
	})
}

// Apply runs a lifecycle action (edit, submit, withdraw, approve, reject).
func (s *TimesheetService) Apply(ctx context.Context, p principal.Principal, id common.UUID, action lifecycle.Action, payload map[string]any) (*store.Record, error) {
	return applyAndDispatch(ctx, s.engine, s.dispatcher, p, store.KindTimesheet, id, action, payload)
}

// Get is limited to the timesheet's student, the employing company's owner
// and admins. Existence is already implied for these parties, so denial is
// Forbidden rather than NotFound.
func (s *TimesheetService) Get(ctx context.Context, p principal.Principal, id common.UUID) (*store.Record, error) {
	rec, err := s.store.FindByID(ctx, store.KindTimesheet, id)
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
	return nil, common.NewError(common.CodeForbidden, "not authorized to view this timesheet", nil)
}

func (s *TimesheetService) List(ctx context.Context, p principal.Principal, q store.Query) ([]store.Record, error) {
	scoped, err := s.scoper.Scope(ctx, p, store.KindTimesheet, q)
	if err != nil {
		return nil, err
	}
	return s.store.Find(ctx, store.KindTimesheet, scoped)
}
