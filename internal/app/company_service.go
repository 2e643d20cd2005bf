package app

import (
	"context"
	"time"

	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/lifecycle"
	"stagelink/internal/scope"
	"stagelink/internal/store"
)

type CompanyService struct {
	store      store.Store
	engine     *lifecycle.Engine
	scoper     *scope.Scoper
	dispatcher Dispatcher
}

func NewCompanyService(st store.Store, engine *lifecycle.Engine, scoper *scope.Scoper, dispatcher Dispatcher) *CompanyService {
	return &CompanyService{store: st, engine: engine, scoper: scoper, dispatcher: dispatcher}
}

// Register creates the caller's company in the pending state. One company
// per user.
func (s *CompanyService) Register(ctx context.Context, p principal.Principal, attrs map[string]any) (*store.Record, error) {
	if p.Role != principal.RoleCompany {
		return nil, common.NewError(common.CodeForbidden, "only company users can register a company", nil)
	}
	if attrString(attrs, "name") == "" {
		return nil, common.NewValidationError("invalid company", map[string]string{"name": "name is required"})
	}
	if _, err := s.engine.Guard().CompanyForUser(ctx, p.UserID); err == nil {
		return nil, common.NewError(common.CodeConflict, "company already registered", nil)
	} else if !common.Is(err, common.CodeNotFound) {
		return nil, err
	}
	merged := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		merged[k] = v
	}
	merged["submittedAt"] = time.Now().UTC()
	created, err := s.store.Insert(ctx, store.Record{
		Kind:    store.KindCompany,
		State:   lifecycle.CompanyPending,
		OwnerID: p.UserID,
		Attrs:   merged,
	})
	if err != nil {
		return nil, err
	}
	s.dispatcher.Dispatch([]lifecycle.Event{{
		Type:     "company_submitted",
		Title:    "New company registered",
		Body:     attrString(merged, "name"),
		To:       lifecycle.RecipientAdmins,
		Resource: *created,
		Data:     map[string]any{"resourceId": created.ID.String(), "kind": string(created.Kind)},
	}})
	return created, nil
}

// Apply runs a lifecycle action (approve, reject, reopen).
func (s *CompanyService) Apply(ctx context.Context, p principal.Principal, id common.UUID, action lifecycle.Action, payload map[string]any) (*store.Record, error) {
	return applyAndDispatch(ctx, s.engine, s.dispatcher, p, store.KindCompany, id, action, payload)
}

// Get hides non-approved companies from everyone but the owner and admins:
// they read as absent, not forbidden.
func (s *CompanyService) Get(ctx context.Context, p principal.Principal, id common.UUID) (*store.Record, error) {
	rec, err := s.store.FindByID(ctx, store.KindCompany, id)
	if err != nil {
		return nil, err
	}
	if rec.State == lifecycle.CompanyApproved || p.IsAdmin() || rec.OwnerID == p.UserID {
		return rec, nil
	}
	return nil, common.NewError(common.CodeNotFound, "company not found", nil)
}

// Mine returns the caller's own company record in any state.
func (s *CompanyService) Mine(ctx context.Context, p principal.Principal) (*store.Record, error) {
	if p.Role != principal.RoleCompany {
		return nil, common.NewError(common.CodeForbidden, "only company users have a company profile", nil)
	}
	return s.engine.Guard().CompanyForUser(ctx, p.UserID)
}

func (s *CompanyService) List(ctx context.Context, p principal.Principal, q store.Query) ([]store.Record, error) {
	scoped, err := s.scoper.Scope(ctx, p, store.KindCompany, q)
	if err != nil {
		return nil, err
	}
	return s.store.Find(ctx, store.KindCompany, scoped)
}
