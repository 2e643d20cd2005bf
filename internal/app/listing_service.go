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

type ListingService struct {
	store      store.Store
	engine     *lifecycle.Engine
	scoper     *scope.Scoper
	dispatcher Dispatcher
}

func NewListingService(st store.Store, engine *lifecycle.Engine, scoper *scope.Scoper, dispatcher Dispatcher) *ListingService {
	return &ListingService{store: st, engine: engine, scoper: scoper, dispatcher: dispatcher}
}

// Create saves a listing as a draft, or straight into pending review when
// submit is set. Companies must be verified first; admins create on behalf
// of a company via the companyId attr.
func (s *ListingService) Create(ctx context.Context, p principal.Principal, attrs map[string]any, submit bool) (*store.Record, error) {
	var companyID common.UUID
	switch p.Role {
	case principal.RoleCompany:
		company, err := s.engine.Guard().CompanyForUser(ctx, p.UserID)
		if err != nil {
			if common.Is(err, common.CodeNotFound) {
				return nil, common.NewError(common.CodeForbidden, "company verification required", nil)
			}
			return nil, err
		}
		if company.State != lifecycle.CompanyApproved {
			return nil, common.NewError(common.CodeForbidden, "company verification required", nil)
		}
		companyID = company.ID
	case principal.RoleAdmin:
		raw := attrString(attrs, "companyId")
		if raw == "" {
			return nil, common.NewValidationError("invalid listing", map[string]string{"companyId": "companyId is required"})
		}
		parsed, err := common.ParseUUID(raw)
		if err != nil {
			return nil, err
		}
		companyID = parsed
	default:
		return nil, common.NewError(common.CodeForbidden, "only companies can create listings", nil)
	}
	if attrString(attrs, "title") == "" {
		return nil, common.NewValidationError("invalid listing", map[string]string{"title": "title is required"})
	}

	merged := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		merged[k] = v
	}
	delete(merged, "companyId")
	state := lifecycle.ListingDraft
	if submit {
		state = lifecycle.ListingPending
		merged["submittedAt"] = time.Now().UTC()
	}
	created, err := s.store.Insert(ctx, store.Record{
		Kind:      store.KindListing,
		State:     state,
		OwnerID:   p.UserID,
		CompanyID: companyID,
		Attrs:     merged,
	})
	if err != nil {
		return nil, err
	}
	if submit {
		s.dispatcher.Dispatch([]lifecycle.Event{{
			Type:     "job_submitted",
			Title:    "New job listing submitted",
			Body:     attrString(merged, "title"),
			To:       lifecycle.RecipientAdmins,
			Resource: *created,
			Data:     map[string]any{"resourceId": created.ID.String(), "kind": string(created.Kind)},
		}})
	}
	return created, nil
}

// Apply runs a lifecycle action (edit, submit, approve, reject, close,
// requestRenewal, approveRenewal, declineRenewal).
func (s *ListingService) Apply(ctx context.Context, p principal.Principal, id common.UUID, action lifecycle.Action, payload map[string]any) (*store.Record, error) {
	return applyAndDispatch(ctx, s.engine, s.dispatcher, p, store.KindListing, id, action, payload)
}

// Get collapses denied access to NotFound: a non-active listing is invisible
// to everyone but its company and admins.
func (s *ListingService) Get(ctx context.Context, p principal.Principal, id common.UUID) (*store.Record, error) {
	rec, err := s.store.FindByID(ctx, store.KindListing, id)
	if err != nil {
		return nil, err
	}
	if rec.State == lifecycle.ListingActive || p.IsAdmin() {
		return rec, nil
	}
	if p.Role == principal.RoleCompany {
		company, err := s.engine.Guard().CompanyForUser(ctx, p.UserID)
		if err == nil && company.ID == rec.CompanyID {
			return rec, nil
		}
	}
	return nil, common.NewError(common.CodeNotFound, "listing not found", nil)
}

func (s *ListingService) List(ctx context.Context, p principal.Principal, q store.Query) ([]store.Record, error) {
	scoped, err := s.scoper.Scope(ctx, p, store.KindListing, q)
	if err != nil {
		return nil, err
	}
	return s.store.Find(ctx, store.KindListing, scoped)
}
