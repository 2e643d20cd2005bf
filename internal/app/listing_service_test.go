package app_test

import (
	"context"
	"testing"

	"stagelink/internal/app"
	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/lifecycle"
	"stagelink/internal/store"
)

func TestListingCreateRequiresVerifiedCompany(t *testing.T) {
	fx := newServiceFixture(t)
	service := app.NewListingService(fx.store, fx.engine, fx.scoper, fx.dispatcher)
	ownerID := common.NewUUID()
	caller := principal.Principal{UserID: ownerID, Role: principal.RoleCompany}

	// no company registered at all
	_, err := service.Create(context.Background(), caller, map[string]any{"title": "Intern"}, false)
	if !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden without a company, got %v", err)
	}

	// registered but still pending review
	if _, err := fx.store.Insert(context.Background(), store.Record{
		Kind: store.KindCompany, State: lifecycle.CompanyPending, OwnerID: ownerID,
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	_, err = service.Create(context.Background(), caller, map[string]any{"title": "Intern"}, false)
	if !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden while unverified, got %v", err)
	}
}

func TestListingCreateDraftAndSubmit(t *testing.T) {
	fx := newServiceFixture(t)
	service := app.NewListingService(fx.store, fx.engine, fx.scoper, fx.dispatcher)
	ownerID := common.NewUUID()
	company, err := fx.store.Insert(context.Background(), store.Record{
		Kind: store.KindCompany, State: lifecycle.CompanyApproved, OwnerID: ownerID,
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	caller := principal.Principal{UserID: ownerID, Role: principal.RoleCompany}

	draft, err := service.Create(context.Background(), caller, map[string]any{"title": "Backend intern"}, false)
	if err != nil {
		t.Fatalf("create draft failed: %v", err)
	}
	if draft.State != lifecycle.ListingDraft || draft.CompanyID != company.ID {
		t.Fatalf("expected draft for own company, got %+v", draft)
	}

	submitted, err := service.Create(context.Background(), caller, map[string]any{"title": "Data intern"}, true)
	if err != nil {
		t.Fatalf("create submitted failed: %v", err)
	}
	if submitted.State != lifecycle.ListingPending {
		t.Fatalf("expected pending, got %d", submitted.State)
	}
	if _, ok := lifecycle.AttrTime(submitted.Attrs["submittedAt"]); !ok {
		t.Fatalf("expected submittedAt stamped, got %v", submitted.Attrs["submittedAt"])
	}

	fx.dispatcher.mu.Lock()
	defer fx.dispatcher.mu.Unlock()
	if len(fx.dispatcher.events) != 1 || fx.dispatcher.events[0].Type != "job_submitted" {
		t.Fatalf("expected one job_submitted event for the direct submit, got %+v", fx.dispatcher.events)
	}
}

func TestListingGetHidesDraftsAsNotFound(t *testing.T) {
	fx := newServiceFixture(t)
	service := app.NewListingService(fx.store, fx.engine, fx.scoper, fx.dispatcher)
	ownerID := common.NewUUID()
	company, _ := fx.store.Insert(context.Background(), store.Record{
		Kind: store.KindCompany, State: lifecycle.CompanyApproved, OwnerID: ownerID,
	})
	draft, _ := fx.store.Insert(context.Background(), store.Record{
		Kind: store.KindListing, State: lifecycle.ListingDraft, CompanyID: company.ID,
		Attrs: map[string]any{"title": "Hidden"},
	})

	student := principal.Principal{UserID: common.NewUUID(), Role: principal.RoleStudent}
	if _, err := service.Get(context.Background(), student, draft.ID); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected not found for outsider, got %v", err)
	}

	owner := principal.Principal{UserID: ownerID, Role: principal.RoleCompany}
	if _, err := service.Get(context.Background(), owner, draft.ID); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
}

func TestCompanyRegisterIsOnePerUser(t *testing.T) {
	fx := newServiceFixture(t)
	service := app.NewCompanyService(fx.store, fx.engine, fx.scoper, fx.dispatcher)
	caller := principal.Principal{UserID: common.NewUUID(), Role: principal.RoleCompany}

	first, err := service.Register(context.Background(), caller, map[string]any{"name": "Acme"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if first.State != lifecycle.CompanyPending {
		t.Fatalf("expected pending, got %d", first.State)
	}

	if _, err := service.Register(context.Background(), caller, map[string]any{"name": "Acme Again"}); !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected conflict on second registration, got %v", err)
	}

	student := principal.Principal{UserID: common.NewUUID(), Role: principal.RoleStudent}
	if _, err := service.Register(context.Background(), student, map[string]any{"name": "Nope"}); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden for student, got %v", err)
	}
}
