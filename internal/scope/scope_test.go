package scope_test

import (
	"context"
	"testing"

	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/lifecycle"
	"stagelink/internal/scope"
	"stagelink/internal/store"
	"stagelink/internal/store/memory"
)

func newScoper(t *testing.T) (*scope.Scoper, *memory.Store) {
	t.Helper()
	mem := memory.New()
	return scope.NewScoper(mem, lifecycle.NewGuard(mem)), mem
}

func seedRecord(t *testing.T, st store.Store, rec store.Record) store.Record {
	t.Helper()
	created, err := st.Insert(context.Background(), rec)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return *created
}

func TestAdminQueriesPassThrough(t *testing.T) {
	scoper, _ := newScoper(t)
	q := store.Query{State: store.IntState(lifecycle.ListingDraft), CompanyID: common.NewUUID()}
	scoped, err := scoper.Scope(context.Background(), principal.Principal{UserID: common.NewUUID(), Role: principal.RoleAdmin}, store.KindListing, q)
	if err != nil {
		t.Fatalf("scope failed: %v", err)
	}
	if scoped.State == nil || *scoped.State != lifecycle.ListingDraft || scoped.CompanyID != q.CompanyID {
		t.Fatalf("expected admin filters untouched, got %+v", scoped)
	}
}

func TestStudentListingFiltersAreForced(t *testing.T) {
	scoper, _ := newScoper(t)
	// a smuggled draft-state filter must not survive
	q := store.Query{State: store.IntState(lifecycle.ListingDraft), CompanyID: common.NewUUID(), OwnerID: common.NewUUID()}
	scoped, err := scoper.Scope(context.Background(), principal.Principal{UserID: common.NewUUID(), Role: principal.RoleStudent}, store.KindListing, q)
	if err != nil {
		t.Fatalf("scope failed: %v", err)
	}
	if scoped.State == nil || *scoped.State != lifecycle.ListingActive {
		t.Fatalf("expected forced active state, got %+v", scoped.State)
	}
	if !scoped.CompanyID.IsZero() || !scoped.OwnerID.IsZero() {
		t.Fatalf("expected smuggled refs cleared, got %+v", scoped)
	}
}

func TestCompanySeesOwnListingsInAnyState(t *testing.T) {
	scoper, mem := newScoper(t)
	ownerID := common.NewUUID()
	company := seedRecord(t, mem, store.Record{Kind: store.KindCompany, State: lifecycle.CompanyApproved, OwnerID: ownerID})
	other := seedRecord(t, mem, store.Record{Kind: store.KindCompany, State: lifecycle.CompanyApproved, OwnerID: common.NewUUID()})

	q := store.Query{CompanyID: other.ID}
	scoped, err := scoper.Scope(context.Background(), principal.Principal{UserID: ownerID, Role: principal.RoleCompany}, store.KindListing, q)
	if err != nil {
		t.Fatalf("scope failed: %v", err)
	}
	if scoped.CompanyID != company.ID {
		t.Fatalf("expected own company forced over smuggled id, got %s", scoped.CompanyID)
	}
	if scoped.State != nil {
		t.Fatalf("expected no state restriction for own listings, got %v", *scoped.State)
	}
}

func TestCompanyDirectoryForcedToApproved(t *testing.T) {
	scoper, _ := newScoper(t)
	q := store.Query{State: store.IntState(lifecycle.CompanyPending)}
	scoped, err := scoper.Scope(context.Background(), principal.Anonymous(), store.KindCompany, q)
	if err != nil {
		t.Fatalf("scope failed: %v", err)
	}
	if scoped.State == nil || *scoped.State != lifecycle.CompanyApproved {
		t.Fatalf("expected approved-only directory, got %+v", scoped.State)
	}
}

func TestStudentTimesheetScopeNeverFallsOpen(t *testing.T) {
	scoper, mem := newScoper(t)
	studentID := common.NewUUID()
	// another student's timesheet exists but no employment for the caller
	seedRecord(t, mem, store.Record{
		Kind: store.KindTimesheet, State: lifecycle.TimesheetSubmitted,
		OwnerID: common.NewUUID(), EmploymentID: common.NewUUID(),
	})

	scoped, err := scoper.Scope(context.Background(), principal.Principal{UserID: studentID, Role: principal.RoleStudent}, store.KindTimesheet, store.Query{})
	if err != nil {
		t.Fatalf("scope failed: %v", err)
	}
	if len(scoped.EmploymentIDs) == 0 {
		t.Fatal("expected a non-empty employment filter")
	}
	items, err := mem.Find(context.Background(), store.KindTimesheet, scoped)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty result for student without employments, got %d", len(items))
	}
}

func TestStudentTimesheetScopeMatchesOwnEmployments(t *testing.T) {
	scoper, mem := newScoper(t)
	studentID := common.NewUUID()
	emp := seedRecord(t, mem, store.Record{Kind: store.KindEmployment, State: lifecycle.EmploymentOngoing, OwnerID: studentID})
	mine := seedRecord(t, mem, store.Record{Kind: store.KindTimesheet, State: lifecycle.TimesheetDraft, OwnerID: studentID, EmploymentID: emp.ID})
	seedRecord(t, mem, store.Record{Kind: store.KindTimesheet, State: lifecycle.TimesheetDraft, OwnerID: common.NewUUID(), EmploymentID: common.NewUUID()})

	scoped, err := scoper.Scope(context.Background(), principal.Principal{UserID: studentID, Role: principal.RoleStudent}, store.KindTimesheet, store.Query{})
	if err != nil {
		t.Fatalf("scope failed: %v", err)
	}
	items, err := mem.Find(context.Background(), store.KindTimesheet, scoped)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != mine.ID {
		t.Fatalf("expected only own timesheet, got %+v", items)
	}
}

func TestAnonymousTimesheetAndEmploymentForbidden(t *testing.T) {
	scoper, _ := newScoper(t)
	for _, kind := range []store.Kind{store.KindTimesheet, store.KindEmployment} {
		_, err := scoper.Scope(context.Background(), principal.Anonymous(), kind, store.Query{})
		if !common.Is(err, common.CodeForbidden) {
			t.Fatalf("expected forbidden for anonymous %s query, got %v", kind, err)
		}
	}
}

func TestStudentEmploymentScopeForcedToSelf(t *testing.T) {
	scoper, _ := newScoper(t)
	studentID := common.NewUUID()
	q := store.Query{OwnerID: common.NewUUID(), CompanyID: common.NewUUID()}
	scoped, err := scoper.Scope(context.Background(), principal.Principal{UserID: studentID, Role: principal.RoleStudent}, store.KindEmployment, q)
	if err != nil {
		t.Fatalf("scope failed: %v", err)
	}
	if scoped.OwnerID != studentID || !scoped.CompanyID.IsZero() {
		t.Fatalf("expected owner forced to caller, got %+v", scoped)
	}
}
