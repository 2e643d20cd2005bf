package app_test

import (
	"context"
	"testing"

	"stagelink/internal/app"
	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/lifecycle"
	"stagelink/internal/scope"
	"stagelink/internal/store"
	"stagelink/internal/store/memory"
)

type serviceFixture struct {
	store      *memory.Store
	engine     *lifecycle.Engine
	scoper     *scope.Scoper
	dispatcher *recorderDispatcher
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	mem := memory.New()
	engine := lifecycle.NewEngine(mem)
	return &serviceFixture{
		store:      mem,
		engine:     engine,
		scoper:     scope.NewScoper(mem, engine.Guard()),
		dispatcher: &recorderDispatcher{},
	}
}

func (fx *serviceFixture) seedEmployment(t *testing.T, studentID common.UUID) store.Record {
	t.Helper()
	company, err := fx.store.Insert(context.Background(), store.Record{
		Kind: store.KindCompany, State: lifecycle.CompanyApproved, OwnerID: common.NewUUID(),
	})
	if err != nil {
		t.Fatalf("seed company failed: %v", err)
	}
	emp, err := fx.store.Insert(context.Background(), store.Record{
		Kind: store.KindEmployment, State: lifecycle.EmploymentOngoing,
		OwnerID: studentID, CompanyID: company.ID,
		Attrs: map[string]any{"cadence": "biweekly"},
	})
	if err != nil {
		t.Fatalf("seed employment failed: %v", err)
	}
	return *emp
}

func TestTimesheetCreateRequiresEmployment(t *testing.T) {
	fx := newServiceFixture(t)
	service := app.NewTimesheetService(fx.store, fx.engine, fx.scoper, fx.dispatcher)

	student := principal.Principal{UserID: common.NewUUID(), Role: principal.RoleStudent}
	_, err := service.Create(context.Background(), student, map[string]any{})
	if !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation error without employmentId, got %v", err)
	}
}

func TestTimesheetCreateOnlyByEmployedStudent(t *testing.T) {
	fx := newServiceFixture(t)
	service := app.NewTimesheetService(fx.store, fx.engine, fx.scoper, fx.dispatcher)
	studentID := common.NewUUID()
	emp := fx.seedEmployment(t, studentID)

	otherStudent := principal.Principal{UserID: common.NewUUID(), Role: principal.RoleStudent}
	_, err := service.Create(context.Background(), otherStudent, map[string]any{"employmentId": emp.ID.String()})
	if !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden for another student, got %v", err)
	}

	companyCaller := principal.Principal{UserID: common.NewUUID(), Role: principal.RoleCompany}
	_, err = service.Create(context.Background(), companyCaller, map[string]any{"employmentId": emp.ID.String()})
	if !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden for company caller, got %v", err)
	}
}

func TestTimesheetCreateDerivesTotalsAndCadence(t *testing.T) {
	fx := newServiceFixture(t)
	service := app.NewTimesheetService(fx.store, fx.engine, fx.scoper, fx.dispatcher)
	studentID := common.NewUUID()
	emp := fx.seedEmployment(t, studentID)

	student := principal.Principal{UserID: studentID, Role: principal.RoleStudent}
	created, err := service.Create(context.Background(), student, map[string]any{
		"employmentId": emp.ID.String(),
		"items": []any{
			map[string]any{"date": "2026-03-09", "hours": 4.0},
			map[string]any{"date": "2026-03-10", "hours": 6.0},
		},
		// a spoofed total must be ignored in favor of the derived sum
		"totalHours": 99.0,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.State != lifecycle.TimesheetDraft {
		t.Fatalf("expected draft, got %d", created.State)
	}
	if created.Attrs["totalHours"] != 10.0 {
		t.Fatalf("expected derived totalHours 10, got %v", created.Attrs["totalHours"])
	}
	if created.Attrs["cadence"] != "biweekly" {
		t.Fatalf("expected cadence inherited from employment, got %v", created.Attrs["cadence"])
	}
	if created.CompanyID != emp.CompanyID || created.EmploymentID != emp.ID {
		t.Fatalf("expected refs copied from employment, got %+v", created)
	}
}

func TestTimesheetGetDeniesUnrelatedParties(t *testing.T) {
	fx := newServiceFixture(t)
	service := app.NewTimesheetService(fx.store, fx.engine, fx.scoper, fx.dispatcher)
	studentID := common.NewUUID()
	emp := fx.seedEmployment(t, studentID)

	student := principal.Principal{UserID: studentID, Role: principal.RoleStudent}
	created, err := service.Create(context.Background(), student, map[string]any{"employmentId": emp.ID.String()})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := service.Get(context.Background(), student, created.ID); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
	outsider := principal.Principal{UserID: common.NewUUID(), Role: principal.RoleStudent}
	if _, err := service.Get(context.Background(), outsider, created.ID); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden for outsider, got %v", err)
	}
}
