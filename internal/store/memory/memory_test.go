package memory

import (
	"context"
	"testing"
	"time"

	"stagelink/internal/common"
	"stagelink/internal/store"
)

func mustInsert(t *testing.T, s *Store, rec store.Record) *store.Record {
	t.Helper()
	saved, err := s.Insert(context.Background(), rec)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	return saved
}

func TestFindFiltersByStateAndOwner(t *testing.T) {
	s := New()
	owner := common.NewUUID()
	other := common.NewUUID()
	mustInsert(t, s, store.Record{Kind: store.KindListing, OwnerID: owner, State: 2})
	mustInsert(t, s, store.Record{Kind: store.KindListing, OwnerID: owner, State: 0})
	mustInsert(t, s, store.Record{Kind: store.KindListing, OwnerID: other, State: 2})

	active := 2
	items, err := s.Find(context.Background(), store.KindListing, store.Query{State: &active, OwnerID: owner})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 record, got %d", len(items))
	}
	if items[0].OwnerID != owner || items[0].State != 2 {
		t.Fatalf("unexpected record %+v", items[0])
	}
}

func TestFindEmploymentScopeMatchesAnyID(t *testing.T) {
	s := New()
	empA := common.NewUUID()
	empB := common.NewUUID()
	mustInsert(t, s, store.Record{Kind: store.KindTimesheet, EmploymentID: empA})
	mustInsert(t, s, store.Record{Kind: store.KindTimesheet, EmploymentID: empB})
	mustInsert(t, s, store.Record{Kind: store.KindTimesheet, EmploymentID: common.NewUUID()})

	items, err := s.Find(context.Background(), store.KindTimesheet, store.Query{
		EmploymentIDs: []common.UUID{empA, empB},
	})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 records, got %d", len(items))
	}
}

func TestFindAttrTimeWindows(t *testing.T) {
	s := New()
	now := time.Now().UTC()
	mustInsert(t, s, store.Record{
		Kind:  store.KindListing,
		Attrs: map[string]any{"expiresAt": now.Add(24 * time.Hour).Format(time.RFC3339Nano)},
	})
	mustInsert(t, s, store.Record{
		Kind:  store.KindListing,
		Attrs: map[string]any{"expiresAt": now.Add(30 * 24 * time.Hour).Format(time.RFC3339Nano)},
	})
	mustInsert(t, s, store.Record{Kind: store.KindListing, Attrs: map[string]any{}})

	items, err := s.Find(context.Background(), store.KindListing, store.Query{
		AttrAfter:  map[string]time.Time{"expiresAt": now},
		AttrBefore: map[string]time.Time{"expiresAt": now.Add(7 * 24 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 record in the window, got %d", len(items))
	}
}

func TestUpdateFieldsMergesAttrs(t *testing.T) {
	s := New()
	rec := mustInsert(t, s, store.Record{
		Kind:  store.KindCompany,
		State: 0,
		Attrs: map[string]any{"name": "Acme", "industry": "robotics"},
	})

	approved := 1
	updated, err := s.UpdateFields(context.Background(), store.KindCompany, rec.ID, 0, store.FieldSet{
		State: &approved,
		Attrs: map[string]any{"industry": "logistics"},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.State != 1 {
		t.Fatalf("expected state 1, got %d", updated.State)
	}
	if updated.Attrs["name"] != "Acme" || updated.Attrs["industry"] != "logistics" {
		t.Fatalf("expected merged attrs, got %+v", updated.Attrs)
	}
}

func TestUpdateFieldsStaleStateConflicts(t *testing.T) {
	s := New()
	rec := mustInsert(t, s, store.Record{Kind: store.KindCompany, State: 1})

	rejected := 2
	_, err := s.UpdateFields(context.Background(), store.KindCompany, rec.ID, 0, store.FieldSet{State: &rejected})
	if !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	current, err := s.FindByID(context.Background(), store.KindCompany, rec.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if current.State != 1 {
		t.Fatalf("expected state unchanged, got %d", current.State)
	}
}

func TestFindByIDReturnsCopies(t *testing.T) {
	s := New()
	rec := mustInsert(t, s, store.Record{Kind: store.KindCompany, Attrs: map[string]any{"name": "Acme"}})

	loaded, err := s.FindByID(context.Background(), store.KindCompany, rec.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	loaded.Attrs["name"] = "mutated"

	again, err := s.FindByID(context.Background(), store.KindCompany, rec.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if again.Attrs["name"] != "Acme" {
		t.Fatalf("expected stored record untouched, got %v", again.Attrs["name"])
	}
}
