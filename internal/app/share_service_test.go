package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"stagelink/internal/app"
	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/domain/share"
	"stagelink/internal/domain/user"
	"stagelink/internal/lifecycle"
	"stagelink/internal/notify"
	"stagelink/internal/store"
	"stagelink/internal/store/memory"
)

type fakeShareRepo struct {
	mu      sync.Mutex
	byID    map[common.UUID]*share.Share
	byToken map[string]common.UUID
}

func newFakeShareRepo() *fakeShareRepo {
	return &fakeShareRepo{byID: map[common.UUID]*share.Share{}, byToken: map[string]common.UUID{}}
}

func (r *fakeShareRepo) Create(ctx context.Context, s share.Share) (*share.Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = common.NewUUID()
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	stored := s
	r.byID[s.ID] = &stored
	r.byToken[s.Token] = s.ID
	copied := s
	return &copied, nil
}

func (r *fakeShareRepo) GetByID(ctx context.Context, id common.UUID) (*share.Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "share not found", nil)
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeShareRepo) GetByToken(ctx context.Context, token string) (*share.Share, error) {
	r.mu.Lock()
	id, ok := r.byToken[token]
	r.mu.Unlock()
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "share not found", nil)
	}
	return r.GetByID(ctx, id)
}

func (r *fakeShareRepo) TokenExists(ctx context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byToken[token]
	return ok, nil
}

func (r *fakeShareRepo) IncrementClicks(ctx context.Context, id common.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return 0, common.NewError(common.CodeNotFound, "share not found", nil)
	}
	previous := stored.Clicks
	stored.Clicks++
	return previous, nil
}

func (r *fakeShareRepo) Disable(ctx context.Context, id common.UUID, at time.Time) (*share.Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "share not found", nil)
	}
	if stored.DisabledAt == nil {
		stored.DisabledAt = &at
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeShareRepo) ListByCreator(ctx context.Context, createdBy common.UUID) ([]share.Share, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []share.Share
	for _, stored := range r.byID {
		if stored.CreatedBy == createdBy {
			items = append(items, *stored)
		}
	}
	return items, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[common.UUID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[common.UUID]*user.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, u user.User) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = common.NewUUID()
	}
	stored := u
	r.users[u.ID] = &stored
	return &u, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id common.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "user not found", nil)
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeUserRepo) ListByRole(ctx context.Context, role principal.Role) ([]user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []user.User
	for _, stored := range r.users {
		if stored.HasRole(role) {
			items = append(items, *stored)
		}
	}
	return items, nil
}

// recorderDispatcher captures dispatched events and direct deliveries
// synchronously.
type recorderDispatcher struct {
	mu         sync.Mutex
	events     []lifecycle.Event
	deliveries []notify.Delivery
}

func (d *recorderDispatcher) Dispatch(events []lifecycle.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, events...)
}

func (d *recorderDispatcher) Enqueue(delivery notify.Delivery) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = append(d.deliveries, delivery)
}

func (d *recorderDispatcher) deliveriesOfType(eventType string) []notify.Delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	var matched []notify.Delivery
	for _, delivery := range d.deliveries {
		if delivery.Type == eventType {
			matched = append(matched, delivery)
		}
	}
	return matched
}

type shareFixture struct {
	service    *app.ShareService
	shares     *fakeShareRepo
	users      *fakeUserRepo
	store      *memory.Store
	dispatcher *recorderDispatcher
}

func newShareFixture(t *testing.T) *shareFixture {
	t.Helper()
	mem := memory.New()
	shares := newFakeShareRepo()
	users := newFakeUserRepo()
	dispatcher := &recorderDispatcher{}
	service := app.NewShareService(shares, mem, users, lifecycle.NewGuard(mem), dispatcher, "https://stagelink.example")
	return &shareFixture{service: service, shares: shares, users: users, store: mem, dispatcher: dispatcher}
}

func seedCompany(t *testing.T, mem *memory.Store, ownerID common.UUID, attrs map[string]any) store.Record {
	t.Helper()
	rec, err := mem.Insert(context.Background(), store.Record{
		Kind: store.KindCompany, State: lifecycle.CompanyApproved, OwnerID: ownerID, Attrs: attrs,
	})
	if err != nil {
		t.Fatalf("seed company failed: %v", err)
	}
	return *rec
}

func TestShareSnapshotIsImmutable(t *testing.T) {
	fx := newShareFixture(t)
	ownerID := common.NewUUID()
	company := seedCompany(t, fx.store, ownerID, map[string]any{"name": "Acme Robotics", "industry": "robotics", "vatNumber": "secret"})

	creator := principal.Principal{UserID: ownerID, Role: principal.RoleCompany}
	created, err := fx.service.Create(context.Background(), creator, share.TypeCompany, company.ID, "", nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// mutate the source after the share exists
	_, err = fx.store.UpdateFields(context.Background(), store.KindCompany, company.ID, lifecycle.CompanyApproved,
		store.FieldSet{Attrs: map[string]any{"name": "Renamed Corp"}})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	view, err := fx.service.ResolveToken(context.Background(), created.Token)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if view.Payload["name"] != "Acme Robotics" {
		t.Fatalf("expected frozen snapshot, got %v", view.Payload["name"])
	}
	if _, ok := view.Payload["vatNumber"]; ok {
		t.Fatal("expected non-whitelisted attrs to be redacted")
	}
}

func TestShareCreateRequiresOwnership(t *testing.T) {
	fx := newShareFixture(t)
	company := seedCompany(t, fx.store, common.NewUUID(), map[string]any{"name": "Acme"})

	outsider := principal.Principal{UserID: common.NewUUID(), Role: principal.RoleCompany}
	_, err := fx.service.Create(context.Background(), outsider, share.TypeCompany, company.ID, "", nil)
	if !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	student := principal.Principal{UserID: common.NewUUID(), Role: principal.RoleStudent}
	target, _ := fx.users.Create(context.Background(), user.User{Roles: []principal.Role{principal.RoleStudent}})
	_, err = fx.service.Create(context.Background(), student, share.TypeUser, target.ID, "", nil)
	if !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden sharing another user's profile, got %v", err)
	}
}

func TestUserShareRedactsProfile(t *testing.T) {
	fx := newShareFixture(t)
	target, _ := fx.users.Create(context.Background(), user.User{
		Email:     "intern@example.com",
		FirstName: "Dana",
		LastName:  "Kim",
		Roles:     []principal.Role{principal.RoleStudent},
		Profile: map[string]any{
			"university": "TU Delft",
			"phone":      "+31000000000",
		},
	})

	creator := principal.Principal{UserID: target.ID, Role: principal.RoleStudent}
	created, err := fx.service.Create(context.Background(), creator, share.TypeUser, target.ID, "", nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	view, err := fx.service.ResolveToken(context.Background(), created.Token)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if view.Payload["firstName"] != "Dana" || view.Payload["university"] != "TU Delft" {
		t.Fatalf("expected public profile fields, got %+v", view.Payload)
	}
	for _, hidden := range []string{"email", "phone"} {
		if _, ok := view.Payload[hidden]; ok {
			t.Fatalf("expected %s redacted", hidden)
		}
	}
}

func TestExpiredShareIsGoneAndUncounted(t *testing.T) {
	fx := newShareFixture(t)
	ownerID := common.NewUUID()
	company := seedCompany(t, fx.store, ownerID, map[string]any{"name": "Acme"})
	expired := time.Now().UTC().Add(-time.Hour)

	creator := principal.Principal{UserID: ownerID, Role: principal.RoleCompany}
	created, err := fx.service.Create(context.Background(), creator, share.TypeCompany, company.ID, "", &expired)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := fx.service.ResolveToken(context.Background(), created.Token); !common.Is(err, common.CodeGone) {
		t.Fatalf("expected gone, got %v", err)
	}
	stored, _ := fx.shares.GetByID(context.Background(), created.ID)
	if stored.Clicks != 0 {
		t.Fatalf("expected no click recorded for expired link, got %d", stored.Clicks)
	}
}

func TestFirstOpenNotifiesExactlyOnce(t *testing.T) {
	fx := newShareFixture(t)
	ownerID := common.NewUUID()
	if _, err := fx.users.Create(context.Background(), user.User{ID: ownerID, Roles: []principal.Role{principal.RoleCompany}}); err != nil {
		t.Fatalf("seed user failed: %v", err)
	}
	company := seedCompany(t, fx.store, ownerID, map[string]any{"name": "Acme"})

	creator := principal.Principal{UserID: ownerID, Role: principal.RoleCompany}
	created, err := fx.service.Create(context.Background(), creator, share.TypeCompany, company.ID, "", nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := fx.service.ResolveToken(context.Background(), created.Token); err != nil {
			t.Fatalf("resolve %d failed: %v", i, err)
		}
	}

	opened := fx.dispatcher.deliveriesOfType("share_opened")
	if len(opened) != 1 {
		t.Fatalf("expected exactly one first-open notification, got %d", len(opened))
	}
	if opened[0].RecipientID != ownerID {
		t.Fatalf("expected creator notified, got %s", opened[0].RecipientID)
	}
	stored, _ := fx.shares.GetByID(context.Background(), created.ID)
	if stored.Clicks != 3 {
		t.Fatalf("expected 3 clicks, got %d", stored.Clicks)
	}
}

func TestDisableIsFirstWriteWinsAndGone(t *testing.T) {
	fx := newShareFixture(t)
	ownerID := common.NewUUID()
	company := seedCompany(t, fx.store, ownerID, map[string]any{"name": "Acme"})

	creator := principal.Principal{UserID: ownerID, Role: principal.RoleCompany}
	created, err := fx.service.Create(context.Background(), creator, share.TypeCompany, company.ID, "", nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	first, err := fx.service.Disable(context.Background(), creator, created.ID)
	if err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	second, err := fx.service.Disable(context.Background(), creator, created.ID)
	if err != nil {
		t.Fatalf("second disable failed: %v", err)
	}
	if first.DisabledAt == nil || second.DisabledAt == nil || !first.DisabledAt.Equal(*second.DisabledAt) {
		t.Fatalf("expected disabledAt to keep the first timestamp, got %v then %v", first.DisabledAt, second.DisabledAt)
	}

	if _, err := fx.service.ResolveToken(context.Background(), created.Token); !common.Is(err, common.CodeGone) {
		t.Fatalf("expected gone after disable, got %v", err)
	}

	// only creator or admin may disable
	outsider := principal.Principal{UserID: common.NewUUID(), Role: principal.RoleCompany}
	if _, err := fx.service.Disable(context.Background(), outsider, created.ID); !common.Is(err, common.CodeForbidden) {
		t.Fatalf("expected forbidden for outsider, got %v", err)
	}
}
