// Package notify consumes the lifecycle engine's event outbox. Delivery is
// asynchronous, at-most-once and best-effort: a committed transition is never
// failed or delayed by notification problems.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/domain/user"
	"stagelink/internal/lifecycle"
	"stagelink/internal/store"
)

const (
	queueSize      = 256
	deliverTimeout = 5 * time.Second
)

// Delivery addresses one concrete recipient. Events from the engine carry a
// symbolic Recipient that the dispatcher resolves; shares enqueue deliveries
// directly.
type Delivery struct {
	RecipientID common.UUID
	Role        principal.Role
	Type        string
	Title       string
	Body        string
	Data        map[string]any
}

type Dispatcher struct {
	store    store.Store
	users    user.Repository
	notifier Notifier
	log      *zap.SugaredLogger

	queue chan Delivery
	stop  chan struct{}
	wg    sync.WaitGroup
}

func NewDispatcher(st store.Store, users user.Repository, notifier Notifier, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		store:    st,
		users:    users,
		notifier: notifier,
		log:      log,
		queue:    make(chan Delivery, queueSize),
		stop:     make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case delivery := <-d.queue:
				d.deliver(delivery)
			case <-d.stop:
				for {
					select {
					case delivery := <-d.queue:
						d.deliver(delivery)
					default:
						return
					}
				}
			}
		}
	}()
}

func (d *Dispatcher) Stop() {
	close(d.stop)
	d.wg.Wait()
}

// Dispatch resolves and enqueues the outbox of a committed transition.
// Never blocks: when the queue is full the delivery is dropped, which is the
// documented at-most-once contract.
func (d *Dispatcher) Dispatch(events []lifecycle.Event) {
	for _, event := range events {
		deliveries, err := d.resolve(event)
		if err != nil {
			d.log.Warnw("notification recipient resolution failed", "type", event.Type, "error", err)
			continue
		}
		for _, delivery := range deliveries {
			d.Enqueue(delivery)
		}
	}
}

// Enqueue queues a single prepared delivery (used by shares for the
// first-open ping).
func (d *Dispatcher) Enqueue(delivery Delivery) {
	select {
	case d.queue <- delivery:
	default:
		d.log.Warnw("notification queue full, dropping", "type", delivery.Type)
	}
}

func (d *Dispatcher) deliver(delivery Delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	if err := d.notifier.Notify(ctx, delivery.RecipientID, delivery.Role, delivery.Type, delivery.Title, delivery.Body, delivery.Data); err != nil {
		d.log.Warnw("notification delivery failed", "type", delivery.Type, "recipient", delivery.RecipientID.String(), "error", err)
	}
}

func (d *Dispatcher) resolve(event lifecycle.Event) ([]Delivery, error) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	base := Delivery{Type: event.Type, Title: event.Title, Body: event.Body, Data: event.Data}
	rec := event.Resource

	switch event.To {
	case lifecycle.RecipientOwner:
		if rec.OwnerID.IsZero() {
			return nil, nil
		}
		base.RecipientID = rec.OwnerID
		base.Role = ownerRole(rec.Kind)
		return []Delivery{base}, nil
	case lifecycle.RecipientCompanyOwner:
		ownerID, err := d.companyOwner(ctx, rec)
		if err != nil || ownerID.IsZero() {
			return nil, err
		}
		base.RecipientID = ownerID
		base.Role = principal.RoleCompany
		return []Delivery{base}, nil
	case lifecycle.RecipientEmploymentStudent:
		emp, err := d.employment(ctx, rec)
		if err != nil || emp == nil {
			return nil, err
		}
		base.RecipientID = emp.OwnerID
		base.Role = principal.RoleStudent
		return []Delivery{base}, nil
	case lifecycle.RecipientAdmins:
		admins, err := d.users.ListByRole(ctx, principal.RoleAdmin)
		if err != nil {
			return nil, err
		}
		deliveries := make([]Delivery, 0, len(admins))
		for _, admin := range admins {
			delivery := base
			delivery.RecipientID = admin.ID
			delivery.Role = principal.RoleAdmin
			deliveries = append(deliveries, delivery)
		}
		return deliveries, nil
	default:
		return nil, nil
	}
}

func ownerRole(kind store.Kind) principal.Role {
	switch kind {
	case store.KindCompany, store.KindListing:
		return principal.RoleCompany
	default:
		return principal.RoleStudent
	}
}

func (d *Dispatcher) companyOwner(ctx context.Context, rec store.Record) (common.UUID, error) {
	companyID := rec.CompanyID
	if rec.Kind == store.KindTimesheet {
		emp, err := d.employment(ctx, rec)
		if err != nil || emp == nil {
			return "", err
		}
		companyID = emp.CompanyID
	}
	if companyID.IsZero() {
		return "", nil
	}
	company, err := d.store.FindByID(ctx, store.KindCompany, companyID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return "", nil
		}
		return "", err
	}
	return company.OwnerID, nil
}

func (d *Dispatcher) employment(ctx context.Context, rec store.Record) (*store.Record, error) {
	if rec.Kind == store.KindEmployment {
		return &rec, nil
	}
	if rec.EmploymentID.IsZero() {
		return nil, nil
	}
	emp, err := d.store.FindByID(ctx, store.KindEmployment, rec.EmploymentID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return emp, nil
}
