// Package scheduler runs the time-driven transitions: employment starts and
// closures, listing expiry, and expiry reminders. Every sweep acts as the
// system principal so the transition tables stay the single authority on
// what may move.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/lifecycle"
	"stagelink/internal/notify"
	"stagelink/internal/store"
)

const (
	expiryReminderLead     = 7 * 24 * time.Hour
	expiryReminderCooldown = 24 * time.Hour
	sweepBatch             = 200
)

type Scheduler struct {
	store      store.Store
	engine     *lifecycle.Engine
	dispatcher *notify.Dispatcher
	log        *zap.SugaredLogger
	cron       *cron.Cron
	now        func() time.Time
}

func New(st store.Store, engine *lifecycle.Engine, dispatcher *notify.Dispatcher, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		store:      st,
		engine:     engine,
		dispatcher: dispatcher,
		log:        log,
		cron:       cron.New(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("*/5 * * * *", s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Infow("scheduler started", "interval", "5m")
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep runs every due job once. Each item moves independently so one bad
// record cannot stall the rest of the sweep.
func (s *Scheduler) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	now := s.now()

	s.beginDueEmployments(ctx, now)
	s.closeEndedEmployments(ctx, now)
	s.expireListings(ctx, now)
	s.remindExpiringListings(ctx, now)
}

func (s *Scheduler) beginDueEmployments(ctx context.Context, now time.Time) {
	due, err := s.store.Find(ctx, store.KindEmployment, store.Query{
		State:      store.IntState(lifecycle.EmploymentUpcoming),
		AttrBefore: map[string]time.Time{"startDate": now},
		Limit:      sweepBatch,
	})
	if err != nil {
		s.log.Errorw("employment start sweep failed", "error", err)
		return
	}
	for _, rec := range due {
		s.apply(ctx, store.KindEmployment, rec.ID, lifecycle.ActionBegin, nil)
	}
}

func (s *Scheduler) closeEndedEmployments(ctx context.Context, now time.Time) {
	due, err := s.store.Find(ctx, store.KindEmployment, store.Query{
		State:      store.IntState(lifecycle.EmploymentOngoing),
		AttrBefore: map[string]time.Time{"endDate": now},
		Limit:      sweepBatch,
	})
	if err != nil {
		s.log.Errorw("employment closure sweep failed", "error", err)
		return
	}
	for _, rec := range due {
		s.apply(ctx, store.KindEmployment, rec.ID, lifecycle.ActionEnterClosure, nil)
	}
}

func (s *Scheduler) expireListings(ctx context.Context, now time.Time) {
	due, err := s.store.Find(ctx, store.KindListing, store.Query{
		State:      store.IntState(lifecycle.ListingActive),
		AttrBefore: map[string]time.Time{"expiresAt": now},
		Limit:      sweepBatch,
	})
	if err != nil {
		s.log.Errorw("listing expiry sweep failed", "error", err)
		return
	}
	for _, rec := range due {
		s.apply(ctx, store.KindListing, rec.ID, lifecycle.ActionClose, nil)
	}
}

// remindExpiringListings warns the owning company ahead of expiry. The
// reminder timestamp is written outside the transition tables: a reminder is
// bookkeeping, not a state change.
func (s *Scheduler) remindExpiringListings(ctx context.Context, now time.Time) {
	soon, err := s.store.Find(ctx, store.KindListing, store.Query{
		State: store.IntState(lifecycle.ListingActive),
		AttrAfter: map[string]time.Time{
			"expiresAt": now,
		},
		AttrBefore: map[string]time.Time{
			"expiresAt": now.Add(expiryReminderLead),
		},
		Limit: sweepBatch,
	})
	if err != nil {
		s.log.Errorw("listing reminder sweep failed", "error", err)
		return
	}
	for _, rec := range soon {
		if last, ok := lifecycle.AttrTime(rec.Attrs["lastExpiryReminderAt"]); ok && now.Sub(last) < expiryReminderCooldown {
			continue
		}
		if _, err := s.store.UpdateFields(ctx, store.KindListing, rec.ID, rec.State, store.FieldSet{
			Attrs: map[string]any{"lastExpiryReminderAt": now},
		}); err != nil {
			if !common.Is(err, common.CodeConflict) {
				s.log.Errorw("reminder stamp failed", "listing", rec.ID, "error", err)
			}
			continue
		}
		s.notifyExpiring(ctx, rec)
	}
}

func (s *Scheduler) notifyExpiring(ctx context.Context, rec store.Record) {
	company, err := s.store.FindByID(ctx, store.KindCompany, rec.CompanyID)
	if err != nil {
		s.log.Warnw("reminder skipped, company not found", "listing", rec.ID, "error", err)
		return
	}
	title, _ := rec.Attrs["title"].(string)
	s.dispatcher.Enqueue(notify.Delivery{
		RecipientID: company.OwnerID,
		Role:        principal.RoleCompany,
		Type:        "job_expiring",
		Title:       "Job listing expiring soon",
		Body:        title,
		Data: map[string]any{
			"resourceId": rec.ID.String(),
			"kind":       string(store.KindListing),
		},
	})
}

func (s *Scheduler) apply(ctx context.Context, kind store.Kind, id common.UUID, action lifecycle.Action, payload map[string]any) {
	result, err := s.engine.Apply(ctx, principal.System(), kind, id, action, payload)
	if err != nil {
		// A Conflict just means another writer got there first.
		if !common.Is(err, common.CodeConflict) && !common.Is(err, common.CodeInvalidTransition) {
			s.log.Errorw("scheduled transition failed", "kind", kind, "id", id, "action", action, "error", err)
		}
		return
	}
	s.dispatcher.Dispatch(result.Events)
}
