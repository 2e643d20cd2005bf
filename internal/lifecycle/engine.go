// Package lifecycle is the role-gated state machine shared by companies,
// job listings, timesheets and employment records. Transitions are data
// (per-kind tables), authorization is evaluated before the table lookup,
// and side effects come back as an event outbox instead of being fired
// inline.
package lifecycle

import (
	"context"
	"time"

	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/store"
)

// Event is a post-commit notification demand. The dispatcher resolves the
// recipient; Resource is the committed snapshot.
type Event struct {
	Type     string
	Title    string
	Body     string
	To       Recipient
	Resource store.Record
	Data     map[string]any
}

// Result carries the before/after snapshots so callers never need to stash
// pre-state themselves, plus the outbox of events to dispatch after the
// response is sent.
type Result struct {
	Previous store.Record
	Next     store.Record
	Events   []Event
}

type Engine struct {
	store  store.Store
	guard  *Guard
	tables map[store.Kind]*Table
	now    func() time.Time
}

type Option func(*Engine)

// WithClock overrides the commit timestamp source (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		guard:  NewGuard(st),
		tables: Tables(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Guard() *Guard {
	return e.guard
}

// Apply runs one transition: load, authorize, look up the edge, derive
// fields, commit conditionally on the loaded state, and return the outbox.
// Any failure before the commit leaves the store untouched.
func (e *Engine) Apply(ctx context.Context, p principal.Principal, kind store.Kind, id common.UUID, action Action, payload map[string]any) (*Result, error) {
	table, ok := e.tables[kind]
	if !ok {
		return nil, common.NewError(common.CodeInternal, "no transition table for kind "+string(kind), nil)
	}
	rec, err := e.store.FindByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	access, known := table.ActionAccess(action)
	if !known {
		return nil, common.NewError(common.CodeInvalidTransition, "unknown action "+string(action), nil)
	}
	if err := e.guard.Authorize(ctx, p, rec, access); err != nil {
		return nil, err
	}

	edge, ok := table.Edge(rec.State, action)
	if !ok {
		return nil, common.NewError(common.CodeInvalidTransition,
			string(action)+" is not valid in the current state", nil)
	}

	fields, err := applyEffects(edge, rec, p, payload, e.now())
	if err != nil {
		return nil, err
	}

	updated, err := e.store.UpdateFields(ctx, kind, id, rec.State, fields)
	if err != nil {
		return nil, err
	}

	return &Result{
		Previous: *rec,
		Next:     *updated,
		Events:   buildEvents(edge, updated),
	}, nil
}

func buildEvents(edge Edge, updated *store.Record) []Event {
	if len(edge.Events) == 0 {
		return nil
	}
	events := make([]Event, 0, len(edge.Events))
	for _, spec := range edge.Events {
		body := spec.Body
		if spec.BodyAttr != "" {
			if value, ok := updated.Attrs[spec.BodyAttr].(string); ok && value != "" {
				body = value
			}
		}
		events = append(events, Event{
			Type:     spec.Type,
			Title:    spec.Title,
			Body:     body,
			To:       spec.To,
			Resource: updated.Clone(),
			Data: map[string]any{
				"resourceId": updated.ID.String(),
				"kind":       string(updated.Kind),
			},
		})
	}
	return events
}
