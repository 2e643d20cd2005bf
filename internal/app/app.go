// Package app wires the lifecycle engine, query scoping and the notification
// dispatcher into the per-resource services the HTTP layer calls.
package app

import (
	"context"

	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/lifecycle"
	"stagelink/internal/notify"
	"stagelink/internal/store"
)

// Dispatcher is the slice of notify.Dispatcher the services need; tests
// substitute a recorder.
type Dispatcher interface {
	Dispatch(events []lifecycle.Event)
	Enqueue(delivery notify.Delivery)
}

func applyAndDispatch(ctx context.Context, engine *lifecycle.Engine, dispatcher Dispatcher, p principal.Principal, kind store.Kind, id common.UUID, action lifecycle.Action, payload map[string]any) (*store.Record, error) {
	result, err := engine.Apply(ctx, p, kind, id, action, payload)
	if err != nil {
		return nil, err
	}
	dispatcher.Dispatch(result.Events)
	return &result.Next, nil
}

func attrString(attrs map[string]any, field string) string {
	value, _ := attrs[field].(string)
	return value
}
