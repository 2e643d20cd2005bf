package lifecycle

import (
	"time"

	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
	"stagelink/internal/store"
)

// RenewalWindow is how long an approved listing stays active, and the
// extension granted by an approved renewal.
const RenewalWindow = 30 * 24 * time.Hour

// applyEffects evaluates an edge's effect list into the field set that gets
// committed. No store mutation happens here.
func applyEffects(edge Edge, rec *store.Record, p principal.Principal, payload map[string]any, now time.Time) (store.FieldSet, error) {
	attrs := map[string]any{}
	for _, effect := range edge.Effects {
		switch effect.Op {
		case OpNow:
			attrs[effect.Field] = now
		case OpActor:
			attrs[effect.Field] = p.UserID.String()
		case OpValue:
			attrs[effect.Field] = effect.Value
		case OpPayload:
			if value, ok := payload[effect.Field]; ok {
				attrs[effect.Field] = value
			}
		case OpTotalHours:
			items, ok := payload["items"]
			if !ok {
				items = rec.Attrs["items"]
			}
			total, err := sumItemHours(items)
			if err != nil {
				return store.FieldSet{}, err
			}
			if items != nil {
				attrs["items"] = items
			}
			attrs["totalHours"] = total
		case OpListingExpiry:
			base := now
			if at, ok := attrTime(payload["publishAt"]); ok {
				base = at
				attrs["publishAt"] = at
			} else if at, ok := attrTime(rec.Attrs["publishAt"]); ok {
				base = at
			} else {
				attrs["publishAt"] = now
			}
			attrs["expiresAt"] = base.Add(RenewalWindow)
		case OpExtendExpiry:
			base := now
			if at, ok := attrTime(rec.Attrs["expiresAt"]); ok && at.After(now) {
				base = at
			}
			attrs["expiresAt"] = base.Add(RenewalWindow)
		}
	}
	to := edge.To
	fields := store.FieldSet{Attrs: attrs}
	if to != rec.State {
		fields.State = &to
	}
	return fields, nil
}

func sumItemHours(items any) (float64, error) {
	if items == nil {
		return 0, nil
	}
	var total float64
	add := func(entry map[string]any) error {
		hours, ok := asNumber(entry["hours"])
		if !ok {
			return common.NewValidationError("invalid timesheet items", map[string]string{"items": "each item requires numeric hours"})
		}
		total += hours
		return nil
	}
	switch list := items.(type) {
	case []map[string]any:
		for _, entry := range list {
			if err := add(entry); err != nil {
				return 0, err
			}
		}
	case []any:
		for _, raw := range list {
			entry, ok := raw.(map[string]any)
			if !ok {
				return 0, common.NewValidationError("invalid timesheet items", map[string]string{"items": "items must be objects"})
			}
			if err := add(entry); err != nil {
				return 0, err
			}
		}
	default:
		return 0, common.NewValidationError("invalid timesheet items", map[string]string{"items": "items must be a list"})
	}
	return total, nil
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// attrTime tolerates both in-process time.Time values and the RFC3339
// strings they become after a round trip through jsonb.
func attrTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339, v)
			if err != nil {
				return time.Time{}, false
			}
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

// AttrTime is attrTime for callers outside the engine (scheduler, services).
func AttrTime(value any) (time.Time, bool) {
	return attrTime(value)
}

// TotalHours sums per-entry hours the same way the submit/edit transitions
// do, for use at creation time.
func TotalHours(items any) (float64, error) {
	return sumItemHours(items)
}
