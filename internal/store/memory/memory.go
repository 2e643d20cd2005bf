// Package memory is a mutex-guarded Store used in tests and local runs
// without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"stagelink/internal/common"
	"stagelink/internal/store"
)

type Store struct {
	mu      sync.Mutex
	records map[store.Kind]map[common.UUID]store.Record
}

func New() *Store {
	return &Store{records: make(map[store.Kind]map[common.UUID]store.Record)}
}

func (s *Store) FindByID(ctx context.Context, kind store.Kind, id common.UUID) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[kind][id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, string(kind)+" not found", nil)
	}
	copied := rec.Clone()
	return &copied, nil
}

func (s *Store) Find(ctx context.Context, kind store.Kind, q store.Query) ([]store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []store.Record
	for _, rec := range s.records[kind] {
		if matches(rec, q) {
			items = append(items, rec.Clone())
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if q.Offset > 0 {
		if q.Offset >= len(items) {
			return nil, nil
		}
		items = items[q.Offset:]
	}
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}

func (s *Store) Insert(ctx context.Context, rec store.Record) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID.IsZero() {
		rec.ID = common.NewUUID()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Attrs == nil {
		rec.Attrs = map[string]any{}
	}
	if s.records[rec.Kind] == nil {
		s.records[rec.Kind] = make(map[common.UUID]store.Record)
	}
	s.records[rec.Kind][rec.ID] = rec.Clone()
	copied := rec.Clone()
	return &copied, nil
}

func (s *Store) UpdateFields(ctx context.Context, kind store.Kind, id common.UUID, expectState int, fields store.FieldSet) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[kind][id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, string(kind)+" not found", nil)
	}
	if rec.State != expectState {
		return nil, common.NewError(common.CodeConflict, string(kind)+" was modified concurrently", nil)
	}
	updated := rec.Clone()
	if fields.State != nil {
		updated.State = *fields.State
	}
	for k, v := range fields.Attrs {
		updated.Attrs[k] = v
	}
	updated.UpdatedAt = time.Now().UTC()
	s.records[kind][id] = updated.Clone()
	copied := updated.Clone()
	return &copied, nil
}

func matches(rec store.Record, q store.Query) bool {
	if q.State != nil && rec.State != *q.State {
		return false
	}
	if !q.OwnerID.IsZero() && rec.OwnerID != q.OwnerID {
		return false
	}
	if !q.CompanyID.IsZero() && rec.CompanyID != q.CompanyID {
		return false
	}
	if q.EmploymentIDs != nil {
		found := false
		for _, id := range q.EmploymentIDs {
			if rec.EmploymentID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for field, cutoff := range q.AttrBefore {
		at, ok := attrTime(rec.Attrs[field])
		if !ok || !at.Before(cutoff) {
			return false
		}
	}
	for field, cutoff := range q.AttrAfter {
		at, ok := attrTime(rec.Attrs[field])
		if !ok || !at.After(cutoff) {
			return false
		}
	}
	return true
}

func attrTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}
