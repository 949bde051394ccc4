package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store used for local development and tests.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Fields
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]Fields)}
}

func (m *Memory) coll(name string) map[string]Fields {
	c, ok := m.collections[name]
	if !ok {
		c = make(map[string]Fields)
		m.collections[name] = c
	}
	return c
}

func cloneFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (m *Memory) CreateDocument(_ context.Context, collection string, fields Fields) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.coll(collection)[id] = cloneFields(fields)
	return id, nil
}

func (m *Memory) GetDocument(_ context.Context, collection, id string) (Fields, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.coll(collection)[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneFields(f), nil
}

func (m *Memory) SetDocument(_ context.Context, collection, id string, fields Fields, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.coll(collection)
	if !merge {
		c[id] = cloneFields(fields)
		return nil
	}
	existing, ok := c[id]
	if !ok {
		existing = make(Fields)
		c[id] = existing
	}
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}

func (m *Memory) QueryDocuments(_ context.Context, collection string, q Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Document
	for id, f := range m.coll(collection) {
		if matches(f, q.Filters) {
			out = append(out, Document{ID: id, Fields: cloneFields(f)})
		}
	}

	if q.OrderBy != "" {
		sort.Slice(out, func(i, j int) bool {
			less := fieldLess(out[i].Fields, out[j].Fields, q.OrderBy)
			if q.Desc {
				return !less
			}
			return less
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matches(f Fields, filters []Filter) bool {
	for _, flt := range filters {
		switch flt.Op {
		case "", "==":
			if f[flt.Field] != flt.Value {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func fieldLess(a, b Fields, key string) bool {
	av, bv := a[key], b[key]
	switch x := av.(type) {
	case time.Time:
		if y, ok := bv.(time.Time); ok {
			return x.Before(y)
		}
	case string:
		if y, ok := bv.(string); ok {
			return x < y
		}
	case int:
		if y, ok := bv.(int); ok {
			return x < y
		}
	case float64:
		if y, ok := bv.(float64); ok {
			return x < y
		}
	}
	return false
}
