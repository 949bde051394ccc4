// Package docstore defines the contract for the remote document store that
// backs chat sessions, messages, generated videos and user stats. Callers
// above this package must not assume writes succeed; see internal/persist.
package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by GetDocument when no document exists for the id.
var ErrNotFound = errors.New("docstore: document not found")

// Fields is the schemaless body of a document.
type Fields map[string]any

// Document is a stored document together with its store-assigned id.
type Document struct {
	ID     string
	Fields Fields
}

// Filter is a single equality-style constraint on a query.
type Filter struct {
	Field string
	Op    string // "==", "<", ">"
	Value any
}

// Query describes a filtered, ordered, limited read of a collection.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Store is the remote document store client surface used by the core.
// All calls may fail with a generic store error.
type Store interface {
	CreateDocument(ctx context.Context, collection string, fields Fields) (string, error)
	GetDocument(ctx context.Context, collection, id string) (Fields, error)
	SetDocument(ctx context.Context, collection, id string, fields Fields, merge bool) error
	QueryDocuments(ctx context.Context, collection string, q Query) ([]Document, error)
}

// String returns the named field as a string, or "" when absent or not a string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Int returns the named field as an int. JSON decoding yields float64, so
// both numeric representations are accepted.
func (f Fields) Int(key string) int {
	switch v := f[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Time returns the named field as a time.Time. Values round-tripped through
// JSON come back as RFC3339 strings.
func (f Fields) Time(key string) time.Time {
	switch v := f[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Strings returns the named field as a string slice.
func (f Fields) Strings(key string) []string {
	switch v := f[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
