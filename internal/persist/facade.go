// Package persist mediates every read and write to the remote document store.
// Remote failures never cross this boundary: writes degrade to locally
// synthesized fallback ids, merges degrade to no-ops, reads degrade to empty
// results. Persistence is advisory, not load-bearing, for the calling flow.
package persist

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/edustack/edustack/internal/docstore"
	"github.com/pkg/errors"
)

const (
	// FallbackPrefix marks locally synthesized ids. Ids carrying it were
	// never acknowledged by the remote store and must never be sent back
	// to it as document ids.
	FallbackPrefix = "local-"

	// FallbackMessagePrefix is the fallback prefix for chat messages.
	FallbackMessagePrefix = "local-msg-"
)

// ErrFallbackID is recorded on results of operations that were skipped
// because they addressed a fallback id.
var ErrFallbackID = errors.New("persist: operation addressed a fallback id")

// IsFallbackID reports whether id was synthesized locally rather than
// assigned by the remote store.
func IsFallbackID(id string) bool {
	return strings.HasPrefix(id, FallbackPrefix)
}

// Outcome classifies how a write attempt ended.
type Outcome string

const (
	// OutcomeCommitted means the remote store acknowledged the write.
	OutcomeCommitted Outcome = "committed"
	// OutcomeDegraded means the write failed remotely and a fallback id
	// was issued so the caller can continue.
	OutcomeDegraded Outcome = "degraded"
	// OutcomeFailed means the write failed and nothing was persisted;
	// used for merge-style updates that have no fallback representation.
	OutcomeFailed Outcome = "failed"
)

// WriteResult is the structured outcome of a write attempt.
type WriteResult struct {
	ID      string
	Outcome Outcome
	Err     error
}

// Committed reports whether the remote store acknowledged the write.
func (r WriteResult) Committed() bool { return r.Outcome == OutcomeCommitted }

// Facade wraps a docstore.Store in a recovery boundary.
type Facade struct {
	store docstore.Store
	log   *slog.Logger
	now   func() time.Time

	lastFallback int64 // last issued fallback clock value, for uniqueness
}

func New(store docstore.Store, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Facade{store: store, log: logger, now: time.Now}
}

// Now is the clock used for timestamp fields and fallback ids.
func (f *Facade) Now() time.Time { return f.now() }

// fallbackID builds a locally unique id from the current time. Two writes
// degrading within one clock tick still get distinct ids.
func (f *Facade) fallbackID(prefix string) string {
	if prefix == "" {
		prefix = FallbackPrefix
	}
	n := f.now().UnixNano()
	for {
		last := atomic.LoadInt64(&f.lastFallback)
		if n <= last {
			n = last + 1
		}
		if atomic.CompareAndSwapInt64(&f.lastFallback, last, n) {
			break
		}
	}
	return prefix + strconv.FormatInt(n, 10)
}

// Create writes a new document and returns its remote id. On any store
// failure it returns a fallback id built from prefix instead; no error
// propagates to the caller.
func (f *Facade) Create(ctx context.Context, collection string, fields docstore.Fields, prefix string) WriteResult {
	id, err := f.store.CreateDocument(ctx, collection, fields)
	if err != nil {
		fid := f.fallbackID(prefix)
		f.log.Warn("docstore create degraded",
			"collection", collection, "fallback_id", fid, "err", err)
		return WriteResult{ID: fid, Outcome: OutcomeDegraded, Err: err}
	}
	return WriteResult{ID: id, Outcome: OutcomeCommitted}
}

// Get reads a document. found reports whether the document exists; a
// non-nil error means the read itself failed and existence is unknown, so
// callers must not treat the document as absent. Fallback ids read as
// absent without touching the store.
func (f *Facade) Get(ctx context.Context, collection, id string) (fields docstore.Fields, found bool, err error) {
	if IsFallbackID(id) {
		return nil, false, nil
	}
	fields, err = f.store.GetDocument(ctx, collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, false, nil
		}
		f.log.Warn("docstore get degraded", "collection", collection, "id", id, "err", err)
		return nil, false, err
	}
	return fields, true, nil
}

// Set overwrites or merges a document in place. Addressing a fallback id is
// refused locally; store failures degrade to a logged no-op.
func (f *Facade) Set(ctx context.Context, collection, id string, fields docstore.Fields, merge bool) WriteResult {
	if IsFallbackID(id) {
		return WriteResult{ID: id, Outcome: OutcomeFailed, Err: ErrFallbackID}
	}
	if err := f.store.SetDocument(ctx, collection, id, fields, merge); err != nil {
		f.log.Warn("docstore set degraded", "collection", collection, "id", id, "err", err)
		return WriteResult{ID: id, Outcome: OutcomeFailed, Err: err}
	}
	return WriteResult{ID: id, Outcome: OutcomeCommitted}
}

// Query lists documents. Store failures degrade to an empty result.
func (f *Facade) Query(ctx context.Context, collection string, q docstore.Query) []docstore.Document {
	docs, err := f.store.QueryDocuments(ctx, collection, q)
	if err != nil {
		f.log.Warn("docstore query degraded", "collection", collection, "err", err)
		return nil
	}
	return docs
}
