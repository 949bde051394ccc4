// Package stats tracks per-user usage counters. Counters are non-critical
// telemetry: increments are at-least-once from the caller's point of view
// and silently no-op when the store is unavailable.
package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/edustack/edustack/internal/docstore"
	"github.com/edustack/edustack/internal/persist"
)

const Collection = "userStats"

const (
	CounterChatSessions    = "totalChatSessions"
	CounterVideosGenerated = "totalVideosGenerated"
)

// recognized lists every counter a fresh stats document starts with.
var recognized = []string{CounterChatSessions, CounterVideosGenerated}

// Stats is the per-user usage document; its id is the user id.
type Stats struct {
	UserID               string    `json:"-"`
	TotalChatSessions    int       `json:"total_chat_sessions"`
	TotalVideosGenerated int       `json:"total_videos_generated"`
	LastActive           time.Time `json:"last_active"`
}

// Counters increments and reads user stats through the persistence facade.
type Counters struct {
	facade *persist.Facade
	log    *slog.Logger
}

func NewCounters(facade *persist.Facade, logger *slog.Logger) *Counters {
	if logger == nil {
		logger = slog.Default()
	}
	return &Counters{facade: facade, log: logger}
}

func isRecognized(name string) bool {
	for _, c := range recognized {
		if c == name {
			return true
		}
	}
	return false
}

// Increment bumps one named counter by exactly one. A missing stats document
// is created lazily with the named counter at 1 and the others at 0; an
// existing document gets a merge write that preserves unrelated fields. The
// read-modify-write is not atomic; duplicate logical events double-count and
// deduplication is the caller's responsibility. Any store failure degrades
// to a logged no-op: in particular a failed read aborts the increment,
// since lazy creation on unknown existence would clobber live counters.
func (c *Counters) Increment(ctx context.Context, userID, counter string) persist.Outcome {
	if userID == "" || !isRecognized(counter) {
		c.log.Warn("stat increment rejected", "user_id", userID, "counter", counter)
		return persist.OutcomeFailed
	}

	now := c.facade.Now().UTC()
	fields, found, err := c.facade.Get(ctx, Collection, userID)
	if err != nil {
		return persist.OutcomeFailed
	}
	if !found {
		created := docstore.Fields{
			"userId":     userID,
			"lastActive": now,
		}
		for _, name := range recognized {
			created[name] = 0
		}
		created[counter] = 1

		res := c.facade.Set(ctx, Collection, userID, created, false)
		return res.Outcome
	}

	res := c.facade.Set(ctx, Collection, userID, docstore.Fields{
		counter:      fields.Int(counter) + 1,
		"lastActive": now,
	}, true)
	return res.Outcome
}

// Touch refreshes the user's last-active timestamp, best-effort. A failed
// or absent read skips the write; merging onto unknown existence could
// create a counterless document.
func (c *Counters) Touch(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	if _, found, err := c.facade.Get(ctx, Collection, userID); err != nil || !found {
		return
	}
	c.facade.Set(ctx, Collection, userID, docstore.Fields{
		"lastActive": c.facade.Now().UTC(),
	}, true)
}

// Get reads the stats document; absent documents and failed reads come
// back as (nil, false).
func (c *Counters) Get(ctx context.Context, userID string) (*Stats, bool) {
	fields, found, err := c.facade.Get(ctx, Collection, userID)
	if err != nil || !found {
		return nil, false
	}
	return &Stats{
		UserID:               userID,
		TotalChatSessions:    fields.Int(CounterChatSessions),
		TotalVideosGenerated: fields.Int(CounterVideosGenerated),
		LastActive:           fields.Time("lastActive"),
	}, true
}
