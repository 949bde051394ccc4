// Package session maintains chat sessions and their messages, including the
// denormalized session summary (last message, message count).
package session

import (
	"context"
	"log/slog"

	"github.com/edustack/edustack/internal/docstore"
	"github.com/edustack/edustack/internal/persist"
	"github.com/pkg/errors"
)

const (
	CollectionSessions = "chatSessions"
	CollectionMessages = "chatMessages"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrMissingUser = errors.New("session: user id is required")
	ErrInvalidRole = errors.New("session: role must be user or assistant")
)

// SummaryOutcome classifies the session-summary half of an append.
type SummaryOutcome string

const (
	// SummaryUpdated means the denormalized summary was written back.
	SummaryUpdated SummaryOutcome = "updated"
	// SummarySkipped means no summary update was attempted: the session id
	// is a fallback id, or the session document could not be read.
	SummarySkipped SummaryOutcome = "skipped"
	// SummaryFailed means the write-back failed; the message itself may
	// still have been persisted. messageCount undercounts in that case.
	SummaryFailed SummaryOutcome = "failed"
)

// AppendResult reports both halves of an append independently. There is no
// transactional guarantee between them.
type AppendResult struct {
	MessageID  string
	Message    persist.WriteResult
	Summary    SummaryOutcome
	SummaryErr error
}

// Ledger manages chat sessions through the persistence facade.
type Ledger struct {
	facade *persist.Facade
	log    *slog.Logger
}

func NewLedger(facade *persist.Facade, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{facade: facade, log: logger}
}

// CreateSession creates a new chat session and returns some id for it, real
// or fallback: the chat flow continues either way.
func (l *Ledger) CreateSession(ctx context.Context, userID, title string) (string, persist.WriteResult, error) {
	if userID == "" {
		return "", persist.WriteResult{}, ErrMissingUser
	}

	res := l.facade.Create(ctx, CollectionSessions, docstore.Fields{
		"userId":       userID,
		"title":        title,
		"lastMessage":  "",
		"timestamp":    l.facade.Now().UTC(),
		"messageCount": 0,
	}, persist.FallbackPrefix)
	return res.ID, res, nil
}

// AppendMessage persists a message best-effort, then updates the session
// summary. For fallback session ids the summary step is skipped entirely:
// there is no remote session document to update. The summary write-back is
// a non-atomic read-modify-write; concurrent appends to one session can
// undercount messageCount, which is accepted for single-user sessions.
func (l *Ledger) AppendMessage(ctx context.Context, sessionID, userID, role, content string) (AppendResult, error) {
	if userID == "" {
		return AppendResult{}, ErrMissingUser
	}
	if role != RoleUser && role != RoleAssistant {
		return AppendResult{}, ErrInvalidRole
	}

	msgRes := l.facade.Create(ctx, CollectionMessages, docstore.Fields{
		"sessionId": sessionID,
		"userId":    userID,
		"role":      role,
		"content":   content,
		"timestamp": l.facade.Now().UTC(),
	}, persist.FallbackMessagePrefix)

	out := AppendResult{MessageID: msgRes.ID, Message: msgRes, Summary: SummarySkipped}
	if persist.IsFallbackID(sessionID) {
		return out, nil
	}

	// absent session document or failed read both skip the summary; a
	// stale summary beats guessing at the current count
	fields, found, err := l.facade.Get(ctx, CollectionSessions, sessionID)
	if err != nil || !found {
		return out, nil
	}

	sumRes := l.facade.Set(ctx, CollectionSessions, sessionID, docstore.Fields{
		"lastMessage":  content,
		"timestamp":    l.facade.Now().UTC(),
		"messageCount": fields.Int("messageCount") + 1,
	}, true)
	if sumRes.Outcome == persist.OutcomeCommitted {
		out.Summary = SummaryUpdated
	} else {
		out.Summary = SummaryFailed
		out.SummaryErr = sumRes.Err
		l.log.Warn("session summary update failed", "session_id", sessionID, "err", sumRes.Err)
	}
	return out, nil
}

// ListSessions returns the user's most recent sessions, newest first.
func (l *Ledger) ListSessions(ctx context.Context, userID string) []Session {
	docs := l.facade.Query(ctx, CollectionSessions, docstore.Query{
		Filters: []docstore.Filter{{Field: "userId", Op: "==", Value: userID}},
		OrderBy: "timestamp",
		Desc:    true,
		Limit:   10,
	})

	out := make([]Session, 0, len(docs))
	for _, d := range docs {
		out = append(out, sessionFromDoc(d))
	}
	return out
}

// ListMessages returns all messages of a session, oldest first.
func (l *Ledger) ListMessages(ctx context.Context, sessionID string) []Message {
	docs := l.facade.Query(ctx, CollectionMessages, docstore.Query{
		Filters: []docstore.Filter{{Field: "sessionId", Op: "==", Value: sessionID}},
		OrderBy: "timestamp",
	})

	out := make([]Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, messageFromDoc(d))
	}
	return out
}

// ListRecentMessages returns the most recent messages, newest first, for
// building model context.
func (l *Ledger) ListRecentMessages(ctx context.Context, sessionID string, limit int) []Message {
	if limit <= 0 {
		limit = 20
	}
	docs := l.facade.Query(ctx, CollectionMessages, docstore.Query{
		Filters: []docstore.Filter{{Field: "sessionId", Op: "==", Value: sessionID}},
		OrderBy: "timestamp",
		Desc:    true,
		Limit:   limit,
	})

	out := make([]Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, messageFromDoc(d))
	}
	return out
}
