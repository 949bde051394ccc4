// Package chat orchestrates the chat flow: session bootstrap, message
// persistence through the ledger and assistant replies from the generative
// service.
package chat

import (
	"context"
	"strings"

	"github.com/edustack/edustack/internal/genai"
	"github.com/edustack/edustack/internal/persist"
	"github.com/edustack/edustack/internal/session"
	"github.com/edustack/edustack/internal/stats"
	"github.com/pkg/errors"
)

const defaultTitle = "New Chat Session"

var ErrEmptyMessage = errors.New("chat: message content is required")

type Service struct {
	ledger            *session.Ledger
	chatter           genai.Chatter
	counters          *stats.Counters
	contextWindowSize int
}

func NewService(ledger *session.Ledger, chatter genai.Chatter, counters *stats.Counters, contextWindowSize int) *Service {
	if contextWindowSize <= 0 || contextWindowSize > 100 {
		contextWindowSize = 20
	}
	return &Service{
		ledger:            ledger,
		chatter:           chatter,
		counters:          counters,
		contextWindowSize: contextWindowSize,
	}
}

// StartSession creates a session for the chat screen and bumps the user's
// session counter. The returned id may be a fallback id; chatting continues
// on it with persistence degraded.
func (s *Service) StartSession(ctx context.Context, userID, title string) (string, persist.WriteResult, error) {
	if title == "" {
		title = defaultTitle
	}
	id, res, err := s.ledger.CreateSession(ctx, userID, title)
	if err != nil {
		return "", res, err
	}
	s.counters.Increment(ctx, userID, stats.CounterChatSessions)
	return id, res, nil
}

// Reply is the outcome of one send: the assistant's text plus the
// independent persistence results of both messages.
type Reply struct {
	Text         string
	UserMsg      session.AppendResult
	AssistantMsg session.AppendResult
}

// SendMessage appends the user message best-effort, asks the generative
// service for a reply using recent history as context, then appends the
// assistant message. A generative failure surfaces as an error; persistence
// failures do not.
func (s *Service) SendMessage(ctx context.Context, userID, sessionID, content string) (Reply, error) {
	if strings.TrimSpace(content) == "" {
		return Reply{}, ErrEmptyMessage
	}

	userRes, err := s.ledger.AppendMessage(ctx, sessionID, userID, session.RoleUser, content)
	if err != nil {
		return Reply{}, err
	}

	history := s.ledger.ListRecentMessages(ctx, sessionID, s.contextWindowSize)

	// history is newest first; the provider expects oldest first. On a
	// degraded store the history may be empty, so the current message is
	// appended when missing.
	msgs := make([]genai.Message, 0, len(history)+1)
	for i := len(history) - 1; i >= 0; i-- {
		msgs = append(msgs, genai.Message{Role: history[i].Role, Content: history[i].Content})
	}
	if len(msgs) == 0 || msgs[len(msgs)-1].Content != content {
		msgs = append(msgs, genai.Message{Role: session.RoleUser, Content: content})
	}

	text, err := s.chatter.Chat(ctx, msgs)
	if err != nil {
		return Reply{UserMsg: userRes}, err
	}

	assistantRes, err := s.ledger.AppendMessage(ctx, sessionID, userID, session.RoleAssistant, text)
	if err != nil {
		return Reply{Text: text, UserMsg: userRes}, err
	}

	s.counters.Touch(ctx, userID)
	return Reply{Text: text, UserMsg: userRes, AssistantMsg: assistantRes}, nil
}

// Sessions lists the user's recent sessions.
func (s *Service) Sessions(ctx context.Context, userID string) []session.Session {
	return s.ledger.ListSessions(ctx, userID)
}

// Messages lists a session's messages, oldest first.
func (s *Service) Messages(ctx context.Context, sessionID string) []session.Message {
	return s.ledger.ListMessages(ctx, sessionID)
}
