package chat

import (
	"context"
	"log/slog"
	"testing"

	"github.com/edustack/edustack/internal/docstore"
	"github.com/edustack/edustack/internal/genai"
	"github.com/edustack/edustack/internal/persist"
	"github.com/edustack/edustack/internal/session"
	"github.com/edustack/edustack/internal/stats"
)

type recordingChatter struct {
	last []genai.Message
}

func (c *recordingChatter) Chat(ctx context.Context, messages []genai.Message) (string, error) {
	_ = ctx
	// copy to avoid mutations
	c.last = append([]genai.Message(nil), messages...)
	return "ok", nil
}

func newTestService(t *testing.T, chatter genai.Chatter, window int) (*Service, *docstore.Memory) {
	t.Helper()
	mem := docstore.NewMemory()
	facade := persist.New(mem, slog.Default())
	ledger := session.NewLedger(facade, slog.Default())
	counters := stats.NewCounters(facade, slog.Default())
	return NewService(ledger, chatter, counters, window), mem
}

func TestSendMessage_WritesUserAndAssistant(t *testing.T) {
	chatter := &recordingChatter{}
	svc, mem := newTestService(t, chatter, 20)

	sessionID, _, err := svc.StartSession(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	reply, err := svc.SendMessage(context.Background(), "user-1", sessionID, "Hello")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if reply.Text != "ok" {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}
	if reply.AssistantMsg.MessageID == "" {
		t.Fatalf("expected assistant message id to be set")
	}

	msgs := svc.Messages(context.Background(), sessionID)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "Hello" {
		t.Fatalf("unexpected user msg: role=%q content=%q", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != "assistant" || msgs[1].Content != "ok" {
		t.Fatalf("unexpected assistant msg: role=%q content=%q", msgs[1].Role, msgs[1].Content)
	}

	// summary write-back lands on the session document
	fields, err := mem.GetDocument(context.Background(), session.CollectionSessions, sessionID)
	if err != nil {
		t.Fatalf("get session doc: %v", err)
	}
	if got := fields.Int("messageCount"); got != 2 {
		t.Fatalf("expected messageCount 2, got %d", got)
	}
	if got := fields.String("lastMessage"); got != "ok" {
		t.Fatalf("expected lastMessage %q, got %q", "ok", got)
	}
}

func TestSendMessage_UsesContextWindow(t *testing.T) {
	chatter := &recordingChatter{}
	window := 3
	svc, _ := newTestService(t, chatter, window)

	sessionID, _, err := svc.StartSession(context.Background(), "user-2", "seeded")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	// seed messages: 5 messages already in history
	for i := 0; i < 5; i++ {
		if _, err := svc.SendMessage(context.Background(), "user-2", sessionID, "seed"); err != nil {
			t.Fatalf("seed msg %d: %v", i, err)
		}
	}

	// sending a new message: history grows, but the chatter should get only
	// `window` most recent msgs
	if _, err := svc.SendMessage(context.Background(), "user-2", sessionID, "new"); err != nil {
		t.Fatalf("send message: %v", err)
	}

	if len(chatter.last) != window {
		t.Fatalf("expected chatter to receive %d messages, got %d", window, len(chatter.last))
	}
	// The newest message in the chatter input should be the user message we
	// just sent.
	last := chatter.last[len(chatter.last)-1]
	if last.Role != "user" || last.Content != "new" {
		t.Fatalf("expected last chatter msg to be new user msg, got role=%q content=%q", last.Role, last.Content)
	}
}

func TestStartSession_DefaultsTitleAndCountsSession(t *testing.T) {
	svc, mem := newTestService(t, &recordingChatter{}, 20)

	sessionID, res, err := svc.StartSession(context.Background(), "user-3", "")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if res.Outcome != persist.OutcomeCommitted {
		t.Fatalf("expected committed outcome, got %q", res.Outcome)
	}

	fields, err := mem.GetDocument(context.Background(), session.CollectionSessions, sessionID)
	if err != nil {
		t.Fatalf("get session doc: %v", err)
	}
	if got := fields.String("title"); got != "New Chat Session" {
		t.Fatalf("unexpected title: %q", got)
	}

	statsFields, err := mem.GetDocument(context.Background(), stats.Collection, "user-3")
	if err != nil {
		t.Fatalf("get stats doc: %v", err)
	}
	if got := statsFields.Int(stats.CounterChatSessions); got != 1 {
		t.Fatalf("expected session counter 1, got %d", got)
	}
}

func TestSendMessage_RejectsEmptyContent(t *testing.T) {
	svc, _ := newTestService(t, &recordingChatter{}, 20)

	if _, err := svc.SendMessage(context.Background(), "user-4", "sess", "   "); err != ErrEmptyMessage {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}
