package session

import (
	"time"

	"github.com/edustack/edustack/internal/docstore"
)

// Session is a chat session together with its denormalized summary.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	Title        string    `json:"title"`
	LastMessage  string    `json:"last_message"`
	MessageCount int       `json:"message_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// Message is immutable once created and belongs to exactly one session by id.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"-"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func sessionFromDoc(d docstore.Document) Session {
	return Session{
		ID:           d.ID,
		UserID:       d.Fields.String("userId"),
		Title:        d.Fields.String("title"),
		LastMessage:  d.Fields.String("lastMessage"),
		MessageCount: d.Fields.Int("messageCount"),
		Timestamp:    d.Fields.Time("timestamp"),
	}
}

func messageFromDoc(d docstore.Document) Message {
	return Message{
		ID:        d.ID,
		SessionID: d.Fields.String("sessionId"),
		UserID:    d.Fields.String("userId"),
		Role:      d.Fields.String("role"),
		Content:   d.Fields.String("content"),
		Timestamp: d.Fields.Time("timestamp"),
	}
}
