// Package genai holds the clients for the external generative service:
// chat replies, video scripts, images and video assembly.
package genai

import "context"

// Message is one turn of a chat conversation sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces the staged outputs of a video run. There is no
// partial-result contract: a failed call yields nothing.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateImages(ctx context.Context, script string) ([]string, error)
	GenerateVideo(ctx context.Context, script string, images []string) (string, error)
}

// Chatter produces a single assistant reply for a conversation.
type Chatter interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}
