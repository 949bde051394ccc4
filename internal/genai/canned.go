package genai

import (
	"context"
	"fmt"
	"strings"
)

// Canned is an offline Generator used when no API key is configured and in
// tests. Scripts are classified by topic keywords; image and video outputs
// are placeholder references.
type Canned struct{}

func NewCanned() *Canned { return &Canned{} }

const (
	scriptAI          = "Welcome to this educational video about Artificial Intelligence. AI is a branch of computer science that aims to create systems capable of performing tasks that would normally require human intelligence. These tasks include learning, reasoning, problem-solving, perception, and language understanding. In this video, we'll explore the fundamentals of AI, its applications, and its impact on society."
	scriptProgramming = "In this video, we'll dive into the world of programming. Programming is the process of creating a set of instructions that tell a computer how to perform a task. These instructions can be written in various programming languages, each with its own syntax and capabilities. We'll cover the basics of programming concepts, popular languages, and how to get started on your coding journey."
	scriptHistory     = "Today, we're exploring world history. History is the study of past events, particularly human affairs. It helps us understand how societies, cultures, and civilizations have evolved over time. In this video, we'll take a journey through key historical periods, significant events, and the people who shaped our world."
	scriptScience     = "Welcome to our science educational video. Science is the systematic study of the structure and behavior of the physical and natural world through observation and experiment. In this video, we'll explore fundamental scientific concepts, recent discoveries, and how science impacts our daily lives."
)

const placeholderImage = "/placeholder.svg?height=480&width=640"
const placeholderVideo = "/placeholder.svg?height=720&width=1280"

// ScriptForTopic picks a canned narration script. The branches are checked
// in order: ai, programming, history, science, then a generic template.
func ScriptForTopic(topic string) string {
	t := strings.ToLower(topic)
	switch {
	case strings.Contains(t, "ai") || strings.Contains(t, "artificial intelligence"):
		return scriptAI
	case strings.Contains(t, "programming") || strings.Contains(t, "coding"):
		return scriptProgramming
	case strings.Contains(t, "history"):
		return scriptHistory
	case strings.Contains(t, "science"):
		return scriptScience
	}
	return fmt.Sprintf("In this educational video, we'll explore the fascinating topic of %s. This subject has gained significant attention in recent years due to its impact on various fields. We'll cover the fundamental concepts, key developments, and practical applications that make %s such an important area of study.", topic, topic)
}

func (c *Canned) GenerateText(_ context.Context, prompt string) (string, error) {
	return ScriptForTopic(prompt), nil
}

func (c *Canned) GenerateImages(_ context.Context, _ string) ([]string, error) {
	return []string{placeholderImage, placeholderImage, placeholderImage, placeholderImage}, nil
}

func (c *Canned) GenerateVideo(_ context.Context, _ string, _ []string) (string, error) {
	return placeholderVideo, nil
}

// CannedChat is the offline Chatter counterpart: keyword-routed replies for
// the learning assistant.
type CannedChat struct{}

func NewCannedChat() *CannedChat { return &CannedChat{} }

func (c *CannedChat) Chat(_ context.Context, messages []Message) (string, error) {
	var prompt string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			prompt = messages[i].Content
			break
		}
	}

	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "neural network"):
		return "Neural networks are computing systems inspired by the biological neural networks in human brains. They consist of layers of interconnected nodes or 'neurons' that process information and learn patterns from data.", nil
	case strings.Contains(p, "machine learning"):
		return "Machine learning is a subset of artificial intelligence that enables systems to learn and improve from experience without being explicitly programmed. It focuses on developing algorithms that can access data and use it to learn for themselves.", nil
	case strings.Contains(p, "natural language"):
		return "Natural Language Processing (NLP) is a field of AI that focuses on the interaction between computers and humans through natural language. It involves programming computers to process and analyze large amounts of natural language data.", nil
	}
	return "That's an interesting question! In the field of AI and education, we're constantly exploring new ways to enhance learning experiences through technology. Would you like me to elaborate on any specific aspect of this topic?", nil
}
