package domain

import (
	"fmt"
	"strings"
)

// Sender identifies who produced a conversation turn.
type Sender string

const (
	SenderUser     Sender = "USER"
	SenderAIEngine Sender = "AI_ENGINE"
)

// ParseSender normalizes a sender label received from a client.
func ParseSender(s string) (Sender, error) {
	switch Sender(strings.ToUpper(strings.TrimSpace(s))) {
	case SenderUser:
		return SenderUser, nil
	case SenderAIEngine:
		return SenderAIEngine, nil
	}
	return "", fmt.Errorf("unknown conversation sender %q", s)
}

// ConversationEntry is one turn of a conversation, oldest first.
type ConversationEntry struct {
	Sender  Sender `json:"sender"`
	Content string `json:"content"`
}

// Leading returns at most n entries from the start of the conversation.
func Leading(entries []ConversationEntry, n int) []ConversationEntry {
	if len(entries) <= n {
		return entries
	}
	return entries[:n]
}

// Trailing returns at most n entries from the end of the conversation.
func Trailing(entries []ConversationEntry, n int) []ConversationEntry {
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}
