// Package chat holds the conversation records shown in the browser session,
// the per-session transcript that orders them, and the renderer that turns
// them into HTML.
package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies who contributed a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Kind identifies what a message carries. Only KindUserPrompt and KindText
// produce visible output.
type Kind string

const (
	KindUserPrompt   Kind = "user-prompt"
	KindSystemPrompt Kind = "system-prompt"
	KindText         Kind = "text"
	KindToolCall     Kind = "tool-call"
	KindToolReturn   Kind = "tool-return"
	KindRetryPrompt  Kind = "retry-prompt"
)

// Known reports whether k is one of the kinds the agent can produce.
func (k Kind) Known() bool {
	switch k {
	case KindUserPrompt, KindSystemPrompt, KindText, KindToolCall, KindToolReturn, KindRetryPrompt:
		return true
	}
	return false
}

// Message is one record of the transcript.
type Message struct {
	Role      Role      `json:"role"`
	Kind      Kind      `json:"kind"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// NewUserPrompt creates the record appended when the user submits text.
func NewUserPrompt(content string) Message {
	return Message{
		Role:      RoleUser,
		Kind:      KindUserPrompt,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewText creates the record committed after an assistant turn completes.
func NewText(content string) Message {
	return Message{
		Role:      RoleAssistant,
		Kind:      KindText,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// rawMessage accepts the field spellings seen in exported agent histories.
type rawMessage struct {
	Role      string    `json:"role"`
	Kind      string    `json:"kind"`
	PartKind  string    `json:"part_kind"`
	Content   *string   `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// DecodeMessages normalizes a JSON array of records into Messages. Records
// with an unknown kind are kept as-is so the renderer can skip them; a record
// that is not a JSON object fails the whole decode.
func DecodeMessages(data []byte) ([]Message, error) {
	var raws []rawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	msgs := make([]Message, 0, len(raws))
	for _, r := range raws {
		kind := r.Kind
		if kind == "" {
			kind = r.PartKind
		}
		msg := Message{
			Role:      Role(r.Role),
			Kind:      Kind(kind),
			Timestamp: r.Timestamp,
		}
		if r.Content != nil {
			msg.Content = *r.Content
		}
		if msg.Role == "" {
			msg.Role = roleForKind(msg.Kind)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func roleForKind(k Kind) Role {
	switch k {
	case KindUserPrompt, KindToolReturn, KindRetryPrompt:
		return RoleUser
	case KindSystemPrompt:
		return RoleSystem
	default:
		return RoleAssistant
	}
}
