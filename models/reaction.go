package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Reaction, bir kullanıcının bir mesaja verdiği tek bir emoji tepkisi.
// UNIQUE(message_id, user_id, emoji): aynı emoji aynı kullanıcıdan bir kez.
type Reaction struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactionGroup, bir mesajdaki aynı emojinin toplu görünümü.
//
// Örnek: 👍 3 [user1, user2, user3]
type ReactionGroup struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// ToggleReactionRequest, POST /api/messages/{id}/react body'si.
type ToggleReactionRequest struct {
	Emoji string `json:"emoji"`
}

// Validate, emoji'nin dolu ve makul uzunlukta olduğunu kontrol eder.
func (r *ToggleReactionRequest) Validate() error {
	r.Emoji = strings.TrimSpace(r.Emoji)
	if r.Emoji == "" {
		return fmt.Errorf("emoji is required")
	}
	if utf8.RuneCountInString(r.Emoji) > 32 {
		return fmt.Errorf("emoji is too long")
	}
	return nil
}

// ReactionUpdate, reaction:update push payload'u.
type ReactionUpdate struct {
	MessageID      string          `json:"messageId"`
	ConversationID string          `json:"conversationId"`
	Reactions      []ReactionGroup `json:"reactions"`
}
