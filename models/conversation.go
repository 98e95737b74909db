package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ConversationType, sohbet türü.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// MemberRole, sohbet içindeki rol. Sohbeti oluşturan owner olur.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

// DefaultGroupName, isimsiz grup sohbetlerine verilen ad.
const DefaultGroupName = "Group"

// Conversation, iki veya daha fazla kullanıcının mesajlaştığı oda.
type Conversation struct {
	ID            string           `json:"id"`
	Type          ConversationType `json:"type"`
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	CreatedBy     *string          `json:"created_by"`
	CreatedAt     time.Time        `json:"created_at"`
	LastMessageAt *time.Time       `json:"last_message_at"`
}

// Member, sohbet üyeliği ve o üyenin okuma imleci.
type Member struct {
	ConversationID    string     `json:"conversation_id"`
	UserID            string     `json:"user_id"`
	Role              MemberRole `json:"role"`
	JoinedAt          time.Time  `json:"joined_at"`
	LastReadMessageID *string    `json:"last_read_message_id"`
	LastReadAt        *time.Time `json:"last_read_at"`

	User *User `json:"user,omitempty"`
}

// ConversationDetail, liste ve detay endpoint'lerinin döndüğü zenginleştirilmiş görünüm.
type ConversationDetail struct {
	Conversation
	Members           []Member `json:"members"`
	LastMessage       *Message `json:"last_message"`
	LastReadMessageID *string  `json:"last_read_message_id"` // çağıran kullanıcının imleci
}

// CreateConversationRequest, POST /api/conversations body'si.
type CreateConversationRequest struct {
	Type        ConversationType `json:"type"`
	MemberIDs   []string         `json:"member_ids"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
}

// Validate, isteği normalize eder. Tekrarlanan ve boş member id'leri atılır.
func (r *CreateConversationRequest) Validate() error {
	if r.Type == "" {
		r.Type = ConversationDirect
	}
	if r.Type != ConversationDirect && r.Type != ConversationGroup {
		return fmt.Errorf("type must be direct or group")
	}

	seen := make(map[string]bool, len(r.MemberIDs))
	ids := make([]string, 0, len(r.MemberIDs))
	for _, id := range r.MemberIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	r.MemberIDs = ids

	if len(r.MemberIDs) == 0 {
		return fmt.Errorf("at least one member is required")
	}
	if r.Type == ConversationDirect && len(r.MemberIDs) != 1 {
		return fmt.Errorf("direct conversations need exactly one other member")
	}

	r.Name = strings.TrimSpace(r.Name)
	if utf8.RuneCountInString(r.Name) > 100 {
		return fmt.Errorf("name must be at most 100 characters")
	}
	r.Description = strings.TrimSpace(r.Description)
	if utf8.RuneCountInString(r.Description) > 500 {
		return fmt.Errorf("description must be at most 500 characters")
	}
	return nil
}
