package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MessageType, mesaj türü. Şimdilik sadece metin; alan geleceğe açık tutulur.
type MessageType string

const MessageText MessageType = "text"

// DeleteScope, mesaj silme kapsamı.
type DeleteScope string

const (
	DeleteForMe       DeleteScope = "me"
	DeleteForEveryone DeleteScope = "everyone"
)

// Message, bir sohbet mesajı.
//
// Status sadece çağıran kullanıcının kendi mesajlarında doludur:
// başkasının mesajının teslim/görülme bilgisi gösterilmez.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	Type           MessageType `json:"type"`
	Text           *string     `json:"text"`
	ReplyToID      *string     `json:"reply_to_id"`
	CreatedAt      time.Time   `json:"created_at"`
	EditedAt       *time.Time  `json:"edited_at"`
	DeletedAt      *time.Time  `json:"deleted_at"`

	Sender    *User           `json:"sender,omitempty"`
	Reactions []ReactionGroup `json:"reactions"`
	Status    *MessageStatus  `json:"status,omitempty"`
}

// MessageStatus, mesajın türetilmiş teslim/görülme durumu.
// İkisi de nil olabilir; SeenAt dolu, DeliveredAt nil olması geçerli bir durumdur.
type MessageStatus struct {
	DeliveredAt *time.Time `json:"delivered_at"`
	SeenAt      *time.Time `json:"seen_at"`
}

// MessageRef, message:delete push payload'u.
type MessageRef struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
}

// MessagePage, GET /api/conversations/{id}/messages response'u.
// Messages eskiden yeniye sıralıdır; NextCursor bir sonraki (daha eski) sayfa için.
type MessagePage struct {
	Messages      []Message `json:"messages"`
	NextCursor    *string   `json:"next_cursor"`
	HasMore       bool      `json:"has_more"`
	CurrentUserID string    `json:"current_user_id"`
}

// SendMessageRequest, POST /api/conversations/{id}/messages body'si.
type SendMessageRequest struct {
	Text      string      `json:"text"`
	Type      MessageType `json:"type"`
	ReplyToID *string     `json:"reply_to_id,omitempty"`
}

// Validate, metni kırpar ve uzunluğu maxLength ile sınırlar.
func (r *SendMessageRequest) Validate(maxLength int) error {
	if r.Type == "" {
		r.Type = MessageText
	}
	if r.Type != MessageText {
		return fmt.Errorf("unsupported message type %q", r.Type)
	}
	if r.ReplyToID != nil && strings.TrimSpace(*r.ReplyToID) == "" {
		r.ReplyToID = nil
	}
	return validateText(&r.Text, maxLength)
}

// EditMessageRequest, PATCH /api/messages/{id} body'si.
type EditMessageRequest struct {
	Text string `json:"text"`
}

// Validate, EditMessageRequest'in geçerli olup olmadığını kontrol eder.
func (r *EditMessageRequest) Validate(maxLength int) error {
	return validateText(&r.Text, maxLength)
}

// DeleteMessageRequest, POST /api/messages/{id}/delete body'si. Boş scope = me.
type DeleteMessageRequest struct {
	Scope DeleteScope `json:"scope"`
}

// Validate, DeleteMessageRequest'in geçerli olup olmadığını kontrol eder.
func (r *DeleteMessageRequest) Validate() error {
	if r.Scope == "" {
		r.Scope = DeleteForMe
	}
	if r.Scope != DeleteForMe && r.Scope != DeleteForEveryone {
		return fmt.Errorf("scope must be me or everyone")
	}
	return nil
}

func validateText(text *string, maxLength int) error {
	*text = strings.TrimSpace(*text)
	n := utf8.RuneCountInString(*text)
	if n == 0 {
		return fmt.Errorf("message text is required")
	}
	if maxLength > 0 && n > maxLength {
		return fmt.Errorf("message text must be at most %d characters", maxLength)
	}
	return nil
}
