// Package ws, realtime kanalı sağlar: kimlik doğrulamalı WebSocket bağlantıları,
// oda yönlendirmesi, presence takibi ve typing sinyali aktarımı.
//
// Mimari:
//   - Hub: bağlantı kaydı, odalar ve presence geçişleri
//   - Client: tek bir WebSocket bağlantısı (ReadPump / WritePump)
//   - Handler: handshake kapısı; token doğrulanmadan upgrade yapılmaz
//   - Event: client-server arası frame formatı
//
// Mesaj içeriği, teslim ve okunma bilgisi bu kanalda taşınmaz; REST ile yazılır,
// istemci periyodik snapshot ile okur. Kanal sadece anlık sinyaller içindir.
package ws

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Op, frame türü. Kapalı bir kümedir: tanımsız bir inbound op reddedilir.
type Op string

// Client → Server
const (
	OpConversationJoin  Op = "conversation:join"
	OpConversationLeave Op = "conversation:leave"
	OpHeartbeat         Op = "heartbeat"
)

// İki yönlü: client gönderir, server odaya yeniden yayınlar.
const (
	OpTypingStart Op = "typing:start"
	OpTypingStop  Op = "typing:stop"
)

// Server → Client
const (
	OpPresenceInitial Op = "presence:initial"
	OpPresenceUpdate  Op = "presence:update"
	OpError           Op = "error"
	OpHeartbeatAck    Op = "heartbeat_ack"
	OpMessageNew      Op = "message:new"
	OpMessageUpdate   Op = "message:update"
	OpMessageDelete   Op = "message:delete"
	OpReactionUpdate  Op = "reaction:update"
	OpFriendRequest   Op = "friend:request"
	OpFriendAccept    Op = "friend:accept"
	OpFriendDecline   Op = "friend:decline"
	OpFriendRemove    Op = "friend:remove"
)

// Event, outbound frame.
//
// Seq, bu node'un verdiği artan sayaçtır. Birden fazla node'dan gelen frame'ler
// farklı sayaçlar taşıyabilir; seq sadece tek node içinde sıralıdır.
type Event struct {
	Op   Op    `json:"op"`
	Data any   `json:"d,omitempty"`
	Seq  int64 `json:"seq,omitempty"`
}

// Frame, decode tarafı: payload ham tutulur, türü op'a göre belirlenir.
type Frame struct {
	Op   Op              `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
}

// ErrorCode, realtime katmanının tipli hata kodları.
type ErrorCode string

const (
	CodeAuthRequired ErrorCode = "auth_required"
	CodeInvalidToken ErrorCode = "invalid_token"
	CodeForbidden    ErrorCode = "forbidden"
	CodeUnknownEvent ErrorCode = "unknown_event"
)

// PresenceStatus, presence:update durumları.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// ─── Payload'lar ───

// PresenceInitialData, yeni bağlantıya gönderilen tam snapshot (bağlanan kullanıcı dahil).
type PresenceInitialData struct {
	UserIDs []string `json:"userIds"`
}

// PresenceUpdateData, tek bir presence geçişi.
type PresenceUpdateData struct {
	UserID string         `json:"userId"`
	Status PresenceStatus `json:"status"`
}

// TypingRequest, client'ın typing:start / typing:stop payload'u.
type TypingRequest struct {
	ConversationID string `json:"conversationId"`
}

// TypingData, odaya yeniden yayınlanan typing payload'u.
type TypingData struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
}

// ConversationRef, conversation:join / conversation:leave nesne formu.
type ConversationRef struct {
	ConversationID string `json:"conversationId"`
}

// ErrorData, kapsamlı hata frame'i. Bağlantıyı kapatmaz.
type ErrorData struct {
	Message ErrorCode `json:"message"`
	Event   Op        `json:"event,omitempty"`
}

// ─── Odalar ───

const (
	userRoomPrefix         = "user:"
	conversationRoomPrefix = "conversation:"
)

// UserRoom, kullanıcının tüm bağlantılarının otomatik katıldığı oda.
func UserRoom(userID string) string { return userRoomPrefix + userID }

// ConversationRoom, açıkça join edilen sohbet odası.
func ConversationRoom(conversationID string) string { return conversationRoomPrefix + conversationID }

// ParseConversationID, join/leave payload'unu çözer. Payload ya düz bir JSON string
// ya da {conversationId} nesnesi olabilir. Çözülemezse boş string döner.
func ParseConversationID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return ""
		}
		return strings.TrimSpace(id)
	}

	var ref ConversationRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return ""
	}
	return strings.TrimSpace(ref.ConversationID)
}
