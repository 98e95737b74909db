// Package client, gooverchat realtime kanalı ve REST API için Go SDK'sı.
//
// Katmanlar:
//   - RESTClient: auth, sohbet, mesaj ve okundu/teslim bildirimleri
//   - Conn: socket token ile kimliği doğrulanmış WebSocket bağlantısı
//   - TypingTracker, Composer, Reconciler: saf (I/O yapmayan) durum makineleri
//   - Session: tek bir döngü goroutine'i ile bunları birleştiren sürücü
//
// Reconciler tek bir girdi akışı tüketir (push, poll sonucu, tick, tuş vuruşu,
// sohbet değişimi) ve yapılacak işleri Effect olarak döner. Session bu effect'leri
// uygular; ağ çağrıları worker goroutine'lerde koşar ve sonuçlarını aynı kanala yazar.
package client

import "encoding/json"

// Op, frame türü. Server'daki ws.Op kümesiyle aynıdır.
type Op string

const (
	OpConversationJoin  Op = "conversation:join"
	OpConversationLeave Op = "conversation:leave"
	OpHeartbeat         Op = "heartbeat"
	OpTypingStart       Op = "typing:start"
	OpTypingStop        Op = "typing:stop"

	OpPresenceInitial Op = "presence:initial"
	OpPresenceUpdate  Op = "presence:update"
	OpError           Op = "error"
	OpHeartbeatAck    Op = "heartbeat_ack"
	OpMessageNew      Op = "message:new"
	OpMessageUpdate   Op = "message:update"
	OpMessageDelete   Op = "message:delete"
	OpReactionUpdate  Op = "reaction:update"
)

// Frame, wire formatı: {"op": ..., "d": ..., "seq": n}.
type Frame struct {
	Op   Op              `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
}

// outbound, client → server frame'i.
type outbound struct {
	Op   Op  `json:"op"`
	Data any `json:"d,omitempty"`
}

type conversationRef struct {
	ConversationID string `json:"conversationId"`
}

type presenceInitial struct {
	UserIDs []string `json:"userIds"`
}

type presenceUpdate struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

type typingEvent struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
}

type errorEvent struct {
	Message string `json:"message"`
	Event   Op     `json:"event"`
}

const statusOnline = "online"
