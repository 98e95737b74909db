package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akinalp/gooverchat/pkg/logger"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: Bir mesajı yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// pongWait: Bu süre içinde pong veya heartbeat gelmezse bağlantı kopmuş sayılır.
	pongWait = 90 * time.Second

	// pingPeriod: Server ping aralığı, pongWait'ten kısa olmalı.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize: Client'ın gönderebileceği maksimum frame boyutu (byte).
	// Realtime kanalı sadece küçük kontrol event'leri taşır; mesaj gövdeleri HTTP ile gider.
	maxMessageSize = 4096

	// sendBufferSize: Her client'ın send channel buffer'ı.
	// Buffer doluysa client yavaş demektir ve bağlantı düşürülür.
	sendBufferSize = 256
)

// Client, tek bir WebSocket bağlantısını temsil eder.
//
// Her bağlantı için iki goroutine çalışır:
// - ReadPump: client'tan gelen frame'leri okur ve dispatch eder
// - WritePump: send kanalındaki mesajları socket'e yazar
//
// gorilla/websocket aynı anda bir okuyucu ve bir yazıcı destekler; tüm yazımlar WritePump'tadır.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	id          string
	userID      string
	email       string
	connectedAt time.Time

	send chan []byte

	// rooms, bu bağlantının katıldığı odalar. hub.mu ile korunur.
	rooms map[string]bool

	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, id, userID, email string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		id:          id,
		userID:      userID,
		email:       email,
		connectedAt: time.Now(),
		send:        make(chan []byte, sendBufferSize),
		rooms:       make(map[string]bool),
	}
}

// ID, bağlantı kimliği (aynı kullanıcının cihazlarını ayırır).
func (c *Client) ID() string { return c.id }

// UserID, bağlantının sahibi.
func (c *Client) UserID() string { return c.userID }

// inboundHandler, client'tan gelen tek bir op'u işler.
type inboundHandler func(c *Client, frame Frame)

// inboundHandlers, client→server op tablosu. Tabloda olmayan op unknown_event hatası alır.
var inboundHandlers = map[Op]inboundHandler{
	OpHeartbeat:         (*Client).handleHeartbeat,
	OpConversationJoin:  (*Client).handleConversationJoin,
	OpConversationLeave: (*Client).handleConversationLeave,
	OpTypingStart:       (*Client).handleTypingStart,
	OpTypingStop:        (*Client).handleTypingStop,
}

// ReadPump, socket'ten frame okur. Bağlantı kapanana kadar bloklar;
// döndüğünde client hub'dan çıkarılır.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.extendDeadline(); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.extendDeadline()
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("[ws] unexpected close for user=%s conn=%s: %v", c.userID, c.id, err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			logger.Warnf("[ws] invalid frame from user %s: %v", c.userID, err)
			continue
		}

		c.dispatch(frame)
	}
}

func (c *Client) dispatch(frame Frame) {
	handler, ok := inboundHandlers[frame.Op]
	if !ok {
		logger.Warnf("[ws] unknown op from user %s: %q", c.userID, frame.Op)
		c.sendError(CodeUnknownEvent, frame.Op)
		return
	}
	handler(c, frame)
}

func (c *Client) extendDeadline() error {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Warnf("[ws] failed to set read deadline for user %s: %v", c.userID, err)
		return err
	}
	return nil
}

func (c *Client) handleHeartbeat(Frame) {
	if err := c.extendDeadline(); err != nil {
		return
	}
	c.hub.sendToClient(c, Event{Op: OpHeartbeatAck})
}

// handleConversationJoin, üyelik kontrolünden sonra client'ı conversation odasına ekler.
// Üye değilse, sorgu hata verirse veya zaman aşımına uğrarsa forbidden döner.
func (c *Client) handleConversationJoin(frame Frame) {
	conversationID := ParseConversationID(frame.Data)
	if conversationID == "" {
		return
	}

	if !c.isMember(conversationID) {
		c.sendError(CodeForbidden, OpConversationJoin)
		return
	}

	if c.hub.joinRoom(c, ConversationRoom(conversationID)) {
		logger.Debugf("[ws] user %s joined conversation %s (conn=%s)", c.userID, conversationID, c.id)
	}
}

func (c *Client) isMember(conversationID string) bool {
	if c.hub.membership == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(c.hub.ctx, c.hub.joinTimeout)
	defer cancel()

	ok, err := c.hub.membership.IsMember(ctx, conversationID, c.userID)
	if err != nil {
		logger.Warnf("[ws] membership lookup failed for user=%s conversation=%s: %v", c.userID, conversationID, err)
		return false
	}
	return ok
}

func (c *Client) handleConversationLeave(frame Frame) {
	conversationID := ParseConversationID(frame.Data)
	if conversationID == "" {
		return
	}
	c.hub.leaveRoom(c, ConversationRoom(conversationID))
}

func (c *Client) handleTypingStart(frame Frame) {
	c.relayTyping(OpTypingStart, frame)
}

func (c *Client) handleTypingStop(frame Frame) {
	c.relayTyping(OpTypingStop, frame)
}

// relayTyping, typing event'ini odadaki diğer bağlantılara iletir.
// Gönderen bağlantı hariç tutulur; aynı kullanıcının diğer cihazları event'i alır.
// Odaya join edilmemişse event sessizce düşürülür.
func (c *Client) relayTyping(op Op, frame Frame) {
	conversationID := ParseConversationID(frame.Data)
	if conversationID == "" {
		return
	}

	room := ConversationRoom(conversationID)
	if !c.hub.inRoom(c, room) {
		return
	}

	c.hub.broadcast(room, "", c.id, Event{
		Op:   op,
		Data: TypingData{UserID: c.userID, ConversationID: conversationID},
	})
}

func (c *Client) sendError(code ErrorCode, op Op) {
	c.hub.sendToClient(c, Event{
		Op:   OpError,
		Data: ErrorData{Message: code, Event: op},
	})
}

// WritePump, send kanalındaki mesajları socket'e yazar ve periyodik ping atar.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub kanalı kapattı: client çıkarıldı veya hub kapanıyor.
				c.writeMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.writeMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.writeMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeMessage(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}
