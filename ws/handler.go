package ws

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
	"github.com/akinalp/gooverchat/pkg/logger"
)

// TokenVerifier, handshake sırasında socket token'ını doğrulayan interface.
//
// services.AuthService'i doğrudan almıyoruz: services paketi ws.Broadcaster'ı kullanıyor,
// ws → services bağımlılığı import döngüsü oluştururdu. Geçersiz, süresi dolmuş veya
// yanlış scope'lu token için nil döner.
type TokenVerifier interface {
	VerifySocketToken(token string) *models.Identity
}

// bearerProtocol, tarayıcının header gönderemediği durumda token'ı taşıyan subprotocol.
//
//	new WebSocket(url, ["bearer", token])
const bearerProtocol = "bearer"

// RejectHeader, handshake reddinde hata kodunu taşıyan response header'ı.
const RejectHeader = "X-Realtime-Error"

// Handler, /ws endpoint'i. Token doğrulanmadan upgrade yapılmaz.
type Handler struct {
	hub      *Hub
	verifier TokenVerifier
	upgrader websocket.Upgrader
}

// NewHandler, yeni bir WebSocket handler oluşturur.
// allowedOrigins boşsa tüm origin'ler kabul edilir (development).
func NewHandler(hub *Hub, verifier TokenVerifier, allowedOrigins []string) *Handler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[strings.TrimRight(o, "/")] = true
	}

	return &Handler{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{bearerProtocol},
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(origins) == 0 || origin == "" {
					return true
				}
				return origins[origin]
			},
		},
	}
}

// HandleConnection godoc
// GET /ws
//
// Token sırası: "bearer" subprotocol'ündeki değer, ?token= query parametresi,
// son olarak Authorization: Bearer header'ı.
//
// Token yoksa 401 auth_required, geçersizse 401 invalid_token döner.
// Kod hem RejectHeader'da hem JSON gövdesinin error alanında taşınır.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		reject(w, CodeAuthRequired)
		return
	}

	identity := h.verifier.VerifySocketToken(token)
	if identity == nil {
		reject(w, CodeInvalidToken)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("[ws] upgrade failed for user %s: %v", identity.UserID, err)
		return
	}

	client := newClient(h.hub, conn, uuid.NewString(), identity.UserID, identity.Email)

	select {
	case h.hub.register <- client:
	case <-h.hub.ctx.Done():
		conn.Close()
		return
	}

	// ReadPump mevcut goroutine'de çalışır ve bağlantı kapanana kadar bloklar.
	go client.WritePump()
	client.ReadPump()
}

func reject(w http.ResponseWriter, code ErrorCode) {
	w.Header().Set(RejectHeader, string(code))
	pkg.ErrorWithMessage(w, http.StatusUnauthorized, string(code))
}

func extractToken(r *http.Request) string {
	protocols := websocket.Subprotocols(r)
	for i, p := range protocols {
		if p == bearerProtocol && i+1 < len(protocols) {
			if token, err := url.PathUnescape(protocols[i+1]); err == nil && token != "" {
				return token
			}
		}
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}

	return ""
}
