package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
	"github.com/akinalp/gooverchat/pkg/ratelimit"
	"github.com/akinalp/gooverchat/services"
)

// MessageHandler, mesaj endpoint'lerini yöneten struct.
type MessageHandler struct {
	messageService services.MessageService
	sendLimiter    *ratelimit.Limiter
}

// NewMessageHandler, constructor. sendLimiter nil ise gönderim limitlenmez.
func NewMessageHandler(messageService services.MessageService, sendLimiter *ratelimit.Limiter) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		sendLimiter:    sendLimiter,
	}
}

// List godoc
// GET /api/conversations/{id}/messages?cursor=ID&limit=50
//
// Query parametreleri:
// - cursor: Bu mesajdan daha eski mesajları getir (boşsa en yenilerden başla)
// - limit: Sayfa boyutu (service default 50, max 100 uygular)
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	cursor := r.URL.Query().Get("cursor")

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.messageService.ListPage(r.Context(), user.ID, r.PathValue("id"), cursor, limit)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, page)
}

// Send godoc
// POST /api/conversations/{id}/messages
// Body: { "text": "...", "type": "text", "reply_to_id": "..." }
//
// Kullanıcı bazlı spam koruması: limit aşılırsa 429 + Retry-After.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if !allow(w, h.sendLimiter, user.ID, "you are sending messages too fast") {
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.messageService.Send(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, msg)
}

// Edit godoc
// PATCH /api/messages/{id}
// Body: { "text": "..." }
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.messageService.Edit(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, msg)
}

// Delete godoc
// POST /api/messages/{id}/delete
// Body: { "scope": "me|everyone" }, boş body = me.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	h.delete(w, r, req.Scope)
}

// DeleteForEveryone godoc
// DELETE /api/messages/{id}
func (h *MessageHandler) DeleteForEveryone(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, models.DeleteForEveryone)
}

func (h *MessageHandler) delete(w http.ResponseWriter, r *http.Request, scope models.DeleteScope) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := h.messageService.Delete(r.Context(), user.ID, r.PathValue("id"), scope); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Search godoc
// GET /api/conversations/{id}/search?q=...
//
// Yeni önce, en fazla 50 sonuç. Kelimeler önek olarak eşleşir.
func (h *MessageHandler) Search(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	results, err := h.messageService.Search(r.Context(), user.ID, r.PathValue("id"), r.URL.Query().Get("q"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, results)
}
