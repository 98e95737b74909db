package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
	"github.com/akinalp/gooverchat/services"
)

// ReceiptHandler, okuma imleci ve teslim bildirimi endpoint'leri.
//
// İkisi de idempotent: client her poll'da aynı bilgiyi tekrar gönderebilir.
type ReceiptHandler struct {
	receiptService services.ReceiptService
}

// NewReceiptHandler, constructor.
func NewReceiptHandler(receiptService services.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// MarkRead godoc
// POST /api/conversations/{id}/read
// Body: { "last_read_message_id": "..." }
//
// İmleç sadece ileri gider; eski bir mesaj için gelen bildirim no-op'tur.
func (h *ReceiptHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.receiptService.MarkRead(r.Context(), user.ID, r.PathValue("id"), req.LastReadMessageID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// MarkDelivered godoc
// POST /api/conversations/{id}/messages/delivered
// Body: { "message_ids": ["...", "..."] }
func (h *ReceiptHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.MarkDeliveredRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.receiptService.MarkDelivered(r.Context(), user.ID, r.PathValue("id"), req.MessageIDs)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}
