package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
	"github.com/akinalp/gooverchat/services"
)

// ConversationHandler, sohbet endpoint'leri.
type ConversationHandler struct {
	conversationService services.ConversationService
}

// NewConversationHandler, constructor.
func NewConversationHandler(conversationService services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// List godoc
// GET /api/conversations
// Kullanıcının sohbetleri, son aktiviteye göre (yeni önce).
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	convs, err := h.conversationService.List(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, convs)
}

// Create godoc
// POST /api/conversations
// Body: { "type": "direct|group", "member_ids": [...], "name": "...", "description": "..." }
//
// Direct sohbet aynı çift için zaten varsa mevcut olan döner.
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conv, err := h.conversationService.Create(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, conv)
}

// Get godoc
// GET /api/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	conv, err := h.conversationService.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, conv)
}

// AddMember godoc
// POST /api/conversations/{id}/members
// Body: { "user_id": "..." }
//
// Sadece grup sohbetinde ve sadece owner.
func (h *ConversationHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.UserActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	conv, err := h.conversationService.AddMember(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, conv)
}

// RemoveMember godoc
// DELETE /api/conversations/{id}/members/{userId}
//
// userId çağıranın kendisiyse gruptan ayrılır.
func (h *ConversationHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.conversationService.RemoveMember(r.Context(), user.ID, r.PathValue("id"), r.PathValue("userId")); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "member removed"})
}
