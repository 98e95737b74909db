package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
	"github.com/akinalp/gooverchat/services"
)

// ReactionHandler, emoji reaction endpoint'i.
// Emoji validation, toggle ve push ReactionService'de.
type ReactionHandler struct {
	reactionService services.ReactionService
}

// NewReactionHandler, constructor.
func NewReactionHandler(reactionService services.ReactionService) *ReactionHandler {
	return &ReactionHandler{reactionService: reactionService}
}

// Toggle godoc
// POST /api/messages/{id}/react
//
// Aynı emoji ile tekrar istek atılırsa reaction kaldırılır (toggle).
// Response: eklendiyse { "ok": true }, kaldırıldıysa { "removed": true }.
//
// Body:
//
//	{ "emoji": "👍" }
func (h *ReactionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.ToggleReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	added, err := h.reactionService.ToggleReaction(r.Context(), user.ID, r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	if !added {
		pkg.JSON(w, http.StatusOK, map[string]bool{"removed": true})
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}
