package handlers

import (
	"context"
	"net/http"

	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
	"github.com/akinalp/gooverchat/services"
)

// FriendshipHandler, arkadaşlık, engelleme ve kullanıcı arama endpoint'leri.
// Yazma endpoint'lerinin hepsi { "user_id": "..." } body'si alır.
type FriendshipHandler struct {
	friendshipService services.FriendshipService
}

// NewFriendshipHandler, constructor.
func NewFriendshipHandler(friendshipService services.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{friendshipService: friendshipService}
}

// List godoc
// GET /api/friends
func (h *FriendshipHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	friends, err := h.friendshipService.ListFriends(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, friends)
}

// ListRequests godoc
// GET /api/friends/requests
func (h *FriendshipHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	requests, err := h.friendshipService.ListRequests(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, requests)
}

// SendRequest godoc
// POST /api/friends/request
//
// Karşı taraf zaten istek göndermişse yanıt accepted kaydıdır.
func (h *FriendshipHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	user, req, ok := h.userAction(w, r)
	if !ok {
		return
	}

	friendship, err := h.friendshipService.SendRequest(r.Context(), user.ID, req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, friendship)
}

// Accept godoc
// POST /api/friends/accept
func (h *FriendshipHandler) Accept(w http.ResponseWriter, r *http.Request) {
	user, req, ok := h.userAction(w, r)
	if !ok {
		return
	}

	friendship, err := h.friendshipService.Accept(r.Context(), user.ID, req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, friendship)
}

// Decline godoc
// POST /api/friends/decline
func (h *FriendshipHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.respondOK(w, r, h.friendshipService.Decline, "friend request declined")
}

// Remove godoc
// POST /api/friends/remove
func (h *FriendshipHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.respondOK(w, r, h.friendshipService.Remove, "friend removed")
}

// Block godoc
// POST /api/users/block
func (h *FriendshipHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.respondOK(w, r, h.friendshipService.Block, "user blocked")
}

// Unblock godoc
// POST /api/users/unblock
func (h *FriendshipHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.respondOK(w, r, h.friendshipService.Unblock, "user unblocked")
}

// ListBlocked godoc
// GET /api/users/blocked
func (h *FriendshipHandler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	blocked, err := h.friendshipService.ListBlocked(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, blocked)
}

// Search godoc
// GET /api/users/search?q=...
func (h *FriendshipHandler) Search(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	users, err := h.friendshipService.SearchUsers(r.Context(), user.ID, r.URL.Query().Get("q"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, users)
}

func (h *FriendshipHandler) userAction(w http.ResponseWriter, r *http.Request) (*models.User, *models.UserActionRequest, bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return nil, nil, false
	}
	var req models.UserActionRequest
	if !decodeJSON(w, r, &req) {
		return nil, nil, false
	}
	return user, &req, true
}

type userActionFunc func(ctx context.Context, userID string, req *models.UserActionRequest) error

func (h *FriendshipHandler) respondOK(w http.ResponseWriter, r *http.Request, action userActionFunc, message string) {
	user, req, ok := h.userAction(w, r)
	if !ok {
		return
	}
	if err := action(r.Context(), user.ID, req); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": message})
}
