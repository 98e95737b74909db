// Package main: HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Korumalı endpoint'ler auth helper'ı ile sarılır (access token zorunlu).
// /ws kendi handshake doğrulamasını yapar; socket token ister.
package main

import (
	"net/http"

	"github.com/akinalp/gooverchat/handlers"
	"github.com/akinalp/gooverchat/middleware"
	"github.com/akinalp/gooverchat/repository"
	"github.com/akinalp/gooverchat/services"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
func initRoutes(mux *http.ServeMux, h *Handlers, authService services.AuthService, userRepo repository.UserRepository) {
	authMw := middleware.NewAuthMiddleware(authService, userRepo)
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(http.HandlerFunc(handler))
	}

	// Health
	mux.HandleFunc("GET /api/health", handlers.Health)

	// Auth
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/refresh", h.Auth.Refresh)
	mux.HandleFunc("POST /api/auth/logout", h.Auth.Logout)
	mux.Handle("POST /api/auth/logout-all", auth(h.Auth.LogoutAll))
	mux.Handle("GET /api/users/me", auth(h.Auth.Me))
	mux.Handle("GET /api/auth/socket-token", auth(h.Auth.SocketToken))

	// Conversations
	mux.Handle("GET /api/conversations", auth(h.Conversation.List))
	mux.Handle("POST /api/conversations", auth(h.Conversation.Create))
	mux.Handle("GET /api/conversations/{id}", auth(h.Conversation.Get))
	mux.Handle("POST /api/conversations/{id}/members", auth(h.Conversation.AddMember))
	mux.Handle("DELETE /api/conversations/{id}/members/{userId}", auth(h.Conversation.RemoveMember))

	// Messages
	mux.Handle("GET /api/conversations/{id}/messages", auth(h.Message.List))
	mux.Handle("POST /api/conversations/{id}/messages", auth(h.Message.Send))
	mux.Handle("GET /api/conversations/{id}/search", auth(h.Message.Search))
	mux.Handle("PATCH /api/messages/{id}", auth(h.Message.Edit))
	mux.Handle("POST /api/messages/{id}/delete", auth(h.Message.Delete))
	mux.Handle("DELETE /api/messages/{id}", auth(h.Message.DeleteForEveryone))
	mux.Handle("POST /api/messages/{id}/react", auth(h.Reaction.Toggle))

	// Receipts
	mux.Handle("POST /api/conversations/{id}/read", auth(h.Receipt.MarkRead))
	mux.Handle("POST /api/conversations/{id}/messages/delivered", auth(h.Receipt.MarkDelivered))

	// Friends
	mux.Handle("GET /api/friends", auth(h.Friendship.List))
	mux.Handle("GET /api/friends/requests", auth(h.Friendship.ListRequests))
	mux.Handle("POST /api/friends/request", auth(h.Friendship.SendRequest))
	mux.Handle("POST /api/friends/accept", auth(h.Friendship.Accept))
	mux.Handle("POST /api/friends/decline", auth(h.Friendship.Decline))
	mux.Handle("POST /api/friends/remove", auth(h.Friendship.Remove))

	// Users
	mux.Handle("GET /api/users/search", auth(h.Friendship.Search))
	mux.Handle("GET /api/users/blocked", auth(h.Friendship.ListBlocked))
	mux.Handle("POST /api/users/block", auth(h.Friendship.Block))
	mux.Handle("POST /api/users/unblock", auth(h.Friendship.Unblock))

	// WebSocket
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)
}
