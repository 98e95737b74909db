// Package main: Handler katmanı başlatma.
//
// initHandlers, tüm HTTP handler'larını oluşturur.
// Handler'lar "thin" dir: sadece HTTP parse + service call + response write.
package main

import (
	"github.com/akinalp/gooverchat/config"
	"github.com/akinalp/gooverchat/handlers"
	"github.com/akinalp/gooverchat/ws"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Conversation *handlers.ConversationHandler
	Message      *handlers.MessageHandler
	Reaction     *handlers.ReactionHandler
	Receipt      *handlers.ReceiptHandler
	Friendship   *handlers.FriendshipHandler
	WS           *ws.Handler
}

func initHandlers(svcs *Services, limiters *RateLimiters, hub *ws.Hub, cfg *config.Config) *Handlers {
	return &Handlers{
		Auth:         handlers.NewAuthHandler(svcs.Auth, limiters.Login),
		Conversation: handlers.NewConversationHandler(svcs.Conversation),
		Message:      handlers.NewMessageHandler(svcs.Message, limiters.Message),
		Reaction:     handlers.NewReactionHandler(svcs.Reaction),
		Receipt:      handlers.NewReceiptHandler(svcs.Receipt),
		Friendship:   handlers.NewFriendshipHandler(svcs.Friendship),
		WS:           ws.NewHandler(hub, svcs.Auth, cfg.Server.CORSOrigins),
	}
}
