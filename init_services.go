// Package main: Service katmanı başlatma.
//
// initServices, tüm service implementasyonlarını oluşturur.
// Her service, ihtiyaç duyduğu repository interface'lerini ve diğer
// dependency'leri constructor injection ile alır.
package main

import (
	"database/sql"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/akinalp/gooverchat/config"
	"github.com/akinalp/gooverchat/pkg/ratelimit"
	"github.com/akinalp/gooverchat/repository"
	"github.com/akinalp/gooverchat/services"
	"github.com/akinalp/gooverchat/ws"
)

// Services, tüm service instance'larını tutan container struct.
type Services struct {
	Auth         services.AuthService
	Conversation services.ConversationService
	Message      services.MessageService
	Reaction     services.ReactionService
	Receipt      services.ReceiptService
	Friendship   services.FriendshipService
}

// RateLimiters, REST yüzeyindeki limiter'lar.
type RateLimiters struct {
	Login   *ratelimit.Limiter // IP başına
	Message *ratelimit.Limiter // kullanıcı başına
}

// initServices, tüm service'leri ve rate limiter'ları oluşturur.
// hub, push yapan service'lerin ortak dependency'si. mirror nil olabilir.
func initServices(db *sql.DB, repos *Repositories, hub ws.Broadcaster, mirror repository.MembershipMirror, cfg *config.Config) (*Services, *RateLimiters) {
	clk := clock.New()

	authService := services.NewAuthService(repos.User, repos.Session, services.AuthConfig{
		Secret:        cfg.JWT.Secret,
		AccessExpiry:  time.Duration(cfg.JWT.AccessTokenExpiry) * time.Minute,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshTokenExpiry) * 24 * time.Hour,
		SocketExpiry:  time.Duration(cfg.JWT.SocketTokenExpiry) * time.Second,
	}, clk)

	svcs := &Services{
		Auth:         authService,
		Conversation: services.NewConversationService(db, repos.Conversation, repos.User, repos.Message, mirror, clk),
		Message: services.NewMessageService(repos.Message, repos.Conversation, repos.Reaction, repos.Receipt, hub,
			services.MessageLimits{
				EditWindow: cfg.Messages.EditWindow,
				MaxLength:  cfg.Messages.MaxLength,
				PageLimit:  cfg.Messages.PageLimit,
			}, clk),
		Reaction:   services.NewReactionService(repos.Reaction, repos.Message, repos.Conversation, hub),
		Receipt:    services.NewReceiptService(repos.Receipt, repos.Message, repos.Conversation, clk),
		Friendship: services.NewFriendshipService(db, repos.Friendship, repos.Block, repos.User, hub, clk),
	}

	rl := cfg.RateLimit
	limiters := &RateLimiters{
		Login:   ratelimit.New(rl.LoginAttempts, rl.LoginWindow, rl.LoginWindow, clk),
		Message: ratelimit.New(rl.MessageBurst, rl.MessageWindow, rl.MessageCooldown, clk),
	}

	return svcs, limiters
}
