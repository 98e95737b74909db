// Package main: Repository katmanı başlatma.
//
// initRepositories, tüm repository implementasyonlarını oluşturur.
// Her repository aynı *sql.DB'yi alır ve interface döner.
package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/akinalp/gooverchat/config"
	"github.com/akinalp/gooverchat/pkg/logger"
	"github.com/akinalp/gooverchat/repository"
)

// Repositories, tüm repository instance'larını tutan container struct.
type Repositories struct {
	User         repository.UserRepository
	Session      repository.SessionRepository
	Conversation repository.ConversationRepository
	Message      repository.MessageRepository
	Reaction     repository.ReactionRepository
	Receipt      repository.ReceiptRepository
	Friendship   repository.FriendshipRepository
	Block        repository.BlockRepository
}

func initRepositories(conn *sql.DB) *Repositories {
	return &Repositories{
		User:         repository.NewSQLiteUserRepo(conn),
		Session:      repository.NewSQLiteSessionRepo(conn),
		Conversation: repository.NewSQLiteConversationRepo(conn),
		Message:      repository.NewSQLiteMessageRepo(conn),
		Reaction:     repository.NewSQLiteReactionRepo(conn),
		Receipt:      repository.NewSQLiteReceiptRepo(conn),
		Friendship:   repository.NewSQLiteFriendshipRepo(conn),
		Block:        repository.NewSQLiteBlockRepo(conn),
	}
}

// initMembership, conversation:join için sorulan store'u kurar.
//
// MEMBERSHIP_POSTGRES_DSN doluysa Postgres, değilse SQLite'taki conversation_members.
// Postgres açılışta SQLite'tan doldurulur ve sonraki her üyelik yazımında
// ConversationService tarafından güncellenir (dönen mirror). Postgres'e bağlanılamazsa
// ya da backfill başarısız olursa SQLite'a düşülür. Sonuç TTL cache ile sarılır.
// Dönen fonksiyon shutdown'da çağrılır.
func initMembership(cfg *config.Config, repos *Repositories) (repository.MembershipStore, repository.MembershipMirror, func()) {
	var store repository.MembershipStore = repos.Conversation
	var mirror repository.MembershipMirror
	closers := []func(){}

	if dsn := cfg.Database.MembershipPostgresDSN; dsn != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		pg, err := repository.NewPostgresMembershipStore(ctx, dsn)
		if err != nil {
			logger.Warnf("[main] postgres membership unavailable, using sqlite: %v", err)
		} else if n, err := repository.SyncAllMemberships(ctx, repos.Conversation, pg); err != nil {
			logger.Warnf("[main] postgres membership backfill failed after %d conversations, using sqlite: %v", n, err)
			pg.Close()
		} else {
			logger.Infof("[main] postgres membership backfilled (%d conversations)", n)
			store = pg
			mirror = pg
			closers = append(closers, pg.Close)
		}
		cancel()
	}

	cached, closeCache := repository.NewCachedMembershipStore(store, cfg.Realtime.MembershipCacheTTL)
	closers = append(closers, closeCache)

	return cached, mirror, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}
