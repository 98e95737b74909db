package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akinalp/gooverchat/pkg/logger"
)

// MembershipMirror, bir sohbetin üye setini ikincil bir store'a yazar.
// Kaynak her zaman SQLite'taki conversation_members'tır; mirror tam seti alır,
// böylece kaçırılmış bir yazım bir sonraki değişiklikte kendiliğinden düzelir.
type MembershipMirror interface {
	SyncConversation(ctx context.Context, conversationID string, userIDs []string) error
}

// PostgresMembershipStore, join yetkisini Postgres'teki conversation_members tablosuna sorar.
// Birden fazla node'un aynı üyelik görünümünü paylaştığı kurulumlar için: her node
// SQLite'a yazdıktan sonra seti buraya yansıtır (MembershipMirror).
type PostgresMembershipStore struct {
	pool *pgxpool.Pool
}

// NewPostgresMembershipStore, pool'u kurar ve bağlantıyı ping ile doğrular.
func NewPostgresMembershipStore(ctx context.Context, dsn string) (*PostgresMembershipStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse membership postgres dsn: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create membership pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping membership postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, membershipSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to prepare membership schema: %w", err)
	}

	logger.Infof("[membership] connected to postgres membership store")
	return &PostgresMembershipStore{pool: pool}, nil
}

const membershipSchema = `
	CREATE TABLE IF NOT EXISTS conversation_members (
		conversation_id TEXT NOT NULL,
		user_id         TEXT NOT NULL,
		PRIMARY KEY (conversation_id, user_id)
	)`

func (s *PostgresMembershipStore) IsMember(ctx context.Context, conversationID, userID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_members WHERE conversation_id = $1 AND user_id = $2
		)`, conversationID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

// SyncConversation, sohbetin satırlarını tek transaction'da verilen setle değiştirir.
// Boş set sohbetin tüm satırlarını siler.
func (s *PostgresMembershipStore) SyncConversation(ctx context.Context, conversationID string, userIDs []string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM conversation_members WHERE conversation_id = $1`, conversationID); err != nil {
			return fmt.Errorf("failed to clear mirrored members: %w", err)
		}
		if len(userIDs) == 0 {
			return nil
		}

		rows := make([][]any, len(userIDs))
		for i, id := range userIDs {
			rows[i] = []any{conversationID, id}
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"conversation_members"},
			[]string{"conversation_id", "user_id"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("failed to copy mirrored members: %w", err)
		}
		return nil
	})
}

// Close, pool'daki tüm bağlantıları kapatır.
func (s *PostgresMembershipStore) Close() {
	s.pool.Close()
}
