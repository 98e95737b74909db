package repository

import (
	"context"
	"time"

	"github.com/akinalp/gooverchat/models"
)

// MembershipStore, realtime katmanının join yetkisi için sorduğu tek soru.
// SQLite conversation repository'si ve Postgres store bu interface'i karşılar.
type MembershipStore interface {
	IsMember(ctx context.Context, conversationID, userID string) (bool, error)
}

// ConversationRepository, sohbet ve üyelik işlemleri için interface.
//
//   - FindDirect: iki kullanıcı arasındaki direct sohbeti bulur, yoksa nil, nil döner
//   - ListForUser: kullanıcının üye olduğu sohbetler, son aktiviteye göre (yeni önce)
//   - ListMembersByConversationIDs: üyeleri kullanıcı bilgisiyle batch yükler (N+1 önleme)
type ConversationRepository interface {
	MembershipStore

	Create(ctx context.Context, conv *models.Conversation) error
	AddMember(ctx context.Context, member *models.Member) error
	// RemoveMember, üyelik satırını siler. Üye değilse pkg.ErrNotFound.
	RemoveMember(ctx context.Context, conversationID, userID string) error
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	FindDirect(ctx context.Context, userA, userB string) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	GetMember(ctx context.Context, conversationID, userID string) (*models.Member, error)
	ListMembers(ctx context.Context, conversationID string) ([]models.Member, error)
	ListMembersByConversationIDs(ctx context.Context, ids []string) (map[string][]models.Member, error)
	MemberUserIDs(ctx context.Context, conversationID string) ([]string, error)
	// ListIDs, tüm sohbet id'leri. Mirror backfill'i için.
	ListIDs(ctx context.Context) ([]string, error)
	TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error
}
