package repository

import (
	"context"
	"time"

	"github.com/akinalp/gooverchat/models"
)

// MessageRepository, sohbet mesajları için interface.
//
// Sıralama her yerde (created_at, rowid): aynı anda oluşan mesajlar ekleme sırasını korur.
//
//   - ListPage: viewer'a gizlenmiş mesajlar hariç, beforeID'den daha eski en fazla
//     limit mesaj, yeniden eskiye (DESC); service katmanı ters çevirir
//   - Search: FTS5 prefix araması; silinmiş ve viewer'a gizlenmiş mesajlar hariç,
//     yeniden eskiye
//   - FilterIDs: verilen id'lerden sohbete ait olan ve excludeSenderID'ye ait olmayanlar
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	ListPage(ctx context.Context, conversationID, viewerID, beforeID string, limit int) ([]models.Message, error)
	Latest(ctx context.Context, conversationID, viewerID string) (*models.Message, error)
	UpdateText(ctx context.Context, id, text string, editedAt time.Time) error
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
	Hide(ctx context.Context, userID, messageID string, at time.Time) error
	Search(ctx context.Context, conversationID, viewerID, query string, limit int) ([]models.Message, error)
	FilterIDs(ctx context.Context, conversationID string, ids []string, excludeSenderID string) ([]string, error)
}
