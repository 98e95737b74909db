package repository

import (
	"context"
	"time"

	"github.com/akinalp/gooverchat/models"
)

// ReceiptRepository, teslim kayıtları ve okuma imleçleri için interface.
//
// Teslim kayıtları (message_id, user_id) başına tekildir; tekrar eden bildirimler
// ON CONFLICT DO NOTHING ile yutulur ve ilk delivered_at korunur.
//
// Okuma imleci sadece ileri gider: AdvanceReadCursor daha eski (veya aynı) bir mesaj için
// çağrılırsa hiçbir şey değişmez ve advanced=false döner.
type ReceiptRepository interface {
	InsertDeliveries(ctx context.Context, userID string, messageIDs []string, at time.Time) (inserted int64, err error)
	DeliveriesForMessages(ctx context.Context, messageIDs []string) ([]models.Delivery, error)
	AdvanceReadCursor(ctx context.Context, conversationID, userID, messageID string, at time.Time) (advanced bool, err error)
	ReadCursors(ctx context.Context, conversationID string) ([]models.ReadCursor, error)
}
