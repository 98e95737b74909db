package repository

import (
	"context"

	"github.com/akinalp/gooverchat/models"
)

// ReactionRepository, emoji reaction işlemleri için interface.
//
// Toggle: UNIQUE(message_id, user_id, emoji) sayesinde INSERT OR IGNORE eklemezse
// reaction zaten vardır ve silinir. added=true ekleme, false kaldırma demektir.
//
// GetByMessageIDs: sayfa başına tek sorgu; reaction'ı olmayan mesajlar map'te yer almaz.
type ReactionRepository interface {
	Toggle(ctx context.Context, messageID, userID, emoji string) (added bool, err error)
	GetByMessageID(ctx context.Context, messageID string) ([]models.ReactionGroup, error)
	GetByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]models.ReactionGroup, error)
}
