package repository

import (
	"context"
	"time"

	"github.com/akinalp/gooverchat/models"
)

// SessionRepository, refresh token oturumları için interface.
//
// Token'ın kendisi saklanmaz; Create ve Consume düz token alır, özetini kendisi hesaplar.
//
//   - Consume: oturumu siler ve silinen satırı döner. Aynı token ikinci kez
//     tüketilemez; eşzamanlı iki refresh'ten sadece biri satırı alır.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	Consume(ctx context.Context, refreshToken string) (*models.Session, error)
	DeleteByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
