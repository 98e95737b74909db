package services

import (
	"time"

	"github.com/akinalp/gooverchat/models"
)

// DeriveStatus, bir mesajın teslim ve görülme zamanını türetir. Saf fonksiyondur.
//
//   - DeliveredAt: gönderen dışındaki alıcıların en erken teslim kaydı
//   - SeenAt: imleci bu mesaja eşit ya da daha yeni bir mesajı gösteren
//     (gönderen dışındaki) üyelerin en erken last_read_at değeri
//
// Görülme teslimden bağımsızdır: teslim kaydı hiç yokken SeenAt dolu olabilir.
// cursors içindeki MessageCreatedAt, imlecin gösterdiği mesajın zamanıdır.
func DeriveStatus(msg *models.Message, deliveries []models.Delivery, cursors []models.ReadCursor) models.MessageStatus {
	var status models.MessageStatus

	for _, d := range deliveries {
		if d.MessageID != msg.ID || d.UserID == msg.SenderID {
			continue
		}
		status.DeliveredAt = earliest(status.DeliveredAt, d.DeliveredAt)
	}

	for _, c := range cursors {
		if c.UserID == msg.SenderID {
			continue
		}
		if c.MessageID == msg.ID || c.MessageCreatedAt.After(msg.CreatedAt) {
			status.SeenAt = earliest(status.SeenAt, c.LastReadAt)
		}
	}

	return status
}

func earliest(current *time.Time, candidate time.Time) *time.Time {
	if current == nil || candidate.Before(*current) {
		t := candidate
		return &t
	}
	return current
}
