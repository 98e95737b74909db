package models

import "time"

// Delivery, bir mesajın bir alıcının cihazına ulaştığı an.
// (message_id, user_id) başına en fazla bir kayıt; ilk kayıt kazanır.
type Delivery struct {
	MessageID   string    `json:"message_id"`
	UserID      string    `json:"user_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// ReadCursor, bir üyenin "bu mesaja kadar okudum" imleci.
// MessageCreatedAt, imlecin gösterdiği mesajın oluşturulma zamanıdır; görülme
// türetmesi mesaj sırasını bu alan üzerinden karşılaştırır.
type ReadCursor struct {
	UserID           string    `json:"user_id"`
	MessageID        string    `json:"message_id"`
	MessageCreatedAt time.Time `json:"message_created_at"`
	LastReadAt       time.Time `json:"last_read_at"`
}

// MarkReadRequest, POST /api/conversations/{id}/read body'si.
type MarkReadRequest struct {
	LastReadMessageID string `json:"last_read_message_id"`
}

// MarkDeliveredRequest, POST /api/conversations/{id}/messages/delivered body'si.
type MarkDeliveredRequest struct {
	MessageIDs []string `json:"message_ids"`
}

// MarkDeliveredResult, teslim bildirimi sonucu. Marked, kabul edilen id sayısıdır
// (daha önce kayıtlı olanlar dahil).
type MarkDeliveredResult struct {
	OK     bool `json:"ok"`
	Marked int  `json:"marked"`
}
