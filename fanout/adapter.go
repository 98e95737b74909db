// Package fanout, birden fazla gooverchat process'i arasında realtime broadcast köprüsü.
//
// Her node yerel broadcast'lerini bir Envelope olarak yayınlar; diğer node'lar aldıkları
// envelope'u kendi yerel bağlantılarına iletir. Teslim garantisi at-most-once:
// adapter kopukken yayınlanan envelope'lar kaybolur, istemci bir sonraki poll'da toparlar.
package fanout

import (
	"context"
	"encoding/json"
)

// Envelope, node'lar arası taşınan tek bir broadcast.
//
// Room boşsa envelope tüm bağlantılara gider. ExceptUserID / ExceptConnID
// hedef odadaki bir kullanıcının tüm bağlantılarını veya tek bir bağlantıyı dışlar.
// Payload, hedef istemcilere aynen yazılacak JSON frame'dir.
type Envelope struct {
	Origin       string          `json:"origin"`
	Room         string          `json:"room"`
	ExceptUserID string          `json:"exceptUserId,omitempty"`
	ExceptConnID string          `json:"exceptConnId,omitempty"`
	Payload      json.RawMessage `json:"payload"`
}

// Handler, alınan her envelope için çağrılır. Aynı adapter için çağrılar sıralıdır.
type Handler func(Envelope)

// Adapter, pub/sub taşıyıcısı. Publish hatası çağırana döner; çağıran loglar ve devam eder.
type Adapter interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe, aboneliği kurar ve döner; envelope'lar ctx iptal edilene
	// veya Close çağrılana kadar arka planda handler'a iletilir.
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}

// Directory, cluster genelindeki presence dizini.
//
// Her node sadece kendi bağlantı sayılarını yazar; OnlineElsewhere diğer node'lara bakar.
type Directory interface {
	Connect(ctx context.Context, userID string) error
	Disconnect(ctx context.Context, userID string) error
	OnlineElsewhere(ctx context.Context, userID string) (bool, error)
	OnlineUserIDs(ctx context.Context) ([]string, error)
	Close() error
}
