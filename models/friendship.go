package models

import (
	"fmt"
	"strings"
	"time"
)

// FriendshipStatus, arkadaşlık kaydının durumu.
//
// Engelleme ayrı tabloda (user_blocks) tutulur; friendships sadece istek ve
// kabul edilmiş arkadaşlığı taşır.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// Friendship, friendships tablosunun satırı. UserID isteği gönderen, FriendID hedeftir.
type Friendship struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	FriendID  string           `json:"friend_id"`
	Status    FriendshipStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// FriendshipWithUser, kaydı karşı tarafın bilgisiyle döner.
// Karşı taraf: ben gönderdiysem hedef, bana geldiyse gönderen.
type FriendshipWithUser struct {
	ID        string           `json:"id"`
	Status    FriendshipStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	User      *User            `json:"user"`
}

// FriendRequests, GET /api/friends/requests response'u.
type FriendRequests struct {
	Incoming []FriendshipWithUser `json:"incoming"`
	Outgoing []FriendshipWithUser `json:"outgoing"`
}

// UserActionRequest, hedefi tek bir kullanıcı olan işlemlerin body'si:
// arkadaşlık isteği/kabul/ret/çıkarma, engelleme ve gruba üye ekleme.
type UserActionRequest struct {
	UserID string `json:"user_id"`
}

// Validate, UserID'yi normalize eder.
func (r *UserActionRequest) Validate() error {
	r.UserID = strings.TrimSpace(r.UserID)
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	return nil
}

// MinUserSearchLength, /api/users/search için en kısa sorgu.
const MinUserSearchLength = 2
