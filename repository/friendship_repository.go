package repository

import (
	"context"
	"time"

	"github.com/akinalp/gooverchat/models"
)

// FriendshipRepository, arkadaşlık kayıtları için interface.
//
// Kayıt yönlüdür (user_id → friend_id) ama çift başına tek satır tutulur:
//   - GetByPair / DeleteByPair: yön fark etmez
//   - ListFriends: accepted, iki yönden birleşik
//   - ListIncoming: friend_id = me, pending
//   - ListOutgoing: user_id = me, pending
type FriendshipRepository interface {
	Create(ctx context.Context, f *models.Friendship) error
	GetByPair(ctx context.Context, userID, otherID string) (*models.Friendship, error)
	ListFriends(ctx context.Context, userID string) ([]models.FriendshipWithUser, error)
	ListIncoming(ctx context.Context, userID string) ([]models.FriendshipWithUser, error)
	ListOutgoing(ctx context.Context, userID string) ([]models.FriendshipWithUser, error)
	Accept(ctx context.Context, id string, at time.Time) error
	DeleteByPair(ctx context.Context, userID, otherID string) (bool, error)
}

// BlockRepository, yönlü engelleme kayıtları.
type BlockRepository interface {
	Block(ctx context.Context, blockerID, blockedID string, at time.Time) error
	Unblock(ctx context.Context, blockerID, blockedID string) error
	// EitherBlocked, iki kullanıcıdan biri diğerini engellemiş mi.
	EitherBlocked(ctx context.Context, userA, userB string) (bool, error)
	ListBlocked(ctx context.Context, blockerID string) ([]models.User, error)
}
