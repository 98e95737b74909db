package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"

	"github.com/akinalp/gooverchat/database"
	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
	"github.com/akinalp/gooverchat/repository"
	"github.com/akinalp/gooverchat/ws"
)

// userSearchLimit, /api/users/search sonuç üst sınırı.
const userSearchLimit = 20

// FriendshipService, arkadaşlık, engelleme ve kullanıcı arama iş mantığı.
//
// İşlemler karşı tarafın user id'siyle yapılır. Her değişiklik karşı tarafın
// user:<id> odasına friend:* event'i olarak gider; engelleme için push yoktur.
type FriendshipService interface {
	ListFriends(ctx context.Context, userID string) ([]models.FriendshipWithUser, error)
	ListRequests(ctx context.Context, userID string) (*models.FriendRequests, error)

	// SendRequest, pending kayıt açar. Karşı taraf zaten istek göndermişse ikisi arkadaş olur.
	SendRequest(ctx context.Context, userID string, req *models.UserActionRequest) (*models.FriendshipWithUser, error)
	// Accept, req.UserID'nin bana gönderdiği isteği kabul eder.
	Accept(ctx context.Context, userID string, req *models.UserActionRequest) (*models.FriendshipWithUser, error)
	// Decline, gelen isteği reddeder ya da gönderdiğim isteği geri çeker.
	Decline(ctx context.Context, userID string, req *models.UserActionRequest) error
	// Remove, kabul edilmiş arkadaşlığı siler.
	Remove(ctx context.Context, userID string, req *models.UserActionRequest) error

	// Block, engeller ve aradaki arkadaşlık kaydını (pending dahil) siler.
	Block(ctx context.Context, userID string, req *models.UserActionRequest) error
	Unblock(ctx context.Context, userID string, req *models.UserActionRequest) error
	ListBlocked(ctx context.Context, userID string) ([]models.User, error)

	SearchUsers(ctx context.Context, userID, query string) ([]models.User, error)
}

type friendshipService struct {
	db         *sql.DB
	friendRepo repository.FriendshipRepository
	blockRepo  repository.BlockRepository
	userRepo   repository.UserRepository
	hub        ws.Broadcaster
	clock      clock.Clock
}

// NewFriendshipService, constructor.
// db: Block'un engel + kayıt silmeyi tek transaction'da yapması için gerekir.
func NewFriendshipService(
	db *sql.DB,
	friendRepo repository.FriendshipRepository,
	blockRepo repository.BlockRepository,
	userRepo repository.UserRepository,
	hub ws.Broadcaster,
	clk clock.Clock,
) FriendshipService {
	if clk == nil {
		clk = clock.New()
	}
	return &friendshipService{
		db:         db,
		friendRepo: friendRepo,
		blockRepo:  blockRepo,
		userRepo:   userRepo,
		hub:        hub,
		clock:      clk,
	}
}

func (s *friendshipService) ListFriends(ctx context.Context, userID string) ([]models.FriendshipWithUser, error) {
	return s.friendRepo.ListFriends(ctx, userID)
}

func (s *friendshipService) ListRequests(ctx context.Context, userID string) (*models.FriendRequests, error) {
	incoming, err := s.friendRepo.ListIncoming(ctx, userID)
	if err != nil {
		return nil, err
	}
	outgoing, err := s.friendRepo.ListOutgoing(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.FriendRequests{Incoming: incoming, Outgoing: outgoing}, nil
}

func (s *friendshipService) SendRequest(ctx context.Context, userID string, req *models.UserActionRequest) (*models.FriendshipWithUser, error) {
	target, err := s.target(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	blocked, err := s.blockRepo.EitherBlocked(ctx, userID, target.ID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, fmt.Errorf("%w: cannot send friend request", pkg.ErrForbidden)
	}

	existing, err := s.friendRepo.GetByPair(ctx, userID, target.ID)
	if err != nil && !errors.Is(err, pkg.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		switch {
		case existing.Status == models.FriendshipAccepted:
			return nil, fmt.Errorf("%w: already friends", pkg.ErrAlreadyExists)
		case existing.UserID == target.ID:
			// Karşılıklı istek: karşı tarafın isteği kabul edilir.
			return s.accept(ctx, userID, existing, target)
		default:
			return nil, fmt.Errorf("%w: friend request already sent", pkg.ErrAlreadyExists)
		}
	}

	now := s.clock.Now().UTC()
	f := &models.Friendship{
		UserID:    userID,
		FriendID:  target.ID,
		Status:    models.FriendshipPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.friendRepo.Create(ctx, f); err != nil {
		return nil, err
	}

	sender, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.push(target.ID, ws.OpFriendRequest, withUser(f, sender))

	return withUser(f, target), nil
}

func (s *friendshipService) Accept(ctx context.Context, userID string, req *models.UserActionRequest) (*models.FriendshipWithUser, error) {
	requester, err := s.target(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	f, err := s.friendRepo.GetByPair(ctx, userID, requester.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: friend request not found", pkg.ErrNotFound)
	}
	if f.Status != models.FriendshipPending || f.UserID != requester.ID {
		return nil, fmt.Errorf("%w: friend request not found", pkg.ErrNotFound)
	}
	return s.accept(ctx, userID, f, requester)
}

// accept, requester → userID isteğini kabul eder ve requester'a bildirir.
func (s *friendshipService) accept(ctx context.Context, userID string, f *models.Friendship, requester *models.User) (*models.FriendshipWithUser, error) {
	now := s.clock.Now().UTC()
	if err := s.friendRepo.Accept(ctx, f.ID, now); err != nil {
		return nil, err
	}
	f.Status = models.FriendshipAccepted
	f.UpdatedAt = now

	acceptor, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.push(requester.ID, ws.OpFriendAccept, withUser(f, acceptor))

	return withUser(f, requester), nil
}

func (s *friendshipService) Decline(ctx context.Context, userID string, req *models.UserActionRequest) error {
	other, err := s.target(ctx, userID, req)
	if err != nil {
		return err
	}

	f, err := s.friendRepo.GetByPair(ctx, userID, other.ID)
	if err != nil || f.Status != models.FriendshipPending {
		return fmt.Errorf("%w: friend request not found", pkg.ErrNotFound)
	}
	if _, err := s.friendRepo.DeleteByPair(ctx, userID, other.ID); err != nil {
		return err
	}

	s.push(other.ID, ws.OpFriendDecline, map[string]string{"user_id": userID})
	return nil
}

func (s *friendshipService) Remove(ctx context.Context, userID string, req *models.UserActionRequest) error {
	other, err := s.target(ctx, userID, req)
	if err != nil {
		return err
	}

	f, err := s.friendRepo.GetByPair(ctx, userID, other.ID)
	if err != nil || f.Status != models.FriendshipAccepted {
		return fmt.Errorf("%w: not friends with this user", pkg.ErrNotFound)
	}
	if _, err := s.friendRepo.DeleteByPair(ctx, userID, other.ID); err != nil {
		return err
	}

	s.push(other.ID, ws.OpFriendRemove, map[string]string{"user_id": userID})
	return nil
}

func (s *friendshipService) Block(ctx context.Context, userID string, req *models.UserActionRequest) error {
	other, err := s.target(ctx, userID, req)
	if err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := repository.NewSQLiteBlockRepo(tx).Block(ctx, userID, other.ID, now); err != nil {
			return err
		}
		_, err := repository.NewSQLiteFriendshipRepo(tx).DeleteByPair(ctx, userID, other.ID)
		return err
	})
}

func (s *friendshipService) Unblock(ctx context.Context, userID string, req *models.UserActionRequest) error {
	other, err := s.target(ctx, userID, req)
	if err != nil {
		return err
	}
	return s.blockRepo.Unblock(ctx, userID, other.ID)
}

func (s *friendshipService) ListBlocked(ctx context.Context, userID string) ([]models.User, error) {
	return s.blockRepo.ListBlocked(ctx, userID)
}

// SearchUsers, username veya email içinde geçen kullanıcılar; çağıran hariç.
func (s *friendshipService) SearchUsers(ctx context.Context, userID, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < models.MinUserSearchLength {
		return nil, fmt.Errorf("%w: search query must be at least %d characters", pkg.ErrBadRequest, models.MinUserSearchLength)
	}
	return s.userRepo.Search(ctx, query, userID, userSearchLimit)
}

// target, isteği doğrular ve hedef kullanıcıyı yükler. Kendisi hedef olamaz.
func (s *friendshipService) target(ctx context.Context, userID string, req *models.UserActionRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}
	if req.UserID == userID {
		return nil, fmt.Errorf("%w: cannot target yourself", pkg.ErrBadRequest)
	}
	return s.userRepo.GetByID(ctx, req.UserID)
}

func (s *friendshipService) push(userID string, op ws.Op, data any) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToUsers([]string{userID}, ws.Event{Op: op, Data: data})
}

func withUser(f *models.Friendship, user *models.User) *models.FriendshipWithUser {
	return &models.FriendshipWithUser{
		ID:        f.ID,
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
		User:      user,
	}
}
