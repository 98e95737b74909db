package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/akinalp/gooverchat/database"
	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
	"github.com/akinalp/gooverchat/pkg/logger"
	"github.com/akinalp/gooverchat/repository"
)

// ConversationService, sohbet listesi, oluşturma ve detay iş mantığı.
//
// Sohbet oluşturma ve üye değişiklikleri için push yoktur: diğer üyeler değişikliği bir
// sonraki liste isteğinde görür. Çıkarılan üyenin açık bağlantısı odada kalır; yeni
// conversation:join istekleri membership cache TTL'i dolunca reddedilir.
type ConversationService interface {
	List(ctx context.Context, userID string) ([]models.ConversationDetail, error)
	Create(ctx context.Context, userID string, req *models.CreateConversationRequest) (*models.ConversationDetail, error)
	Get(ctx context.Context, userID, conversationID string) (*models.ConversationDetail, error)
	AddMember(ctx context.Context, actorID, conversationID string, req *models.UserActionRequest) (*models.ConversationDetail, error)
	RemoveMember(ctx context.Context, actorID, conversationID, targetID string) error
}

type conversationService struct {
	db          *sql.DB
	convRepo    repository.ConversationRepository
	userRepo    repository.UserRepository
	messageRepo repository.MessageRepository
	mirror      repository.MembershipMirror
	clock       clock.Clock
}

// NewConversationService, constructor.
// db: Create'in sohbet + üyeleri tek transaction'da yazması için gerekir.
// mirror nil olabilir; doluysa her üyelik yazımından sonra sohbetin tam üye seti yansıtılır.
func NewConversationService(
	db *sql.DB,
	convRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	messageRepo repository.MessageRepository,
	mirror repository.MembershipMirror,
	clk clock.Clock,
) ConversationService {
	if clk == nil {
		clk = clock.New()
	}
	return &conversationService{
		db:          db,
		convRepo:    convRepo,
		userRepo:    userRepo,
		messageRepo: messageRepo,
		mirror:      mirror,
		clock:       clk,
	}
}

// List, kullanıcının sohbetlerini son aktiviteye göre döner (yeni önce).
// Üyeler tek sorguda batch yüklenir.
func (s *conversationService) List(ctx context.Context, userID string) ([]models.ConversationDetail, error) {
	convs, err := s.convRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return []models.ConversationDetail{}, nil
	}

	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	membersByConv, err := s.convRepo.ListMembersByConversationIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	details := make([]models.ConversationDetail, 0, len(convs))
	for _, conv := range convs {
		detail, err := s.buildDetail(ctx, userID, conv, membersByConv[conv.ID])
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	return details, nil
}

// Create, yeni sohbet açar.
//
// Direct sohbette aynı iki kullanıcı arasında zaten bir sohbet varsa o döner; ikinci bir
// direct sohbet oluşturulmaz. Oluşturan kullanıcı owner rolüyle eklenir.
func (s *conversationService) Create(ctx context.Context, userID string, req *models.CreateConversationRequest) (*models.ConversationDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	others := make([]string, 0, len(req.MemberIDs))
	for _, id := range req.MemberIDs {
		if id != userID {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return nil, fmt.Errorf("%w: a conversation needs at least one other member", pkg.ErrBadRequest)
	}

	existing, err := s.userRepo.ExistingIDs(ctx, others)
	if err != nil {
		return nil, err
	}
	if len(existing) != len(others) {
		return nil, fmt.Errorf("%w: one or more members do not exist", pkg.ErrBadRequest)
	}

	if req.Type == models.ConversationDirect {
		found, err := s.convRepo.FindDirect(ctx, userID, others[0])
		if err != nil {
			return nil, err
		}
		if found != nil {
			return s.Get(ctx, userID, found.ID)
		}
	}

	now := s.clock.Now().UTC()
	conv := &models.Conversation{
		Type:      req.Type,
		CreatedBy: &userID,
		CreatedAt: now,
	}
	if req.Type == models.ConversationGroup {
		name := req.Name
		if name == "" {
			name = models.DefaultGroupName
		}
		conv.Name = &name
		if req.Description != "" {
			conv.Description = &req.Description
		}
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		txRepo := repository.NewSQLiteConversationRepo(tx)
		if err := txRepo.Create(ctx, conv); err != nil {
			return err
		}
		if err := txRepo.AddMember(ctx, &models.Member{
			ConversationID: conv.ID,
			UserID:         userID,
			Role:           models.RoleOwner,
			JoinedAt:       now,
		}); err != nil {
			return err
		}
		for _, id := range others {
			if err := txRepo.AddMember(ctx, &models.Member{
				ConversationID: conv.ID,
				UserID:         id,
				Role:           models.RoleMember,
				JoinedAt:       now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.mirrorMembers(ctx, conv.ID)
	return s.Get(ctx, userID, conv.ID)
}

// Get, sohbet detayı. Üye olmayan kullanıcı için sohbetin varlığı sızdırılmaz (404).
func (s *conversationService) Get(ctx context.Context, userID, conversationID string) (*models.ConversationDetail, error) {
	isMember, err := s.convRepo.IsMember(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, fmt.Errorf("%w: conversation not found", pkg.ErrNotFound)
	}

	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	members, err := s.convRepo.ListMembers(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(ctx, userID, *conv, members)
}

// AddMember, gruba üye ekler. Sadece owner ekleyebilir; direct sohbetin üyeleri sabittir.
func (s *conversationService) AddMember(ctx context.Context, actorID, conversationID string, req *models.UserActionRequest) (*models.ConversationDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	conv, actor, err := s.groupAndActor(ctx, actorID, conversationID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleOwner {
		return nil, fmt.Errorf("%w: only the owner can add members", pkg.ErrForbidden)
	}

	if _, err := s.userRepo.GetByID(ctx, req.UserID); err != nil {
		return nil, err
	}
	isMember, err := s.convRepo.IsMember(ctx, conv.ID, req.UserID)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, fmt.Errorf("%w: user is already a member", pkg.ErrAlreadyExists)
	}

	if err := s.convRepo.AddMember(ctx, &models.Member{
		ConversationID: conv.ID,
		UserID:         req.UserID,
		Role:           models.RoleMember,
		JoinedAt:       s.clock.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	s.mirrorMembers(ctx, conv.ID)
	return s.Get(ctx, actorID, conv.ID)
}

// RemoveMember, gruptan üye çıkarır. Kullanıcı kendini her zaman çıkarabilir (ayrılma);
// başkasını sadece owner çıkarır. Owner başkası tarafından çıkarılamaz.
func (s *conversationService) RemoveMember(ctx context.Context, actorID, conversationID, targetID string) error {
	conv, actor, err := s.groupAndActor(ctx, actorID, conversationID)
	if err != nil {
		return err
	}

	if targetID != actorID {
		if actor.Role != models.RoleOwner {
			return fmt.Errorf("%w: only the owner can remove members", pkg.ErrForbidden)
		}
		target, err := s.convRepo.GetMember(ctx, conv.ID, targetID)
		if err != nil {
			return err
		}
		if target.Role == models.RoleOwner {
			return fmt.Errorf("%w: the owner cannot be removed", pkg.ErrForbidden)
		}
	}

	if err := s.convRepo.RemoveMember(ctx, conv.ID, targetID); err != nil {
		return err
	}

	s.mirrorMembers(ctx, conv.ID)
	return nil
}

// groupAndActor, üye işlemlerinin ortak ön kontrolü: yapan üye değilse 404,
// sohbet grup değilse 400.
func (s *conversationService) groupAndActor(ctx context.Context, actorID, conversationID string) (*models.Conversation, *models.Member, error) {
	actor, err := s.convRepo.GetMember(ctx, conversationID, actorID)
	if errors.Is(err, pkg.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: conversation not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}

	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if conv.Type != models.ConversationGroup {
		return nil, nil, fmt.Errorf("%w: members of a direct conversation cannot change", pkg.ErrBadRequest)
	}
	return conv, actor, nil
}

// mirrorMembers, sohbetin güncel üye setini mirror'a yazar. Hata sadece loglanır:
// SQLite'taki yazım zaten tamamlandı ve bir sonraki senkron seti düzeltir.
func (s *conversationService) mirrorMembers(ctx context.Context, conversationID string) {
	if s.mirror == nil {
		return
	}
	ids, err := s.convRepo.MemberUserIDs(ctx, conversationID)
	if err == nil {
		err = s.mirror.SyncConversation(ctx, conversationID, ids)
	}
	if err != nil {
		logger.Warnf("[conversations] membership mirror failed for %s: %v", conversationID, err)
	}
}

func (s *conversationService) buildDetail(ctx context.Context, userID string, conv models.Conversation, members []models.Member) (*models.ConversationDetail, error) {
	last, err := s.messageRepo.Latest(ctx, conv.ID, userID)
	if err != nil {
		return nil, err
	}

	if members == nil {
		members = []models.Member{}
	}

	detail := &models.ConversationDetail{
		Conversation: conv,
		Members:      members,
		LastMessage:  last,
	}
	for _, m := range members {
		if m.UserID == userID {
			detail.LastReadMessageID = m.LastReadMessageID
			break
		}
	}
	return detail, nil
}
