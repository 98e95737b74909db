package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
	"github.com/akinalp/gooverchat/repository"
	"github.com/akinalp/gooverchat/ws"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
	searchLimit      = 50
)

// MessageService, mesaj sayfalama, gönderme, düzenleme, silme ve arama iş mantığı.
//
// Mesaj içeriği REST ile yazılır. Push (message:new/update/delete) sohbet üyelerinin
// user:<id> odalarına gider; sohbet odasına join etmemiş cihazlar da alır.
type MessageService interface {
	ListPage(ctx context.Context, userID, conversationID, cursor string, limit int) (*models.MessagePage, error)
	Send(ctx context.Context, userID, conversationID string, req *models.SendMessageRequest) (*models.Message, error)
	Edit(ctx context.Context, userID, messageID string, req *models.EditMessageRequest) (*models.Message, error)
	Delete(ctx context.Context, userID, messageID string, scope models.DeleteScope) error
	Search(ctx context.Context, userID, conversationID, query string) ([]models.Message, error)
}

// MessageLimits, config.MessagesConfig'in service'e düşen kısmı.
type MessageLimits struct {
	EditWindow time.Duration
	MaxLength  int
	PageLimit  int
}

type messageService struct {
	messageRepo  repository.MessageRepository
	convRepo     repository.ConversationRepository
	reactionRepo repository.ReactionRepository
	receiptRepo  repository.ReceiptRepository
	hub          ws.Broadcaster
	clock        clock.Clock
	limits       MessageLimits
}

// NewMessageService, constructor.
func NewMessageService(
	messageRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	reactionRepo repository.ReactionRepository,
	receiptRepo repository.ReceiptRepository,
	hub ws.Broadcaster,
	limits MessageLimits,
	clk clock.Clock,
) MessageService {
	if clk == nil {
		clk = clock.New()
	}
	if limits.PageLimit <= 0 || limits.PageLimit > maxPageLimit {
		limits.PageLimit = defaultPageLimit
	}
	return &messageService{
		messageRepo:  messageRepo,
		convRepo:     convRepo,
		reactionRepo: reactionRepo,
		receiptRepo:  receiptRepo,
		hub:          hub,
		clock:        clk,
		limits:       limits,
	}
}

// ListPage, cursor'dan daha eski en fazla limit mesajı eskiden yeniye döner.
//
// limit+1 satır okunur: fazladan satır varsa has_more=true ve next_cursor sayfanın
// en eski mesajıdır. Çağıranın kendi mesajlarına türetilmiş status eklenir.
func (s *messageService) ListPage(ctx context.Context, userID, conversationID, cursor string, limit int) (*models.MessagePage, error) {
	if err := s.requireMember(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.limits.PageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	rows, err := s.messageRepo.ListPage(ctx, conversationID, userID, cursor, limit+1)
	if err != nil {
		return nil, err
	}

	page := &models.MessagePage{CurrentUserID: userID}
	if len(rows) > limit {
		rows = rows[:limit]
		page.HasMore = true
	}

	// DESC → ASC
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	if page.HasMore && len(rows) > 0 {
		oldest := rows[0].ID
		page.NextCursor = &oldest
	}

	if err := s.enrich(ctx, userID, conversationID, rows); err != nil {
		return nil, err
	}
	page.Messages = rows
	return page, nil
}

// enrich, reaction'ları batch yükler ve çağıranın kendi mesajlarına status ekler.
func (s *messageService) enrich(ctx context.Context, userID, conversationID string, messages []models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	ids := make([]string, len(messages))
	var own []string
	for i, m := range messages {
		ids[i] = m.ID
		if m.SenderID == userID {
			own = append(own, m.ID)
		}
	}

	reactions, err := s.reactionRepo.GetByMessageIDs(ctx, ids)
	if err != nil {
		return err
	}

	var deliveries []models.Delivery
	var cursors []models.ReadCursor
	if len(own) > 0 {
		if deliveries, err = s.receiptRepo.DeliveriesForMessages(ctx, own); err != nil {
			return err
		}
		if cursors, err = s.receiptRepo.ReadCursors(ctx, conversationID); err != nil {
			return err
		}
	}

	for i := range messages {
		m := &messages[i]
		if groups, ok := reactions[m.ID]; ok {
			m.Reactions = groups
		}
		if m.SenderID == userID {
			status := DeriveStatus(m, deliveries, cursors)
			m.Status = &status
		}
	}
	return nil
}

// Send, yeni mesaj oluşturur ve üyelere message:new push eder.
func (s *messageService) Send(ctx context.Context, userID, conversationID string, req *models.SendMessageRequest) (*models.Message, error) {
	if err := req.Validate(s.limits.MaxLength); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}
	if err := s.requireMember(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	if req.ReplyToID != nil {
		target, err := s.messageRepo.GetByID(ctx, *req.ReplyToID)
		if err != nil {
			if errors.Is(err, pkg.ErrNotFound) {
				return nil, fmt.Errorf("%w: reply target not found", pkg.ErrBadRequest)
			}
			return nil, err
		}
		if target.ConversationID != conversationID {
			return nil, fmt.Errorf("%w: reply target is in another conversation", pkg.ErrBadRequest)
		}
	}

	text := req.Text
	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       userID,
		Type:           req.Type,
		Text:           &text,
		ReplyToID:      req.ReplyToID,
		CreatedAt:      s.clock.Now().UTC(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.convRepo.TouchLastMessage(ctx, conversationID, msg.CreatedAt); err != nil {
		return nil, err
	}

	// Sender bilgisiyle birlikte geri oku.
	created, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	created.Status = &models.MessageStatus{}

	s.push(ctx, conversationID, ws.Event{Op: ws.OpMessageNew, Data: created})
	return created, nil
}

// Edit, sadece gönderen tarafından, silinmemiş mesajda ve düzenleme penceresi içinde yapılabilir.
func (s *messageService) Edit(ctx context.Context, userID, messageID string, req *models.EditMessageRequest) (*models.Message, error) {
	if err := req.Validate(s.limits.MaxLength); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, fmt.Errorf("%w: only the sender can edit a message", pkg.ErrForbidden)
	}
	if msg.DeletedAt != nil {
		return nil, fmt.Errorf("%w: message was deleted", pkg.ErrBadRequest)
	}

	now := s.clock.Now().UTC()
	if s.limits.EditWindow > 0 && now.Sub(msg.CreatedAt) > s.limits.EditWindow {
		return nil, fmt.Errorf("%w: edit window has passed", pkg.ErrForbidden)
	}

	if err := s.messageRepo.UpdateText(ctx, messageID, req.Text, now); err != nil {
		return nil, err
	}

	updated, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	s.push(ctx, updated.ConversationID, ws.Event{Op: ws.OpMessageUpdate, Data: updated})
	return updated, nil
}

// Delete, scope=me için mesajı sadece çağırandan gizler (idempotent).
// scope=everyone sadece gönderene açıktır: metin temizlenir, deleted_at set edilir.
func (s *messageService) Delete(ctx context.Context, userID, messageID string, scope models.DeleteScope) error {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if err := s.requireMember(ctx, msg.ConversationID, userID); err != nil {
		return err
	}

	now := s.clock.Now().UTC()

	switch scope {
	case models.DeleteForMe, "":
		return s.messageRepo.Hide(ctx, userID, messageID, now)

	case models.DeleteForEveryone:
		if msg.SenderID != userID {
			return fmt.Errorf("%w: only the sender can delete for everyone", pkg.ErrForbidden)
		}
		if err := s.messageRepo.SoftDelete(ctx, messageID, now); err != nil {
			return err
		}
		s.push(ctx, msg.ConversationID, ws.Event{
			Op:   ws.OpMessageDelete,
			Data: models.MessageRef{ID: messageID, ConversationID: msg.ConversationID},
		})
		return nil

	default:
		return fmt.Errorf("%w: invalid delete scope", pkg.ErrBadRequest)
	}
}

// Search, sohbette metin araması. Sonuçlar yeni önce; en fazla searchLimit mesaj.
func (s *messageService) Search(ctx context.Context, userID, conversationID, query string) ([]models.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", pkg.ErrBadRequest)
	}
	if err := s.requireMember(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	results, err := s.messageRepo.Search(ctx, conversationID, userID, query, searchLimit)
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, userID, conversationID, results); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *messageService) requireMember(ctx context.Context, conversationID, userID string) error {
	isMember, err := s.convRepo.IsMember(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return fmt.Errorf("%w: conversation not found", pkg.ErrNotFound)
	}
	return nil
}

// push, event'i sohbetin tüm üyelerine gönderir. Üye listesi okunamazsa push atlanır;
// istemci bir sonraki poll'da durumu yakalar.
func (s *messageService) push(ctx context.Context, conversationID string, event ws.Event) {
	pushToMembers(ctx, s.convRepo, s.hub, conversationID, event)
}

func pushToMembers(ctx context.Context, convRepo repository.ConversationRepository, hub ws.Broadcaster, conversationID string, event ws.Event) {
	if hub == nil {
		return
	}
	memberIDs, err := convRepo.MemberUserIDs(ctx, conversationID)
	if err != nil {
		return
	}
	hub.BroadcastToUsers(memberIDs, event)
}
