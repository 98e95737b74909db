package services

import (
	"context"
	"fmt"

	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
	"github.com/akinalp/gooverchat/repository"
	"github.com/akinalp/gooverchat/ws"
)

// ReactionService, emoji reaction iş mantığı interface'i.
//
// ToggleReaction: aynı emoji tekrar gönderilirse kaldırılır (toggle pattern).
// Frontend tek bir "react" butonuyla hem ekler hem kaldırır.
type ReactionService interface {
	ToggleReaction(ctx context.Context, userID, messageID string, req *models.ToggleReactionRequest) (added bool, err error)
}

type reactionService struct {
	reactionRepo repository.ReactionRepository
	messageRepo  repository.MessageRepository
	convRepo     repository.ConversationRepository
	hub          ws.Broadcaster
}

// NewReactionService, constructor.
// messageRepo: toggle öncesi mesajın varlığını ve sohbetini doğrulamak için gerekir.
func NewReactionService(
	reactionRepo repository.ReactionRepository,
	messageRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	hub ws.Broadcaster,
) ReactionService {
	return &reactionService{
		reactionRepo: reactionRepo,
		messageRepo:  messageRepo,
		convRepo:     convRepo,
		hub:          hub,
	}
}

// ToggleReaction, reaction'ı ekler veya kaldırır ve üyelere reaction:update push eder.
//
// Akış:
// 1. Emoji validation
// 2. Mesaj varlık + üyelik kontrolü
// 3. Toggle
// 4. Güncel grup listesini al ve push et
func (s *reactionService) ToggleReaction(ctx context.Context, userID, messageID string, req *models.ToggleReactionRequest) (bool, error) {
	if err := req.Validate(); err != nil {
		return false, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	isMember, err := s.convRepo.IsMember(ctx, message.ConversationID, userID)
	if err != nil {
		return false, err
	}
	if !isMember {
		return false, fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	if message.DeletedAt != nil {
		return false, fmt.Errorf("%w: message was deleted", pkg.ErrBadRequest)
	}

	added, err := s.reactionRepo.Toggle(ctx, messageID, userID, req.Emoji)
	if err != nil {
		return false, fmt.Errorf("failed to toggle reaction: %w", err)
	}

	reactions, err := s.reactionRepo.GetByMessageID(ctx, messageID)
	if err != nil {
		return false, fmt.Errorf("failed to get reactions after toggle: %w", err)
	}

	pushToMembers(ctx, s.convRepo, s.hub, message.ConversationID, ws.Event{
		Op: ws.OpReactionUpdate,
		Data: models.ReactionUpdate{
			MessageID:      messageID,
			ConversationID: message.ConversationID,
			Reactions:      reactions,
		},
	})

	return added, nil
}
