package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"

	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
	"github.com/akinalp/gooverchat/repository"
)

// maxDeliveredBatch, tek bir teslim bildirimindeki id sayısı üst sınırı.
const maxDeliveredBatch = 500

// ReceiptService, okuma imleci ve teslim bildirimi iş mantığı.
//
// İkisi de idempotent: istemci her poll'da aynı bildirimleri tekrar gönderebilir.
// Bu yüzden push yoktur; gönderen taraf durumu bir sonraki sayfa isteğinde görür.
type ReceiptService interface {
	MarkRead(ctx context.Context, userID, conversationID, messageID string) error
	MarkDelivered(ctx context.Context, userID, conversationID string, messageIDs []string) (*models.MarkDeliveredResult, error)
}

type receiptService struct {
	receiptRepo repository.ReceiptRepository
	messageRepo repository.MessageRepository
	convRepo    repository.ConversationRepository
	clock       clock.Clock
}

// NewReceiptService, constructor.
func NewReceiptService(
	receiptRepo repository.ReceiptRepository,
	messageRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	clk clock.Clock,
) ReceiptService {
	if clk == nil {
		clk = clock.New()
	}
	return &receiptService{
		receiptRepo: receiptRepo,
		messageRepo: messageRepo,
		convRepo:    convRepo,
		clock:       clk,
	}
}

// MarkRead, üyenin okuma imlecini ileri taşır.
//
//   - message id boş veya mesaj bu sohbette değil → 400
//   - çağıran üye değil → 404
//   - daha eski bir mesaj veya mevcut imleç → no-op (last_read_at değişmez)
func (s *receiptService) MarkRead(ctx context.Context, userID, conversationID, messageID string) error {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return fmt.Errorf("%w: last_read_message_id is required", pkg.ErrBadRequest)
	}

	if _, err := s.convRepo.GetMember(ctx, conversationID, userID); err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return fmt.Errorf("%w: conversation not found", pkg.ErrNotFound)
		}
		return err
	}

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return fmt.Errorf("%w: message not in conversation", pkg.ErrBadRequest)
		}
		return err
	}
	if msg.ConversationID != conversationID {
		return fmt.Errorf("%w: message not in conversation", pkg.ErrBadRequest)
	}

	_, err = s.receiptRepo.AdvanceReadCursor(ctx, conversationID, userID, messageID, s.clock.Now().UTC())
	return err
}

// MarkDelivered, sohbete ait ve çağıranın göndermediği mesajları teslim edildi olarak kaydeder.
// Marked, kabul edilen id sayısıdır; daha önce kayıtlı olanlar da sayılır.
func (s *receiptService) MarkDelivered(ctx context.Context, userID, conversationID string, messageIDs []string) (*models.MarkDeliveredResult, error) {
	isMember, err := s.convRepo.IsMember(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, fmt.Errorf("%w: conversation not found", pkg.ErrNotFound)
	}

	ids := dedupe(messageIDs)
	if len(ids) > maxDeliveredBatch {
		return nil, fmt.Errorf("%w: at most %d message ids per request", pkg.ErrBadRequest, maxDeliveredBatch)
	}
	if len(ids) == 0 {
		return &models.MarkDeliveredResult{OK: true, Marked: 0}, nil
	}

	accepted, err := s.messageRepo.FilterIDs(ctx, conversationID, ids, userID)
	if err != nil {
		return nil, err
	}
	if len(accepted) > 0 {
		if _, err := s.receiptRepo.InsertDeliveries(ctx, userID, accepted, s.clock.Now().UTC()); err != nil {
			return nil, err
		}
	}

	return &models.MarkDeliveredResult{OK: true, Marked: len(accepted)}, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
