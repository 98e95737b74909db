package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/gooverchat/database"
	"github.com/akinalp/gooverchat/models"
)

type sqliteReceiptRepo struct {
	db database.TxQuerier
}

// NewSQLiteReceiptRepo, constructor. Interface döner.
func NewSQLiteReceiptRepo(db database.TxQuerier) ReceiptRepository {
	return &sqliteReceiptRepo{db: db}
}

func (r *sqliteReceiptRepo) InsertDeliveries(ctx context.Context, userID string, messageIDs []string, at time.Time) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	values := strings.TrimSuffix(strings.Repeat("(?, ?, ?),", len(messageIDs)), ",")
	args := make([]any, 0, len(messageIDs)*3)
	for _, id := range messageIDs {
		args = append(args, id, userID, at.UTC())
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO message_deliveries (message_id, user_id, delivered_at)
		VALUES `+values+`
		ON CONFLICT(message_id, user_id) DO NOTHING`,
		args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert deliveries: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (r *sqliteReceiptRepo) DeliveriesForMessages(ctx context.Context, messageIDs []string) ([]models.Delivery, error) {
	if len(messageIDs) == 0 {
		return []models.Delivery{}, nil
	}

	placeholders, args := inClause(messageIDs)
	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id, user_id, delivered_at
		FROM message_deliveries
		WHERE message_id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := []models.Delivery{}
	for rows.Next() {
		var d models.Delivery
		if err := rows.Scan(&d.MessageID, &d.UserID, &d.DeliveredAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deliveries: %w", err)
	}
	return deliveries, nil
}

// AdvanceReadCursor, imleci sadece yeni mesaj mevcut imleçten sonra geliyorsa taşır.
// Mevcut imlecin gösterdiği mesaj artık yoksa imleç serbestçe yazılır.
func (r *sqliteReceiptRepo) AdvanceReadCursor(ctx context.Context, conversationID, userID, messageID string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE conversation_members
		SET last_read_message_id = ?, last_read_at = ?
		WHERE conversation_id = ? AND user_id = ?
		  AND (
			last_read_message_id IS NULL
			OR NOT EXISTS (SELECT 1 FROM messages WHERE id = conversation_members.last_read_message_id)
			OR EXISTS (
				SELECT 1 FROM messages cur, messages nxt
				WHERE cur.id = conversation_members.last_read_message_id
				  AND nxt.id = ?
				  AND (nxt.created_at > cur.created_at
				       OR (nxt.created_at = cur.created_at AND nxt.rowid > cur.rowid))
			)
		  )`,
		messageID, at.UTC(), conversationID, userID, messageID)
	if err != nil {
		return false, fmt.Errorf("failed to advance read cursor: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ReadCursors, sohbetteki imleci olan tüm üyelerin imlecini, imleç mesajının
// oluşturulma zamanıyla birlikte döner.
func (r *sqliteReceiptRepo) ReadCursors(ctx context.Context, conversationID string) ([]models.ReadCursor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT cm.user_id, m.id, m.created_at, cm.last_read_at
		FROM conversation_members cm
		JOIN messages m ON m.id = cm.last_read_message_id
		WHERE cm.conversation_id = ? AND cm.last_read_at IS NOT NULL`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load read cursors: %w", err)
	}
	defer rows.Close()

	cursors := []models.ReadCursor{}
	for rows.Next() {
		var c models.ReadCursor
		if err := rows.Scan(&c.UserID, &c.MessageID, &c.MessageCreatedAt, &c.LastReadAt); err != nil {
			return nil, fmt.Errorf("failed to scan read cursor: %w", err)
		}
		cursors = append(cursors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating read cursors: %w", err)
	}
	return cursors, nil
}
