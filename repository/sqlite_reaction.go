package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/akinalp/gooverchat/database"
	"github.com/akinalp/gooverchat/models"
)

type sqliteReactionRepo struct {
	db database.TxQuerier
}

// NewSQLiteReactionRepo, constructor. Interface döner.
func NewSQLiteReactionRepo(db database.TxQuerier) ReactionRepository {
	return &sqliteReactionRepo{db: db}
}

func (r *sqliteReactionRepo) Toggle(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_reactions (id, message_id, user_id, emoji)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?)`,
		messageID, userID, emoji)
	if err != nil {
		return false, fmt.Errorf("toggle reaction insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("toggle reaction rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return true, nil
	}

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM message_reactions WHERE message_id = ? AND user_id = ? AND emoji = ?`,
		messageID, userID, emoji); err != nil {
		return false, fmt.Errorf("toggle reaction delete: %w", err)
	}
	return false, nil
}

func (r *sqliteReactionRepo) GetByMessageID(ctx context.Context, messageID string) ([]models.ReactionGroup, error) {
	grouped, err := r.GetByMessageIDs(ctx, []string{messageID})
	if err != nil {
		return nil, err
	}
	if groups, ok := grouped[messageID]; ok {
		return groups, nil
	}
	return []models.ReactionGroup{}, nil
}

// GetByMessageIDs, GROUP BY emoji ile aynı emojileri birleştirir;
// GROUP_CONCAT(user_id) tepki veren kullanıcıları virgülle ayırır.
func (r *sqliteReactionRepo) GetByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]models.ReactionGroup, error) {
	result := make(map[string][]models.ReactionGroup)
	if len(messageIDs) == 0 {
		return result, nil
	}

	placeholders, args := inClause(messageIDs)
	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id, emoji, COUNT(*) AS count, GROUP_CONCAT(user_id) AS users
		FROM message_reactions
		WHERE message_id IN (`+placeholders+`)
		GROUP BY message_id, emoji
		ORDER BY message_id, MIN(created_at) ASC, emoji`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("get reactions by message ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var messageID, emoji, usersStr string
		var count int
		if err := rows.Scan(&messageID, &emoji, &count, &usersStr); err != nil {
			return nil, fmt.Errorf("scan reaction group: %w", err)
		}
		result[messageID] = append(result[messageID], models.ReactionGroup{
			Emoji: emoji,
			Count: count,
			Users: strings.Split(usersStr, ","),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reaction rows: %w", err)
	}
	return result, nil
}
