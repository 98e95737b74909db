package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/akinalp/gooverchat/database"
	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
)

type sqliteMessageRepo struct {
	db database.TxQuerier
}

// NewSQLiteMessageRepo, constructor. Interface döner.
func NewSQLiteMessageRepo(db database.TxQuerier) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

const messageSelect = `
	SELECT m.id, m.conversation_id, m.sender_id, m.type, m.text, m.reply_to_id,
		m.created_at, m.edited_at, m.deleted_at,
		u.id, u.username, u.email, u.display_name, u.password_hash, u.created_at
	FROM messages m
	JOIN users u ON u.id = m.sender_id`

func (r *sqliteMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.Type == "" {
		msg.Type = models.MessageText
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, type, text, reply_to_id, created_at)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		msg.ConversationID, msg.SenderID, msg.Type, msg.Text, msg.ReplyToID, msg.CreatedAt.UTC(),
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *sqliteMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	msg, err := scanMessage(r.db.QueryRowContext(ctx, messageSelect+` WHERE m.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// ListPage, cursor-based pagination.
//
// Cursor mesajı CTE ile bir kez okunur; (created_at, rowid) çifti ondan küçük olanlar alınır.
// Cursor bulunamazsa sayfa boş döner.
func (r *sqliteMessageRepo) ListPage(ctx context.Context, conversationID, viewerID, beforeID string, limit int) ([]models.Message, error) {
	hidden := ` AND NOT EXISTS (SELECT 1 FROM message_hidden h WHERE h.message_id = m.id AND h.user_id = ?)`

	var rows *sql.Rows
	var err error
	if beforeID != "" {
		rows, err = r.db.QueryContext(ctx, `
			WITH cur AS (SELECT created_at, rowid AS rid FROM messages WHERE id = ?)`+
			messageSelect+`, cur
			WHERE m.conversation_id = ?`+hidden+`
			  AND (m.created_at < cur.created_at OR (m.created_at = cur.created_at AND m.rowid < cur.rid))
			ORDER BY m.created_at DESC, m.rowid DESC
			LIMIT ?`,
			beforeID, conversationID, viewerID, limit,
		)
	} else {
		rows, err = r.db.QueryContext(ctx, messageSelect+`
			WHERE m.conversation_id = ?`+hidden+`
			ORDER BY m.created_at DESC, m.rowid DESC
			LIMIT ?`,
			conversationID, viewerID, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// Latest, viewer'ın görebildiği en yeni mesajı döner; sohbet boşsa nil, nil.
func (r *sqliteMessageRepo) Latest(ctx context.Context, conversationID, viewerID string) (*models.Message, error) {
	page, err := r.ListPage(ctx, conversationID, viewerID, "", 1)
	if err != nil {
		return nil, err
	}
	if len(page) == 0 {
		return nil, nil
	}
	return &page[0], nil
}

func (r *sqliteMessageRepo) UpdateText(ctx context.Context, id, text string, editedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE messages SET text = ?, edited_at = ? WHERE id = ? AND deleted_at IS NULL`,
		text, editedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	return nil
}

// SoftDelete, metni temizler ve deleted_at'i set eder. Satır silinmez:
// okuma imleçleri ve teslim kayıtları mesaja bağlı kalır.
func (r *sqliteMessageRepo) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE messages SET text = NULL, deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		deletedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	return nil
}

func (r *sqliteMessageRepo) Hide(ctx context.Context, userID, messageID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO message_hidden (user_id, message_id, hidden_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, message_id) DO NOTHING`,
		userID, messageID, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to hide message: %w", err)
	}
	return nil
}

func (r *sqliteMessageRepo) FilterIDs(ctx context.Context, conversationID string, ids []string, excludeSenderID string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	placeholders, args := inClause(ids)
	args = append([]any{conversationID, excludeSenderID}, args...)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM messages
		WHERE conversation_id = ? AND sender_id != ? AND id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to filter message ids: %w", err)
	}
	defer rows.Close()

	found := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan message id: %w", err)
		}
		found = append(found, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message ids: %w", err)
	}
	return found, nil
}

// Search, messages_fts üzerinde MATCH. Sorgu sanitizeFTSQuery ile her kelimesi
// tırnaklı prefix terimine çevrilir; FTS5 operatörleri kullanıcı girdisinden gelmez.
func (r *sqliteMessageRepo) Search(ctx context.Context, conversationID, viewerID, query string, limit int) ([]models.Message, error) {
	match := sanitizeFTSQuery(query)
	if match == "" {
		return []models.Message{}, nil
	}

	rows, err := r.db.QueryContext(ctx, messageSelect+`
		JOIN messages_fts fts ON fts.rowid = m.rowid
		WHERE fts.messages_fts MATCH ?
		  AND m.conversation_id = ?
		  AND m.deleted_at IS NULL
		  AND NOT EXISTS (SELECT 1 FROM message_hidden h WHERE h.message_id = m.id AND h.user_id = ?)
		ORDER BY m.created_at DESC, m.rowid DESC
		LIMIT ?`,
		match, conversationID, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}
	return messages, nil
}

// sanitizeFTSQuery, "merhaba, dün!" → `"merhaba"* "dün"*`. Harf ve rakam dışındaki her
// karakter ayraçtır; FTS5 operatörleri kullanıcı girdisinden gelmez. Kelimeler arasında
// FTS5'in örtük AND'i geçerlidir.
func sanitizeFTSQuery(query string) string {
	words := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, len(words))
	for i, w := range words {
		terms[i] = `"` + w + `"*`
	}
	return strings.Join(terms, " ")
}

func scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var text, replyTo sql.NullString
	var editedAt, deletedAt sql.NullTime
	var email, displayName sql.NullString
	sender := &models.User{}

	if err := row.Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Type, &text, &replyTo,
		&msg.CreatedAt, &editedAt, &deletedAt,
		&sender.ID, &sender.Username, &email, &displayName, &sender.PasswordHash, &sender.CreatedAt,
	); err != nil {
		return nil, err
	}

	if text.Valid {
		msg.Text = &text.String
	}
	if replyTo.Valid {
		msg.ReplyToID = &replyTo.String
	}
	if editedAt.Valid {
		t := editedAt.Time
		msg.EditedAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		msg.DeletedAt = &t
	}
	if email.Valid {
		sender.Email = &email.String
	}
	if displayName.Valid {
		sender.DisplayName = &displayName.String
	}
	sender.PasswordHash = ""
	msg.Sender = sender
	msg.Reactions = []models.ReactionGroup{}
	return msg, nil
}
