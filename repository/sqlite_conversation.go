package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/gooverchat/database"
	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
)

type sqliteConversationRepo struct {
	db database.TxQuerier
}

// NewSQLiteConversationRepo, constructor. Interface döner.
func NewSQLiteConversationRepo(db database.TxQuerier) ConversationRepository {
	return &sqliteConversationRepo{db: db}
}

const conversationColumns = `c.id, c.type, c.name, c.description, c.created_by, c.created_at, c.last_message_at`

// ─── Conversation ───

func (r *sqliteConversationRepo) Create(ctx context.Context, conv *models.Conversation) error {
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO conversations (id, type, name, description, created_by, created_at)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?, ?)
		RETURNING id`,
		conv.Type, conv.Name, conv.Description, conv.CreatedBy, conv.CreatedAt.UTC(),
	).Scan(&conv.ID)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (r *sqliteConversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	conv, err := scanConversation(r.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations c WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: conversation not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// FindDirect, iki kullanıcının birlikte üye olduğu direct sohbeti döner.
// Direct sohbette tam iki üye olduğundan iki EXISTS yeterlidir.
func (r *sqliteConversationRepo) FindDirect(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	conv, err := scanConversation(r.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		WHERE c.type = 'direct'
		  AND EXISTS (SELECT 1 FROM conversation_members WHERE conversation_id = c.id AND user_id = ?)
		  AND EXISTS (SELECT 1 FROM conversation_members WHERE conversation_id = c.id AND user_id = ?)
		ORDER BY c.created_at ASC
		LIMIT 1`, userA, userB))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find direct conversation: %w", err)
	}
	return conv, nil
}

func (r *sqliteConversationRepo) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		JOIN conversation_members cm ON cm.conversation_id = c.id
		WHERE cm.user_id = ?
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	convs := []models.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return convs, nil
}

func (r *sqliteConversationRepo) TouchLastMessage(ctx context.Context, conversationID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET last_message_at = ? WHERE id = ?`, at.UTC(), conversationID)
	if err != nil {
		return fmt.Errorf("failed to update last_message_at: %w", err)
	}
	return nil
}

// ─── Members ───

func (r *sqliteConversationRepo) AddMember(ctx context.Context, member *models.Member) error {
	if member.Role == "" {
		member.Role = models.RoleMember
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversation_members (conversation_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(conversation_id, user_id) DO NOTHING`,
		member.ConversationID, member.UserID, member.Role, member.JoinedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to add conversation member: %w", err)
	}
	return nil
}

func (r *sqliteConversationRepo) RemoveMember(ctx context.Context, conversationID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM conversation_members WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove conversation member: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: not a member of this conversation", pkg.ErrNotFound)
	}
	return nil
}

func (r *sqliteConversationRepo) IsMember(ctx context.Context, conversationID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_members WHERE conversation_id = ? AND user_id = ?
		)`, conversationID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

func (r *sqliteConversationRepo) GetMember(ctx context.Context, conversationID, userID string) (*models.Member, error) {
	rows, err := r.db.QueryContext(ctx, memberQuery+` WHERE cm.conversation_id = ? AND cm.user_id = ?`,
		conversationID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	members, err := scanMembers(rows)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: not a member of this conversation", pkg.ErrNotFound)
	}
	return &members[0], nil
}

func (r *sqliteConversationRepo) ListMembers(ctx context.Context, conversationID string) ([]models.Member, error) {
	rows, err := r.db.QueryContext(ctx, memberQuery+` WHERE cm.conversation_id = ? ORDER BY cm.joined_at`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return scanMembers(rows)
}

func (r *sqliteConversationRepo) ListMembersByConversationIDs(ctx context.Context, ids []string) (map[string][]models.Member, error) {
	result := make(map[string][]models.Member, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders, args := inClause(ids)
	rows, err := r.db.QueryContext(ctx,
		memberQuery+` WHERE cm.conversation_id IN (`+placeholders+`) ORDER BY cm.conversation_id, cm.joined_at`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members by conversation ids: %w", err)
	}
	members, err := scanMembers(rows)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		result[m.ConversationID] = append(result[m.ConversationID], m)
	}
	return result, nil
}

func (r *sqliteConversationRepo) MemberUserIDs(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM conversation_members WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list member ids: %w", err)
	}
	return scanIDs(rows)
}

func (r *sqliteConversationRepo) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM conversations ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation ids: %w", err)
	}
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ids: %w", err)
	}
	return ids, nil
}

const memberQuery = `
	SELECT cm.conversation_id, cm.user_id, cm.role, cm.joined_at,
		cm.last_read_message_id, cm.last_read_at,
		u.id, u.username, u.email, u.display_name, u.password_hash, u.created_at
	FROM conversation_members cm
	JOIN users u ON u.id = cm.user_id`

func scanMembers(rows *sql.Rows) ([]models.Member, error) {
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		var lastReadID sql.NullString
		var lastReadAt sql.NullTime
		var email, displayName sql.NullString
		user := &models.User{}

		if err := rows.Scan(
			&m.ConversationID, &m.UserID, &m.Role, &m.JoinedAt,
			&lastReadID, &lastReadAt,
			&user.ID, &user.Username, &email, &displayName, &user.PasswordHash, &user.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}

		if lastReadID.Valid {
			m.LastReadMessageID = &lastReadID.String
		}
		if lastReadAt.Valid {
			t := lastReadAt.Time
			m.LastReadAt = &t
		}
		if email.Valid {
			user.Email = &email.String
		}
		if displayName.Valid {
			user.DisplayName = &displayName.String
		}
		user.PasswordHash = ""
		m.User = user
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var name, description, createdBy sql.NullString
	var lastMessageAt sql.NullTime

	if err := row.Scan(
		&conv.ID, &conv.Type, &name, &description, &createdBy, &conv.CreatedAt, &lastMessageAt,
	); err != nil {
		return nil, err
	}

	if name.Valid {
		conv.Name = &name.String
	}
	if description.Valid {
		conv.Description = &description.String
	}
	if createdBy.Valid {
		conv.CreatedBy = &createdBy.String
	}
	if lastMessageAt.Valid {
		t := lastMessageAt.Time
		conv.LastMessageAt = &t
	}
	return conv, nil
}
