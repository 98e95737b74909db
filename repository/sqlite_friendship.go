package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/akinalp/gooverchat/database"
	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
)

type sqliteFriendshipRepo struct {
	db database.TxQuerier
}

// NewSQLiteFriendshipRepo, constructor. Interface döner.
func NewSQLiteFriendshipRepo(db database.TxQuerier) FriendshipRepository {
	return &sqliteFriendshipRepo{db: db}
}

const friendshipColumns = `id, user_id, friend_id, status, created_at, updated_at`

// friendWithUserSelect, kaydı karşı tarafın users satırıyla birleştirir.
// JOIN koşulu (f.friend_id veya f.user_id) çağıran sorguda eklenir.
const friendWithUserSelect = `
	SELECT f.id, f.status, f.created_at,
		u.id, u.username, u.email, u.display_name, u.password_hash, u.created_at
	FROM friendships f`

func (r *sqliteFriendshipRepo) Create(ctx context.Context, f *models.Friendship) error {
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = f.CreatedAt
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO friendships (id, user_id, friend_id, status, created_at, updated_at)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?, ?)
		RETURNING id`,
		f.UserID, f.FriendID, f.Status, f.CreatedAt.UTC(), f.UpdatedAt.UTC(),
	).Scan(&f.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: friend request already sent", pkg.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create friendship: %w", err)
	}
	return nil
}

// GetByPair, A→B veya B→A kaydını döner. Yoksa pkg.ErrNotFound.
func (r *sqliteFriendshipRepo) GetByPair(ctx context.Context, userID, otherID string) (*models.Friendship, error) {
	var f models.Friendship
	err := r.db.QueryRowContext(ctx, `
		SELECT `+friendshipColumns+`
		FROM friendships
		WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)
		LIMIT 1`,
		userID, otherID, otherID, userID,
	).Scan(&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: friendship not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get friendship: %w", err)
	}
	return &f, nil
}

// ListFriends, accepted kayıtlar, kullanıcı adına göre. İki yön UNION ALL ile birleşir;
// çift başına tek satır olduğundan tekrar oluşmaz.
func (r *sqliteFriendshipRepo) ListFriends(ctx context.Context, userID string) ([]models.FriendshipWithUser, error) {
	friends, err := r.list(ctx, friendWithUserSelect+`
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = ? AND f.status = 'accepted'
		UNION ALL`+friendWithUserSelect+`
		JOIN users u ON u.id = f.user_id
		WHERE f.friend_id = ? AND f.status = 'accepted'`,
		userID, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(friends, func(i, j int) bool {
		return strings.ToLower(friends[i].User.Username) < strings.ToLower(friends[j].User.Username)
	})
	return friends, nil
}

func (r *sqliteFriendshipRepo) ListIncoming(ctx context.Context, userID string) ([]models.FriendshipWithUser, error) {
	return r.list(ctx, friendWithUserSelect+`
		JOIN users u ON u.id = f.user_id
		WHERE f.friend_id = ? AND f.status = 'pending'
		ORDER BY f.created_at DESC`,
		userID)
}

func (r *sqliteFriendshipRepo) ListOutgoing(ctx context.Context, userID string) ([]models.FriendshipWithUser, error) {
	return r.list(ctx, friendWithUserSelect+`
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = ? AND f.status = 'pending'
		ORDER BY f.created_at DESC`,
		userID)
}

// Accept, pending kaydı accepted yapar. Kayıt yoksa ya da pending değilse pkg.ErrNotFound.
func (r *sqliteFriendshipRepo) Accept(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE friendships SET status = 'accepted', updated_at = ?
		WHERE id = ? AND status = 'pending'`,
		at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to accept friendship: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: friend request not found", pkg.ErrNotFound)
	}
	return nil
}

// DeleteByPair, çiftin kaydını (hangi durumda olursa olsun) siler. Silinecek kayıt
// yoksa false döner.
func (r *sqliteFriendshipRepo) DeleteByPair(ctx context.Context, userID, otherID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM friendships
		WHERE (user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)`,
		userID, otherID, otherID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete friendship: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

func (r *sqliteFriendshipRepo) list(ctx context.Context, query string, args ...any) ([]models.FriendshipWithUser, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list friendships: %w", err)
	}
	defer rows.Close()

	results := []models.FriendshipWithUser{}
	for rows.Next() {
		var fw models.FriendshipWithUser
		var email, displayName sql.NullString
		user := &models.User{}

		if err := rows.Scan(
			&fw.ID, &fw.Status, &fw.CreatedAt,
			&user.ID, &user.Username, &email, &displayName, &user.PasswordHash, &user.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan friendship: %w", err)
		}
		if email.Valid {
			user.Email = &email.String
		}
		if displayName.Valid {
			user.DisplayName = &displayName.String
		}
		user.PasswordHash = ""
		fw.User = user
		results = append(results, fw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating friendships: %w", err)
	}
	return results, nil
}

// ─── Blocks ───

type sqliteBlockRepo struct {
	db database.TxQuerier
}

// NewSQLiteBlockRepo, constructor. Interface döner.
func NewSQLiteBlockRepo(db database.TxQuerier) BlockRepository {
	return &sqliteBlockRepo{db: db}
}

// Block, tekrar çağrılırsa no-op.
func (r *sqliteBlockRepo) Block(ctx context.Context, blockerID, blockedID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_blocks (blocker_id, blocked_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(blocker_id, blocked_id) DO NOTHING`,
		blockerID, blockedID, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to block user: %w", err)
	}
	return nil
}

// Unblock, engel yoksa no-op.
func (r *sqliteBlockRepo) Unblock(ctx context.Context, blockerID, blockedID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_blocks WHERE blocker_id = ? AND blocked_id = ?`, blockerID, blockedID)
	if err != nil {
		return fmt.Errorf("failed to unblock user: %w", err)
	}
	return nil
}

func (r *sqliteBlockRepo) EitherBlocked(ctx context.Context, userA, userB string) (bool, error) {
	var blocked bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_blocks
			WHERE (blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)
		)`, userA, userB, userB, userA).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return blocked, nil
}

func (r *sqliteBlockRepo) ListBlocked(ctx context.Context, blockerID string) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.email, u.display_name, u.password_hash, u.created_at
		FROM user_blocks b
		JOIN users u ON u.id = b.blocked_id
		WHERE b.blocker_id = ?
		ORDER BY b.created_at DESC`, blockerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked users: %w", err)
	}
	return scanUsers(rows)
}
