package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/gooverchat/database"
	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
)

type sqliteSessionRepo struct {
	db database.TxQuerier
}

// NewSQLiteSessionRepo, constructor. Interface döner.
func NewSQLiteSessionRepo(db database.TxQuerier) SessionRepository {
	return &sqliteSessionRepo{db: db}
}

// hashRefreshToken, DB'de tutulan token_hash değeri.
func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r *sqliteSessionRepo) Create(ctx context.Context, session *models.Session) error {
	if session.RefreshToken == "" {
		return fmt.Errorf("%w: empty refresh token", pkg.ErrBadRequest)
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at)
		VALUES (lower(hex(randomblob(8))), ?, ?, ?, ?)
		RETURNING id`,
		session.UserID, hashRefreshToken(session.RefreshToken),
		session.ExpiresAt.UTC(), session.CreatedAt.UTC(),
	).Scan(&session.ID)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Consume, DELETE ... RETURNING ile okuma ve silmeyi tek statement'ta yapar.
// Süresi dolmuş oturum da silinir ve döner; süre kontrolü çağırana aittir.
func (r *sqliteSessionRepo) Consume(ctx context.Context, refreshToken string) (*models.Session, error) {
	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, `
		DELETE FROM sessions WHERE token_hash = ?
		RETURNING id, user_id, expires_at, created_at`,
		hashRefreshToken(refreshToken),
	).Scan(&session.ID, &session.UserID, &session.ExpiresAt, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume session: %w", err)
	}
	return session, nil
}

func (r *sqliteSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

func (r *sqliteSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
