package models

import "time"

// Session, refresh token oturumu. Refresh token DB'de tutulur; logout ve
// rotation sırasında satır silinerek token iptal edilir.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}
