package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenScope, bir JWT'nin hangi yüzeyde geçerli olduğunu belirtir.
// HTTP middleware sadece access, realtime handshake sadece socket kabul eder.
type TokenScope string

const (
	ScopeAccess TokenScope = "access"
	ScopeSocket TokenScope = "socket"
)

// TokenClaims, JWT payload'u.
//
// models paketinde durur çünkü services, ws ve middleware aynı tipi kullanır;
// her katman models'e bağımlı olabilir, birbirine değil.
type TokenClaims struct {
	UserID   string     `json:"user_id"`
	Username string     `json:"username"`
	Email    string     `json:"email,omitempty"`
	Scope    TokenScope `json:"scope"`
	jwt.RegisteredClaims
}

// Identity, doğrulanmış bir realtime bağlantısının sahibi.
type Identity struct {
	UserID string
	Email  string
}

// AuthTokens, register/login/refresh response'u.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// SocketToken, GET /api/auth/socket-token response'u.
type SocketToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RefreshRequest, POST /api/auth/refresh ve logout body'si.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Validate, refresh için token zorunludur. Logout boş token'ı kabul eder.
func (r *RefreshRequest) Validate() error {
	r.RefreshToken = strings.TrimSpace(r.RefreshToken)
	if r.RefreshToken == "" {
		return fmt.Errorf("refresh_token is required")
	}
	return nil
}
