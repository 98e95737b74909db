// Package services, business logic katmanını barındırır.
//
// Handler (HTTP) ile Repository (DB) arasında oturur. Tüm iş kuralları burada yaşar:
// şifre hash'leme, token üretimi, üyelik kontrolleri, okuma imleci kuralları.
//
// Service ASLA http.Request/Response bilmez; sadece domain modelleri alır/verir.
// Service ASLA doğrudan SQL çalıştırmaz; Repository interface'lerini kullanır.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
	"github.com/akinalp/gooverchat/repository"
)

const (
	tokenIssuer = "gooverchat"
	bcryptCost  = 12
)

// AuthService interface'i, dışarıya açık API.
// Handler bu interface'e bağımlıdır, concrete struct'a değil.
//
// VerifySocketToken ws.TokenVerifier'ı, ValidateAccessToken middleware.TokenValidator'ı karşılar.
type AuthService interface {
	Register(ctx context.Context, req *models.CreateUserRequest) (*models.AuthTokens, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthTokens, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID string) error
	GetUser(ctx context.Context, userID string) (*models.User, error)

	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
	IssueSocketToken(ctx context.Context, userID string) (*models.SocketToken, error)
	VerifySocketToken(tokenString string) *models.Identity

	// PurgeExpiredSessions, süresi dolmuş refresh oturumlarını siler.
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// AuthConfig, token süreleri ve imza anahtarı.
type AuthConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	SocketExpiry  time.Duration
}

type authService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	clock       clock.Clock

	jwtSecret  []byte
	accessExp  time.Duration
	refreshExp time.Duration
	socketExp  time.Duration
}

// NewAuthService, constructor. clk nil ise gerçek saat kullanılır.
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	cfg AuthConfig,
	clk clock.Clock,
) AuthService {
	if clk == nil {
		clk = clock.New()
	}
	return &authService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		clock:       clk,
		jwtSecret:   []byte(cfg.Secret),
		accessExp:   cfg.AccessExpiry,
		refreshExp:  cfg.RefreshExpiry,
		socketExp:   cfg.SocketExpiry,
	}
}

// Register, yeni kullanıcı kaydı oluşturur ve ilk oturumu açar.
func (s *authService) Register(ctx context.Context, req *models.CreateUserRequest) (*models.AuthTokens, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now().UTC(),
	}
	if req.DisplayName != "" {
		user.DisplayName = &req.DisplayName
	}
	if req.Email != "" {
		user.Email = &req.Email
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err // ErrAlreadyExists olabilir
	}

	return s.generateTokens(ctx, user)
}

// Login, username veya email ile giriş yapar.
// Kullanıcı yok ve şifre yanlış aynı hatayı döner; hangisinin olduğu sızdırılmaz.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthTokens, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	var user *models.User
	var err error
	if req.IsEmail() {
		user, err = s.userRepo.GetByEmail(ctx, req.Login)
	} else {
		user, err = s.userRepo.GetByUsername(ctx, req.Login)
	}
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", pkg.ErrUnauthorized)
	}

	return s.generateTokens(ctx, user)
}

// RefreshToken, refresh token'ı yeni bir token çiftiyle değiştirir.
// Eski oturum tüketilir (rotation): aynı refresh token ikinci kez kullanılamaz.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh_token is required", pkg.ErrBadRequest)
	}

	session, err := s.sessionRepo.Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid refresh token", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	if s.clock.Now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("%w: refresh token expired", pkg.ErrUnauthorized)
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	return s.generateTokens(ctx, user)
}

// Logout, refresh token'ı iptal eder. Bilinmeyen token için de başarılı döner.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if _, err := s.sessionRepo.Consume(ctx, refreshToken); err != nil && !errors.Is(err, pkg.ErrNotFound) {
		return err
	}
	return nil
}

// LogoutAll, kullanıcının tüm refresh oturumlarını siler. Verilmiş access ve socket
// token'lar süreleri dolana kadar geçerli kalır.
func (s *authService) LogoutAll(ctx context.Context, userID string) error {
	return s.sessionRepo.DeleteByUserID(ctx, userID)
}

func (s *authService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// ValidateAccessToken, HTTP access token'ını doğrular. Socket token'ı burada reddedilir.
func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}
	if claims.Scope != models.ScopeAccess {
		return nil, fmt.Errorf("%w: token scope not allowed", pkg.ErrUnauthorized)
	}
	return claims, nil
}

// IssueSocketToken, realtime handshake için kısa ömürlü token üretir.
func (s *authService) IssueSocketToken(ctx context.Context, userID string) (*models.SocketToken, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.socketExp)
	token, err := s.sign(user, models.ScopeSocket, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to sign socket token: %w", err)
	}

	return &models.SocketToken{Token: token, ExpiresAt: expiresAt.UTC()}, nil
}

// VerifySocketToken, handshake token'ını doğrular. Hata döndürmez, panic atmaz:
// bozuk, süresi dolmuş veya socket scope'u taşımayan token için nil.
func (s *authService) VerifySocketToken(tokenString string) *models.Identity {
	if tokenString == "" {
		return nil
	}
	claims, err := s.parse(tokenString)
	if err != nil || claims.Scope != models.ScopeSocket || claims.UserID == "" {
		return nil
	}
	return &models.Identity{UserID: claims.UserID, Email: claims.Email}
}

func (s *authService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx, s.clock.Now().UTC())
}

// ─── Private Helpers ───

func (s *authService) parse(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func (s *authService) sign(user *models.User, scope models.TokenScope, now, expiresAt time.Time) (string, error) {
	claims := &models.TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		Scope:    scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	if user.Email != nil {
		claims.Email = *user.Email
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *authService) generateTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	now := s.clock.Now()

	accessString, err := s.sign(user, models.ScopeAccess, now, now.Add(s.accessExp))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshBytes := make([]byte, 32)
	if _, err := rand.Read(refreshBytes); err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	refreshString := hex.EncodeToString(refreshBytes)

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: refreshString,
		ExpiresAt:    now.Add(s.refreshExp).UTC(),
		CreatedAt:    now.UTC(),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	user.PasswordHash = ""

	return &models.AuthTokens{
		AccessToken:  accessString,
		RefreshToken: refreshString,
		User:         user,
	}, nil
}
