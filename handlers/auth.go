// Package handlers, REST yüzeyi: body parse, service çağrısı, response.
// İş kuralları service katmanındadır; handler DB'ye erişmez.
package handlers

import (
	"net/http"

	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
	"github.com/akinalp/gooverchat/pkg/ratelimit"
	"github.com/akinalp/gooverchat/services"
)

// AuthHandler, kayıt, giriş ve token yaşam döngüsü.
type AuthHandler struct {
	authService  services.AuthService
	loginLimiter *ratelimit.Limiter
}

// NewAuthHandler, constructor. loginLimiter nil olabilir.
func NewAuthHandler(authService services.AuthService, loginLimiter *ratelimit.Limiter) *AuthHandler {
	return &AuthHandler{authService: authService, loginLimiter: loginLimiter}
}

// Register godoc
// POST /api/auth/register
// Body: { "username": "...", "email": "...", "password": "...", "display_name": "..." }
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tokens, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, tokens)
}

// Login godoc
// POST /api/auth/login
// Body: { "login": "username veya email", "password": "..." }
//
// Deneme sayacı IP başınadır; başarılı giriş sayacı sıfırlar.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ExtractIP(r)
	if !allow(w, h.loginLimiter, ip, "too many login attempts") {
		return
	}

	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tokens, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if h.loginLimiter != nil {
		h.loginLimiter.Reset(ip)
	}
	pkg.JSON(w, http.StatusOK, tokens)
}

// Refresh godoc
// POST /api/auth/refresh
// Body: { "refresh_token": "..." }
//
// Token tek kullanımlıktır; yanıt yeni bir çift taşır.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := h.authService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, tokens)
}

// Logout godoc
// POST /api/auth/logout
// Body: { "refresh_token": "..." }
//
// Bilinmeyen ya da boş token için de 200 döner.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// LogoutAll godoc
// POST /api/auth/logout-all
//
// Kullanıcının tüm refresh token'larını iptal eder. Verilmiş access token'lar
// süreleri dolana kadar geçerli kalır.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.authService.LogoutAll(r.Context(), user.ID); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "logged out everywhere"})
}

// Me godoc
// GET /api/users/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if user, ok := currentUser(w, r); ok {
		pkg.JSON(w, http.StatusOK, user)
	}
}

// SocketToken godoc
// GET /api/auth/socket-token
//
// /ws handshake'i için kısa ömürlü token; REST'te geçmez.
func (h *AuthHandler) SocketToken(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	token, err := h.authService.IssueSocketToken(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, token)
}

type contextKey string

// UserContextKey, auth middleware'in doğrulanmış *models.User'ı koyduğu key.
const UserContextKey contextKey = "user"
