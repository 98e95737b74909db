// Package config, uygulamanın tüm konfigürasyonunu environment variable'lardan okur.
// .env dosyası varsa önce o yüklenir (development kolaylığı); production'da gerçek env kullanılır.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm tek bir concern'ü temsil eder.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Realtime  RealtimeConfig
	Fanout    FanoutConfig
	Messages  MessagesConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// DatabaseConfig, SQLite ve opsiyonel Postgres ayarları.
type DatabaseConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/gooverchat.db)

	// MembershipPostgresDSN doluysa conversation:join yetki kontrolü SQLite yerine
	// Postgres'teki conversation_members tablosuna sorulur.
	MembershipPostgresDSN string
}

// JWTConfig, token ayarları.
type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  int // dakika (varsayılan: 15)
	RefreshTokenExpiry int // gün (varsayılan: 7)
	SocketTokenExpiry  int // saniye (varsayılan: 60), sadece realtime handshake için
}

// RealtimeConfig, WebSocket katmanı ayarları.
type RealtimeConfig struct {
	NodeID             string        // fan-out envelope'larında origin; boşsa uuid üretilir
	JoinLookupTimeout  time.Duration // membership sorgusu için üst sınır
	MembershipCacheTTL time.Duration // pozitif join sonuçlarının cache süresi; 0 = kapalı
}

// FanoutConfig, çok process'li dağıtımda broadcast köprüsü.
type FanoutConfig struct {
	Driver      string // none | redis | nats
	RedisURL    string
	NATSURL     string
	Channel     string        // redis channel / nats subject
	PresenceTTL time.Duration // redis presence directory node TTL
}

// MessagesConfig, mesaj collaborator endpoint'lerinin limitleri.
type MessagesConfig struct {
	EditWindow time.Duration
	MaxLength  int
	PageLimit  int
}

// RateLimitConfig, REST yüzeyindeki limiter'lar. Typing sinyalleri limitlenmez.
type RateLimitConfig struct {
	LoginAttempts   int // IP başına pencere içindeki login denemesi
	LoginWindow     time.Duration
	MessageBurst    int // kullanıcı başına pencere içindeki mesaj
	MessageWindow   time.Duration
	MessageCooldown time.Duration
}

// LogConfig, zap log seviyesi.
type LogConfig struct {
	Level string
}

// Load, environment variable'lardan Config oluşturur.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getInt("SERVER_PORT", 9090)
	if err != nil {
		return nil, err
	}
	accessExpiry, err := getInt("JWT_ACCESS_EXPIRY_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	refreshExpiry, err := getInt("JWT_REFRESH_EXPIRY_DAYS", 7)
	if err != nil {
		return nil, err
	}
	socketExpiry, err := getInt("SOCKET_TOKEN_TTL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	joinTimeoutMs, err := getInt("JOIN_LOOKUP_TIMEOUT_MS", 3000)
	if err != nil {
		return nil, err
	}
	presenceTTL, err := getInt("FANOUT_PRESENCE_TTL_SECONDS", 45)
	if err != nil {
		return nil, err
	}
	editWindow, err := getInt("MESSAGE_EDIT_WINDOW_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	maxLength, err := getInt("MESSAGE_MAX_LENGTH", 10000)
	if err != nil {
		return nil, err
	}
	pageLimit, err := getInt("MESSAGE_PAGE_LIMIT", 50)
	if err != nil {
		return nil, err
	}
	membershipCacheSec, err := getInt("MEMBERSHIP_CACHE_TTL_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	loginAttempts, err := getInt("LOGIN_RATE_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	messageBurst, err := getInt("MESSAGE_RATE_LIMIT", 20)
	if err != nil {
		return nil, err
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	driver := strings.ToLower(getEnv("FANOUT_DRIVER", "none"))
	switch driver {
	case "none", "redis", "nats":
	default:
		return nil, fmt.Errorf("invalid FANOUT_DRIVER %q (want none, redis or nats)", driver)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        port,
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		},
		Database: DatabaseConfig{
			Path:                  getEnv("DATABASE_PATH", "./data/gooverchat.db"),
			MembershipPostgresDSN: getEnv("MEMBERSHIP_POSTGRES_DSN", ""),
		},
		JWT: JWTConfig{
			Secret:             jwtSecret,
			AccessTokenExpiry:  accessExpiry,
			RefreshTokenExpiry: refreshExpiry,
			SocketTokenExpiry:  socketExpiry,
		},
		Realtime: RealtimeConfig{
			NodeID:             getEnv("NODE_ID", ""),
			JoinLookupTimeout:  time.Duration(joinTimeoutMs) * time.Millisecond,
			MembershipCacheTTL: time.Duration(membershipCacheSec) * time.Second,
		},
		Fanout: FanoutConfig{
			Driver:      driver,
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
			NATSURL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Channel:     getEnv("FANOUT_CHANNEL", "gooverchat.realtime"),
			PresenceTTL: time.Duration(presenceTTL) * time.Second,
		},
		Messages: MessagesConfig{
			EditWindow: time.Duration(editWindow) * time.Minute,
			MaxLength:  maxLength,
			PageLimit:  pageLimit,
		},
		RateLimit: RateLimitConfig{
			LoginAttempts:   loginAttempts,
			LoginWindow:     time.Minute,
			MessageBurst:    messageBurst,
			MessageWindow:   10 * time.Second,
			MessageCooldown: 15 * time.Second,
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
