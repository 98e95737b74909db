package client

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config, SDK davranışını belirler. DefaultConfig ile başlayıp gerekenler değiştirilir.
// Süre alanlarında 0, ilgili zamanlayıcıyı kapatır (TypingMinDisplay ve TypingIdle hariç).
type Config struct {
	BaseURL   string // HTTP kökü, ör: http://localhost:9090
	SocketURL string // boşsa BaseURL'den türetilir: ws(s)://host/ws

	PollInterval        time.Duration // mesaj snapshot'ı yeniden çekme aralığı
	TypingSweepInterval time.Duration // süresi geçen typing kayıtlarının temizlenme aralığı
	TypingMinDisplay    time.Duration // typing:start sonrası en kısa gösterim süresi
	TypingIdle          time.Duration // son tuştan sonra typing:stop gönderme süresi
	ReconnectDelay      time.Duration
	HeartbeatInterval   time.Duration

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	RESTTimeout      time.Duration

	PageLimit int
}

// DefaultConfig, web istemcisinin kullandığı zamanlamalar.
func DefaultConfig() Config {
	return Config{
		PollInterval:        4 * time.Second,
		TypingSweepInterval: 2 * time.Second,
		TypingMinDisplay:    3 * time.Second,
		TypingIdle:          3 * time.Second,
		ReconnectDelay:      2 * time.Second,
		HeartbeatInterval:   30 * time.Second,
		HandshakeTimeout:    10 * time.Second,
		WriteTimeout:        10 * time.Second,
		RESTTimeout:         30 * time.Second,
		PageLimit:           50,
	}
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return NewError(ErrorInvalidConfig, "base url is required")
	}
	if c.TypingMinDisplay <= 0 || c.TypingIdle <= 0 {
		return NewError(ErrorInvalidConfig, "typing durations must be positive")
	}
	return nil
}

// socketEndpoint, handshake adresini döner.
func (c Config) socketEndpoint() (string, error) {
	if c.SocketURL != "" {
		return c.SocketURL, nil
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", WrapError(ErrorInvalidConfig, "invalid base url", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", NewError(ErrorInvalidConfig, fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}
