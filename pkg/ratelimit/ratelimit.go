// Package ratelimit, anahtar bazlı (IP veya userID) sabit pencere + cooldown limiter'ı.
//
// Login brute-force koruması IP ile, mesaj gönderme spam koruması userID ile aynı
// Limiter tipini kullanır; sadece parametreler farklıdır:
//
//	login := ratelimit.New(10, time.Minute, time.Minute, nil)          // 1 dk'da 10 deneme
//	send  := ratelimit.New(20, 10*time.Second, 15*time.Second, nil)   // 10 sn'de 20 mesaj
//
// Realtime kanalındaki typing sinyalleri limitlenmez; bu paket sadece REST yüzeyinde kullanılır.
//
// pkg/ratelimit hiçbir proje içi pakete bağımlı değildir (leaf dependency).
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// bucket, bir anahtar için pencere sayacı ve ceza bitişi.
type bucket struct {
	count         int
	windowStart   time.Time
	cooldownUntil time.Time // zero value = cooldown yok
}

// Limiter, anahtar başına pencere içinde en fazla max istek kabul eder.
// Limit aşılınca anahtar cooldown boyunca tamamen reddedilir.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	max      int
	window   time.Duration
	cooldown time.Duration
	clock    clock.Clock
}

// New, limiter oluşturur. clk nil ise gerçek saat kullanılır.
// Süresi dolmuş bucket'lar Sweep ile temizlenir; çağıran periyodik olarak çalıştırır.
func New(max int, window, cooldown time.Duration, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.New()
	}
	return &Limiter{
		buckets:  make(map[string]*bucket),
		max:      max,
		window:   window,
		cooldown: cooldown,
		clock:    clk,
	}
}

// Allow, isteği sayar. false dönerse çağıran 429 dönmeli.
func (l *Limiter) Allow(key string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{count: 1, windowStart: now}
		return true
	}

	if !b.cooldownUntil.IsZero() {
		if now.Before(b.cooldownUntil) {
			return false
		}
		// Cooldown bitti; yeni pencere.
		b.count = 1
		b.windowStart = now
		b.cooldownUntil = time.Time{}
		return true
	}

	if now.Sub(b.windowStart) >= l.window {
		b.count = 1
		b.windowStart = now
		return true
	}

	b.count++
	if b.count > l.max {
		b.cooldownUntil = now.Add(l.cooldown)
		return false
	}
	return true
}

// Reset, anahtarın sayacını siler. Başarılı login sonrası çağrılır.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// RetryAfterSeconds, kalan cooldown süresi (Retry-After header için). Cooldown yoksa 0.
func (l *Limiter) RetryAfterSeconds(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || b.cooldownUntil.IsZero() {
		return 0
	}
	remaining := b.cooldownUntil.Sub(l.clock.Now())
	if remaining <= 0 {
		return 0
	}
	// +1 yuvarlama: client tam süreyi beklesin.
	return int(remaining.Seconds()) + 1
}

// Sweep, penceresi ve cooldown'ı bitmiş bucket'ları siler. Silinen sayıyı döner.
func (l *Limiter) Sweep() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		windowExpired := now.Sub(b.windowStart) >= l.window
		cooldownExpired := b.cooldownUntil.IsZero() || !now.Before(b.cooldownUntil)
		if windowExpired && cooldownExpired {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// ExtractIP, istemci IP'sini çıkarır. Reverse proxy arkasında X-Forwarded-For'un
// ilk değeri, yoksa X-Real-IP, yoksa RemoteAddr kullanılır.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FormatRetryMessage, saniyeyi okunabilir bir süreye çevirir.
func FormatRetryMessage(seconds int) string {
	if seconds >= 60 {
		return fmt.Sprintf("%d minute(s)", seconds/60)
	}
	return fmt.Sprintf("%d second(s)", seconds)
}
