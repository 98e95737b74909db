package client

import (
	"sort"
	"time"
)

type typingKey struct {
	conversationID string
	userID         string
}

type typingEntry struct {
	live            bool      // son alınan sinyal typing:start
	minDisplayUntil time.Time // stop gelse bile bu ana kadar gösterilir
}

// TypingTracker, diğer kullanıcıların typing görünümünü tutar. Saf yapıdır:
// zaman parametre olarak verilir, kendi zamanlayıcısı yoktur. Eşzamanlı kullanıma
// uygun değildir; Reconciler döngüsünden çağrılır.
//
// Bir kullanıcı "yazıyor" görünür: live ise ya da now < minDisplayUntil ise.
// Böylece hızlı start/stop dizileri göstergeyi titretmez.
type TypingTracker struct {
	minDisplay time.Duration
	entries    map[typingKey]*typingEntry
}

func NewTypingTracker(minDisplay time.Duration) *TypingTracker {
	return &TypingTracker{
		minDisplay: minDisplay,
		entries:    make(map[typingKey]*typingEntry),
	}
}

// Start, typing:start push'u. Gösterim penceresi now + minDisplay'e yenilenir.
func (t *TypingTracker) Start(now time.Time, conversationID, userID string) {
	t.entries[typingKey{conversationID, userID}] = &typingEntry{
		live:            true,
		minDisplayUntil: now.Add(t.minDisplay),
	}
}

// Stop, typing:stop push'u. Kayıt silinmez; pencere dolana kadar görünmeye devam eder.
func (t *TypingTracker) Stop(conversationID, userID string) {
	if e, ok := t.entries[typingKey{conversationID, userID}]; ok {
		e.live = false
	}
}

// StopUser, kullanıcının tüm sohbetlerdeki live durumunu düşürür (offline olunca).
func (t *TypingTracker) StopUser(userID string) {
	for k, e := range t.entries {
		if k.userID == userID {
			e.live = false
		}
	}
}

// StopAll, tüm live durumları düşürür. Bağlantı koptuğunda typing:stop'lar kaçırılmış
// olabilir; göstergeler pencere dolunca kapanır.
func (t *TypingTracker) StopAll() {
	for _, e := range t.entries {
		e.live = false
	}
}

// StopOffline, online setinde olmayan kullanıcıların live durumunu düşürür.
func (t *TypingTracker) StopOffline(online map[string]bool) {
	for k, e := range t.entries {
		if !online[k.userID] {
			e.live = false
		}
	}
}

// IsTyping, kullanıcının bu sohbette yazıyor gösterilip gösterilmeyeceği.
func (t *TypingTracker) IsTyping(now time.Time, conversationID, userID string) bool {
	e, ok := t.entries[typingKey{conversationID, userID}]
	if !ok {
		return false
	}
	return e.live || now.Before(e.minDisplayUntil)
}

// Users, sohbette yazıyor görünen kullanıcılar (sıralı).
func (t *TypingTracker) Users(now time.Time, conversationID string) []string {
	var out []string
	for k, e := range t.entries {
		if k.conversationID == conversationID && (e.live || now.Before(e.minDisplayUntil)) {
			out = append(out, k.userID)
		}
	}
	sort.Strings(out)
	return out
}

// Sweep, penceresi dolmuş ve live olmayan kayıtları siler. Silinen sayıyı döner.
func (t *TypingTracker) Sweep(now time.Time) int {
	n := 0
	for k, e := range t.entries {
		if !e.live && !now.Before(e.minDisplayUntil) {
			delete(t.entries, k)
			n++
		}
	}
	return n
}

// Len, tutulan kayıt sayısı (görünmeyenler dahil).
func (t *TypingTracker) Len() int { return len(t.entries) }
