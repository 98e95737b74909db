package cache

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestTTLCacheExpiry(t *testing.T) {
	mock := clock.NewMock()
	c := New[string, int](10*time.Second, time.Hour, mock)
	defer c.Close()

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}

	mock.Add(10 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expired entry returned")
	}
	// Temizlik henüz çalışmadı.
	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}

	c.evictExpired()
	if c.Len() != 0 {
		t.Fatalf("len after evict = %d, want 0", c.Len())
	}
}

func TestTTLCacheDeleteAndClose(t *testing.T) {
	c := New[string, string](time.Minute, time.Minute, nil)
	c.Set("k", "v")
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Fatalf("deleted entry returned")
	}
	c.Close()
	c.Close()
}
