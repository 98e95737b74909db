package repository

import (
	"context"
	"time"

	"github.com/akinalp/gooverchat/pkg/cache"
)

// cachedMembership, MembershipStore'u kısa ömürlü bir cache ile sarar.
//
// Sadece pozitif sonuçlar tutulur: üye olmayan bir kullanıcı sonradan eklenirse
// bir sonraki join hemen store'a gider. Hatalar cache'lenmez.
type cachedMembership struct {
	inner MembershipStore
	cache *cache.TTLCache[string, bool]
}

// NewCachedMembershipStore, decorator. ttl <= 0 ise inner olduğu gibi döner.
// Dönen close fonksiyonu cache'in temizlik goroutine'ini durdurur.
func NewCachedMembershipStore(inner MembershipStore, ttl time.Duration) (MembershipStore, func()) {
	if ttl <= 0 {
		return inner, func() {}
	}
	c := cache.New[string, bool](ttl, ttl, nil)
	return &cachedMembership{inner: inner, cache: c}, c.Close
}

func (m *cachedMembership) IsMember(ctx context.Context, conversationID, userID string) (bool, error) {
	key := conversationID + "|" + userID
	if ok, hit := m.cache.Get(key); hit {
		return ok, nil
	}

	ok, err := m.inner.IsMember(ctx, conversationID, userID)
	if err != nil {
		return false, err
	}
	if ok {
		m.cache.Set(key, true)
	}
	return ok, nil
}
