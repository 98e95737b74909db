package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
	"github.com/akinalp/gooverchat/pkg/ratelimit"
)

// currentUser, auth middleware'in context'e koyduğu kullanıcı. Yoksa 401 yazar.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return nil, false
	}
	return user, true
}

// decodeJSON, body'yi v'ye okur. Bozuk body için 400 yazar.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// allow, key için limiter'a sorar. Limit aşıldıysa 429 + Retry-After yazar
// ve false döner. limiter nil ise her istek geçer.
func allow(w http.ResponseWriter, limiter *ratelimit.Limiter, key, message string) bool {
	if limiter == nil || limiter.Allow(key) {
		return true
	}
	retryAfter := limiter.RetryAfterSeconds(key)
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
		fmt.Sprintf("%s, please try again in %s", message, ratelimit.FormatRetryMessage(retryAfter)))
	return false
}
