package handlers

import (
	"fmt"
	"net/http"
)

// Health godoc
// GET /api/health
// Zarfsız düz JSON döner; load balancer'lar body'yi doğrudan okur.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok","service":"gooverchat"}`)
}
