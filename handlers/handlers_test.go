package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/akinalp/gooverchat/database"
	"github.com/akinalp/gooverchat/handlers"
	"github.com/akinalp/gooverchat/middleware"
	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg/ratelimit"
	"github.com/akinalp/gooverchat/repository"
	"github.com/akinalp/gooverchat/services"
	"github.com/akinalp/gooverchat/ws"
)

type nopHub struct{}

func (nopHub) BroadcastToUsers([]string, ws.Event) {}

type limits struct {
	login *ratelimit.Limiter
	send  *ratelimit.Limiter
}

// newServer, main'deki route tablosunun test kopyası: gerçek SQLite, gerçek service'ler.
func newServer(t *testing.T, l limits) *httptest.Server {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "http.db"), database.Migrations())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	userRepo := repository.NewSQLiteUserRepo(db.Conn)
	sessionRepo := repository.NewSQLiteSessionRepo(db.Conn)
	convRepo := repository.NewSQLiteConversationRepo(db.Conn)
	messageRepo := repository.NewSQLiteMessageRepo(db.Conn)
	reactionRepo := repository.NewSQLiteReactionRepo(db.Conn)
	receiptRepo := repository.NewSQLiteReceiptRepo(db.Conn)
	friendRepo := repository.NewSQLiteFriendshipRepo(db.Conn)
	blockRepo := repository.NewSQLiteBlockRepo(db.Conn)

	authService := services.NewAuthService(userRepo, sessionRepo, services.AuthConfig{
		Secret:        "handler-test-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
		SocketExpiry:  time.Minute,
	}, nil)
	convService := services.NewConversationService(db.Conn, convRepo, userRepo, messageRepo, nil, nil)
	messageService := services.NewMessageService(messageRepo, convRepo, reactionRepo, receiptRepo, nopHub{},
		services.MessageLimits{EditWindow: 15 * time.Minute, MaxLength: 10000, PageLimit: 50}, nil)
	reactionService := services.NewReactionService(reactionRepo, messageRepo, convRepo, nopHub{})
	receiptService := services.NewReceiptService(receiptRepo, messageRepo, convRepo, nil)
	friendService := services.NewFriendshipService(db.Conn, friendRepo, blockRepo, userRepo, nopHub{}, nil)

	authHandler := handlers.NewAuthHandler(authService, l.login)
	convHandler := handlers.NewConversationHandler(convService)
	messageHandler := handlers.NewMessageHandler(messageService, l.send)
	reactionHandler := handlers.NewReactionHandler(reactionService)
	receiptHandler := handlers.NewReceiptHandler(receiptService)
	friendHandler := handlers.NewFriendshipHandler(friendService)
	auth := middleware.NewAuthMiddleware(authService, userRepo)

	protect := func(h http.HandlerFunc) http.Handler { return auth.Require(h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handlers.Health)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.Handle("POST /api/auth/logout-all", protect(authHandler.LogoutAll))
	mux.Handle("GET /api/users/me", protect(authHandler.Me))
	mux.Handle("GET /api/auth/socket-token", protect(authHandler.SocketToken))
	mux.Handle("GET /api/conversations", protect(convHandler.List))
	mux.Handle("POST /api/conversations", protect(convHandler.Create))
	mux.Handle("GET /api/conversations/{id}", protect(convHandler.Get))
	mux.Handle("POST /api/conversations/{id}/members", protect(convHandler.AddMember))
	mux.Handle("DELETE /api/conversations/{id}/members/{userId}", protect(convHandler.RemoveMember))
	mux.Handle("GET /api/conversations/{id}/search", protect(messageHandler.Search))
	mux.Handle("GET /api/conversations/{id}/messages", protect(messageHandler.List))
	mux.Handle("POST /api/conversations/{id}/messages", protect(messageHandler.Send))
	mux.Handle("POST /api/conversations/{id}/read", protect(receiptHandler.MarkRead))
	mux.Handle("POST /api/conversations/{id}/messages/delivered", protect(receiptHandler.MarkDelivered))
	mux.Handle("PATCH /api/messages/{id}", protect(messageHandler.Edit))
	mux.Handle("POST /api/messages/{id}/delete", protect(messageHandler.Delete))
	mux.Handle("DELETE /api/messages/{id}", protect(messageHandler.DeleteForEveryone))
	mux.Handle("POST /api/messages/{id}/react", protect(reactionHandler.Toggle))
	mux.Handle("GET /api/friends", protect(friendHandler.List))
	mux.Handle("GET /api/friends/requests", protect(friendHandler.ListRequests))
	mux.Handle("POST /api/friends/request", protect(friendHandler.SendRequest))
	mux.Handle("POST /api/friends/accept", protect(friendHandler.Accept))
	mux.Handle("POST /api/friends/decline", protect(friendHandler.Decline))
	mux.Handle("POST /api/friends/remove", protect(friendHandler.Remove))
	mux.Handle("GET /api/users/search", protect(friendHandler.Search))
	mux.Handle("GET /api/users/blocked", protect(friendHandler.ListBlocked))
	mux.Handle("POST /api/users/block", protect(friendHandler.Block))
	mux.Handle("POST /api/users/unblock", protect(friendHandler.Unblock))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, envelope, http.Header) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return resp.StatusCode, env, resp.Header
}

func data[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return v
}

func register(t *testing.T, srv *httptest.Server, username string) models.AuthTokens {
	t.Helper()
	status, env, _ := do(t, srv, "POST", "/api/auth/register", "", models.CreateUserRequest{
		Username: username,
		Password: "correct-horse",
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d (%s)", username, status, env.Error)
	}
	return data[models.AuthTokens](t, env)
}

func TestHealth(t *testing.T) {
	srv := newServer(t, limits{})

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["service"] != "gooverchat" {
		t.Fatalf("body = %v", body)
	}
}

func TestAuthFlowAndTokenScopes(t *testing.T) {
	srv := newServer(t, limits{})
	alice := register(t, srv, "alice")

	status, env, _ := do(t, srv, "GET", "/api/users/me", alice.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("me: status %d", status)
	}
	if me := data[models.User](t, env); me.Username != "alice" {
		t.Fatalf("me = %+v", me)
	}

	if status, _, _ := do(t, srv, "GET", "/api/users/me", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("me without token: status %d", status)
	}

	status, env, _ = do(t, srv, "GET", "/api/auth/socket-token", alice.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("socket-token: status %d", status)
	}
	socket := data[models.SocketToken](t, env)
	if socket.Token == "" || socket.ExpiresAt.IsZero() {
		t.Fatalf("socket token = %+v", socket)
	}

	// Socket token REST'te geçmez.
	if status, _, _ := do(t, srv, "GET", "/api/users/me", socket.Token, nil); status != http.StatusUnauthorized {
		t.Fatalf("socket token on REST: status %d, want 401", status)
	}

	status, env, _ = do(t, srv, "POST", "/api/auth/refresh", "", models.RefreshRequest{RefreshToken: alice.RefreshToken})
	if status != http.StatusOK {
		t.Fatalf("refresh: status %d (%s)", status, env.Error)
	}
	if status, _, _ := do(t, srv, "POST", "/api/auth/refresh", "", models.RefreshRequest{RefreshToken: alice.RefreshToken}); status != http.StatusUnauthorized {
		t.Fatalf("reused refresh token: status %d, want 401", status)
	}
}

func TestLoginRateLimit(t *testing.T) {
	srv := newServer(t, limits{login: ratelimit.New(2, time.Minute, time.Minute, nil)})
	register(t, srv, "alice")

	bad := models.LoginRequest{Login: "alice", Password: "wrong-password"}
	for i := 0; i < 2; i++ {
		if status, _, _ := do(t, srv, "POST", "/api/auth/login", "", bad); status != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status %d, want 401", i+1, status)
		}
	}

	status, _, header := do(t, srv, "POST", "/api/auth/login", "", bad)
	if status != http.StatusTooManyRequests {
		t.Fatalf("third attempt: status %d, want 429", status)
	}
	if header.Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

func TestConversationMessageReceiptFlow(t *testing.T) {
	srv := newServer(t, limits{})
	alice := register(t, srv, "alice")
	bob := register(t, srv, "bob")
	carol := register(t, srv, "carol")

	status, env, _ := do(t, srv, "POST", "/api/conversations", alice.AccessToken, models.CreateConversationRequest{
		Type:      models.ConversationDirect,
		MemberIDs: []string{bob.User.ID},
	})
	if status != http.StatusCreated {
		t.Fatalf("create conversation: status %d (%s)", status, env.Error)
	}
	conv := data[models.ConversationDetail](t, env)
	base := "/api/conversations/" + conv.ID

	if status, _, _ := do(t, srv, "GET", base, carol.AccessToken, nil); status != http.StatusNotFound {
		t.Fatalf("non-member get: status %d, want 404", status)
	}

	status, env, _ = do(t, srv, "POST", base+"/messages", alice.AccessToken, models.SendMessageRequest{Text: "hi bob"})
	if status != http.StatusCreated {
		t.Fatalf("send: status %d (%s)", status, env.Error)
	}
	msg := data[models.Message](t, env)

	status, env, _ = do(t, srv, "GET", base+"/messages?limit=10", bob.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("bob list: status %d", status)
	}
	page := data[models.MessagePage](t, env)
	if len(page.Messages) != 1 || page.Messages[0].ID != msg.ID || page.CurrentUserID != bob.User.ID {
		t.Fatalf("bob page = %+v", page)
	}

	status, env, _ = do(t, srv, "POST", base+"/messages/delivered", bob.AccessToken,
		models.MarkDeliveredRequest{MessageIDs: []string{msg.ID, msg.ID}})
	if status != http.StatusOK {
		t.Fatalf("delivered: status %d (%s)", status, env.Error)
	}
	if res := data[models.MarkDeliveredResult](t, env); !res.OK || res.Marked != 1 {
		t.Fatalf("delivered result = %+v", res)
	}

	if status, _, _ := do(t, srv, "POST", base+"/read", bob.AccessToken, models.MarkReadRequest{}); status != http.StatusBadRequest {
		t.Fatalf("read without id: status %d, want 400", status)
	}
	if status, _, _ := do(t, srv, "POST", base+"/read", bob.AccessToken,
		models.MarkReadRequest{LastReadMessageID: msg.ID}); status != http.StatusOK {
		t.Fatalf("read: status %d", status)
	}

	_, env, _ = do(t, srv, "GET", base+"/messages", alice.AccessToken, nil)
	own := data[models.MessagePage](t, env).Messages[0]
	if own.Status == nil || own.Status.DeliveredAt == nil || own.Status.SeenAt == nil {
		t.Fatalf("sender status = %+v", own.Status)
	}
}

func TestMessageEditDeleteReact(t *testing.T) {
	srv := newServer(t, limits{})
	alice := register(t, srv, "alice")
	bob := register(t, srv, "bob")

	_, env, _ := do(t, srv, "POST", "/api/conversations", alice.AccessToken, models.CreateConversationRequest{
		MemberIDs: []string{bob.User.ID},
	})
	conv := data[models.ConversationDetail](t, env)
	_, env, _ = do(t, srv, "POST", "/api/conversations/"+conv.ID+"/messages", alice.AccessToken,
		models.SendMessageRequest{Text: "first"})
	msg := data[models.Message](t, env)
	path := "/api/messages/" + msg.ID

	if status, _, _ := do(t, srv, "PATCH", path, bob.AccessToken, models.EditMessageRequest{Text: "hacked"}); status != http.StatusForbidden {
		t.Fatalf("edit by non-sender: status %d, want 403", status)
	}
	status, env, _ := do(t, srv, "PATCH", path, alice.AccessToken, models.EditMessageRequest{Text: "edited"})
	if status != http.StatusOK {
		t.Fatalf("edit: status %d (%s)", status, env.Error)
	}
	if edited := data[models.Message](t, env); edited.EditedAt == nil || *edited.Text != "edited" {
		t.Fatalf("edited = %+v", edited)
	}

	status, env, _ = do(t, srv, "POST", path+"/react", bob.AccessToken, models.ToggleReactionRequest{Emoji: "👍"})
	if status != http.StatusOK || !data[map[string]bool](t, env)["ok"] {
		t.Fatalf("react add: status %d, data %s", status, env.Data)
	}
	status, env, _ = do(t, srv, "POST", path+"/react", bob.AccessToken, models.ToggleReactionRequest{Emoji: "👍"})
	if status != http.StatusOK || !data[map[string]bool](t, env)["removed"] {
		t.Fatalf("react remove: status %d, data %s", status, env.Data)
	}

	// Boş body = sadece benim için sil.
	if status, _, _ := do(t, srv, "POST", path+"/delete", bob.AccessToken, nil); status != http.StatusOK {
		t.Fatalf("delete for me: status %d", status)
	}
	_, env, _ = do(t, srv, "GET", "/api/conversations/"+conv.ID+"/messages", bob.AccessToken, nil)
	if n := len(data[models.MessagePage](t, env).Messages); n != 0 {
		t.Fatalf("hidden message still listed for bob: %d", n)
	}

	if status, _, _ := do(t, srv, "DELETE", path, bob.AccessToken, nil); status != http.StatusForbidden {
		t.Fatalf("delete for everyone by non-sender: status %d, want 403", status)
	}
	if status, _, _ := do(t, srv, "DELETE", path, alice.AccessToken, nil); status != http.StatusOK {
		t.Fatalf("delete for everyone: status %d", status)
	}
	if status, _, _ := do(t, srv, "POST", path+"/delete", alice.AccessToken, map[string]string{"scope": "nobody"}); status != http.StatusBadRequest {
		t.Fatalf("invalid scope: status %d, want 400", status)
	}
}

func TestSendRateLimit(t *testing.T) {
	srv := newServer(t, limits{send: ratelimit.New(1, time.Minute, time.Minute, nil)})
	alice := register(t, srv, "alice")
	bob := register(t, srv, "bob")

	_, env, _ := do(t, srv, "POST", "/api/conversations", alice.AccessToken, models.CreateConversationRequest{
		MemberIDs: []string{bob.User.ID},
	})
	conv := data[models.ConversationDetail](t, env)
	path := "/api/conversations/" + conv.ID + "/messages"

	if status, _, _ := do(t, srv, "POST", path, alice.AccessToken, models.SendMessageRequest{Text: "one"}); status != http.StatusCreated {
		t.Fatalf("first send: status %d", status)
	}
	status, _, header := do(t, srv, "POST", path, alice.AccessToken, models.SendMessageRequest{Text: "two"})
	if status != http.StatusTooManyRequests || header.Get("Retry-After") == "" {
		t.Fatalf("second send: status %d, retry-after %q", status, header.Get("Retry-After"))
	}
	if status, _, _ := do(t, srv, "POST", path, bob.AccessToken, models.SendMessageRequest{Text: "bob"}); status != http.StatusCreated {
		t.Fatalf("other user send: status %d", status)
	}
}

func TestRefreshRequiresTokenAndLogoutAll(t *testing.T) {
	srv := newServer(t, limits{})
	alice := register(t, srv, "alice")

	if status, env, _ := do(t, srv, "POST", "/api/auth/refresh", "", models.RefreshRequest{RefreshToken: "  "}); status != http.StatusBadRequest {
		t.Fatalf("blank refresh token: status %d (%s), want 400", status, env.Error)
	}
	if status, _, _ := do(t, srv, "POST", "/api/auth/logout", "", models.RefreshRequest{RefreshToken: "unknown"}); status != http.StatusOK {
		t.Fatalf("logout with unknown token: status %d, want 200", status)
	}

	_, env, _ := do(t, srv, "POST", "/api/auth/login", "", models.LoginRequest{Login: "alice", Password: "correct-horse"})
	second := data[models.AuthTokens](t, env)

	if status, _, _ := do(t, srv, "POST", "/api/auth/logout-all", alice.AccessToken, nil); status != http.StatusOK {
		t.Fatalf("logout-all: status %d", status)
	}
	for _, token := range []string{alice.RefreshToken, second.RefreshToken} {
		if status, _, _ := do(t, srv, "POST", "/api/auth/refresh", "", models.RefreshRequest{RefreshToken: token}); status != http.StatusUnauthorized {
			t.Fatalf("refresh after logout-all: status %d, want 401", status)
		}
	}
}

func TestFriendFlow(t *testing.T) {
	srv := newServer(t, limits{})
	alice := register(t, srv, "alice")
	bob := register(t, srv, "bob")
	register(t, srv, "bobby")

	status, env, _ := do(t, srv, "GET", "/api/users/search?q=bo", alice.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("search: status %d (%s)", status, env.Error)
	}
	if found := data[[]models.User](t, env); len(found) != 2 || found[0].Username != "bob" {
		t.Fatalf("search results = %+v", found)
	}
	if status, _, _ := do(t, srv, "GET", "/api/users/search?q=b", alice.AccessToken, nil); status != http.StatusBadRequest {
		t.Fatalf("short search: status %d, want 400", status)
	}

	target := models.UserActionRequest{UserID: bob.User.ID}
	if status, env, _ := do(t, srv, "POST", "/api/friends/request", alice.AccessToken, target); status != http.StatusCreated {
		t.Fatalf("request: status %d (%s)", status, env.Error)
	}
	if status, _, _ := do(t, srv, "POST", "/api/friends/request", alice.AccessToken, target); status != http.StatusConflict {
		t.Fatalf("duplicate request: status %d, want 409", status)
	}

	_, env, _ = do(t, srv, "GET", "/api/friends/requests", bob.AccessToken, nil)
	if reqs := data[models.FriendRequests](t, env); len(reqs.Incoming) != 1 || reqs.Incoming[0].User.ID != alice.User.ID {
		t.Fatalf("bob requests = %+v", reqs)
	}

	status, env, _ = do(t, srv, "POST", "/api/friends/accept", bob.AccessToken, models.UserActionRequest{UserID: alice.User.ID})
	if status != http.StatusOK {
		t.Fatalf("accept: status %d (%s)", status, env.Error)
	}
	if f := data[models.FriendshipWithUser](t, env); f.Status != models.FriendshipAccepted {
		t.Fatalf("accepted = %+v", f)
	}

	_, env, _ = do(t, srv, "GET", "/api/friends", alice.AccessToken, nil)
	if friends := data[[]models.FriendshipWithUser](t, env); len(friends) != 1 || friends[0].User.ID != bob.User.ID {
		t.Fatalf("alice friends = %+v", friends)
	}

	if status, _, _ := do(t, srv, "POST", "/api/users/block", bob.AccessToken, models.UserActionRequest{UserID: alice.User.ID}); status != http.StatusOK {
		t.Fatalf("block: status %d", status)
	}
	_, env, _ = do(t, srv, "GET", "/api/friends", alice.AccessToken, nil)
	if friends := data[[]models.FriendshipWithUser](t, env); len(friends) != 0 {
		t.Fatalf("friendship survived block: %+v", friends)
	}
	if status, _, _ := do(t, srv, "POST", "/api/friends/request", alice.AccessToken, target); status != http.StatusForbidden {
		t.Fatalf("request to blocker: status %d, want 403", status)
	}

	_, env, _ = do(t, srv, "GET", "/api/users/blocked", bob.AccessToken, nil)
	if blocked := data[[]models.User](t, env); len(blocked) != 1 || blocked[0].ID != alice.User.ID {
		t.Fatalf("blocked = %+v", blocked)
	}
	if status, _, _ := do(t, srv, "POST", "/api/users/unblock", bob.AccessToken, models.UserActionRequest{UserID: alice.User.ID}); status != http.StatusOK {
		t.Fatalf("unblock: status %d", status)
	}
	if status, _, _ := do(t, srv, "POST", "/api/friends/request", alice.AccessToken, target); status != http.StatusCreated {
		t.Fatalf("request after unblock: status %d", status)
	}
	if status, _, _ := do(t, srv, "POST", "/api/friends/decline", bob.AccessToken, models.UserActionRequest{UserID: alice.User.ID}); status != http.StatusOK {
		t.Fatalf("decline: status %d", status)
	}
	if status, _, _ := do(t, srv, "POST", "/api/friends/remove", alice.AccessToken, target); status != http.StatusNotFound {
		t.Fatalf("remove non-friend: status %d, want 404", status)
	}
}

func TestGroupMembersAndSearch(t *testing.T) {
	srv := newServer(t, limits{})
	alice := register(t, srv, "alice")
	bob := register(t, srv, "bob")
	carol := register(t, srv, "carol")

	_, env, _ := do(t, srv, "POST", "/api/conversations", alice.AccessToken, models.CreateConversationRequest{
		Type:      models.ConversationGroup,
		Name:      "team",
		MemberIDs: []string{bob.User.ID},
	})
	conv := data[models.ConversationDetail](t, env)
	base := "/api/conversations/" + conv.ID

	if status, _, _ := do(t, srv, "POST", base+"/members", bob.AccessToken, models.UserActionRequest{UserID: carol.User.ID}); status != http.StatusForbidden {
		t.Fatalf("add by non-owner: status %d, want 403", status)
	}
	status, env, _ := do(t, srv, "POST", base+"/members", alice.AccessToken, models.UserActionRequest{UserID: carol.User.ID})
	if status != http.StatusCreated {
		t.Fatalf("add member: status %d (%s)", status, env.Error)
	}
	if detail := data[models.ConversationDetail](t, env); len(detail.Members) != 3 {
		t.Fatalf("members after add = %d", len(detail.Members))
	}

	do(t, srv, "POST", base+"/messages", alice.AccessToken, models.SendMessageRequest{Text: "deploy tonight"})
	do(t, srv, "POST", base+"/messages", bob.AccessToken, models.SendMessageRequest{Text: "lunch?"})

	status, env, _ = do(t, srv, "GET", base+"/search?q=depl", carol.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("search: status %d (%s)", status, env.Error)
	}
	if hits := data[[]models.Message](t, env); len(hits) != 1 || *hits[0].Text != "deploy tonight" {
		t.Fatalf("search hits = %+v", hits)
	}
	if status, _, _ := do(t, srv, "GET", base+"/search", carol.AccessToken, nil); status != http.StatusBadRequest {
		t.Fatalf("empty search: status %d, want 400", status)
	}

	if status, _, _ := do(t, srv, "DELETE", base+"/members/"+carol.User.ID, alice.AccessToken, nil); status != http.StatusOK {
		t.Fatalf("remove member: status %d", status)
	}
	if status, _, _ := do(t, srv, "GET", base+"/search?q=deploy", carol.AccessToken, nil); status != http.StatusNotFound {
		t.Fatalf("search after removal: status %d, want 404", status)
	}
	if status, _, _ := do(t, srv, "DELETE", base+"/members/"+bob.User.ID, bob.AccessToken, nil); status != http.StatusOK {
		t.Fatalf("leave: status %d", status)
	}
}
