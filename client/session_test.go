package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/akinalp/gooverchat/client"
	"github.com/akinalp/gooverchat/database"
	"github.com/akinalp/gooverchat/handlers"
	"github.com/akinalp/gooverchat/middleware"
	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/repository"
	"github.com/akinalp/gooverchat/services"
	"github.com/akinalp/gooverchat/ws"
)

// startServer, REST ve /ws ile tam bir server: gerçek SQLite, gerçek hub.
func startServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "client.db"), database.Migrations())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	userRepo := repository.NewSQLiteUserRepo(db.Conn)
	sessionRepo := repository.NewSQLiteSessionRepo(db.Conn)
	convRepo := repository.NewSQLiteConversationRepo(db.Conn)
	messageRepo := repository.NewSQLiteMessageRepo(db.Conn)
	reactionRepo := repository.NewSQLiteReactionRepo(db.Conn)
	receiptRepo := repository.NewSQLiteReceiptRepo(db.Conn)

	hub, err := ws.NewHub(ws.HubConfig{Membership: convRepo})
	if err != nil {
		t.Fatalf("NewHub: %v", err)
	}
	go hub.Run()

	authService := services.NewAuthService(userRepo, sessionRepo, services.AuthConfig{
		Secret:        "client-test-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
		SocketExpiry:  time.Minute,
	}, nil)
	convService := services.NewConversationService(db.Conn, convRepo, userRepo, messageRepo, nil, nil)
	messageService := services.NewMessageService(messageRepo, convRepo, reactionRepo, receiptRepo, hub,
		services.MessageLimits{EditWindow: 15 * time.Minute, MaxLength: 10000, PageLimit: 50}, nil)
	receiptService := services.NewReceiptService(receiptRepo, messageRepo, convRepo, nil)

	authHandler := handlers.NewAuthHandler(authService, nil)
	convHandler := handlers.NewConversationHandler(convService)
	messageHandler := handlers.NewMessageHandler(messageService, nil)
	receiptHandler := handlers.NewReceiptHandler(receiptService)
	auth := middleware.NewAuthMiddleware(authService, userRepo)
	protect := func(h http.HandlerFunc) http.Handler { return auth.Require(h) }

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("GET /api/auth/socket-token", protect(authHandler.SocketToken))
	mux.Handle("GET /api/conversations", protect(convHandler.List))
	mux.Handle("POST /api/conversations", protect(convHandler.Create))
	mux.Handle("GET /api/conversations/{id}/messages", protect(messageHandler.List))
	mux.Handle("POST /api/conversations/{id}/messages", protect(messageHandler.Send))
	mux.Handle("POST /api/conversations/{id}/read", protect(receiptHandler.MarkRead))
	mux.Handle("POST /api/conversations/{id}/messages/delivered", protect(receiptHandler.MarkDelivered))
	mux.HandleFunc("GET /ws", ws.NewHandler(hub, authService, nil).HandleConnection)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
		db.Close()
	})
	return srv
}

func testConfig(baseURL string) client.Config {
	cfg := client.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.HandshakeTimeout = 5 * time.Second
	cfg.RESTTimeout = 5 * time.Second
	return cfg
}

func registerUser(t *testing.T, baseURL, username string) (*client.RESTClient, *models.AuthTokens) {
	t.Helper()
	rest := client.NewRESTClient(baseURL, 5*time.Second)
	tokens, err := rest.Register(context.Background(), models.CreateUserRequest{Username: username, Password: "correct-horse"})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return rest, tokens
}

func eventually(t *testing.T, what string, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDialHandshakeErrors(t *testing.T) {
	srv := startServer(t)
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ctx := context.Background()

	_, err := client.Dial(ctx, endpoint, "", time.Second, time.Second)
	if !errors.Is(err, &client.Error{Code: client.ErrorAuthRequired}) {
		t.Fatalf("dial without token: %v", err)
	}

	_, err = client.Dial(ctx, endpoint, "not-a-token", time.Second, time.Second)
	if !errors.Is(err, &client.Error{Code: client.ErrorInvalidToken}) {
		t.Fatalf("dial with bad token: %v", err)
	}
	if !client.IsHandshakeError(err) {
		t.Fatalf("IsHandshakeError(%v) = false", err)
	}

	// Access token REST içindir; handshake'te geçmez.
	_, tokens := registerUser(t, srv.URL, "alice")
	_, err = client.Dial(ctx, endpoint, tokens.AccessToken, time.Second, time.Second)
	if !errors.Is(err, &client.Error{Code: client.ErrorInvalidToken}) {
		t.Fatalf("dial with access token: %v", err)
	}
}

func TestSessionStartRequiresAuth(t *testing.T) {
	srv := startServer(t)

	sess, err := client.NewSession(testConfig(srv.URL), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	err = sess.Start(context.Background())
	if !errors.Is(err, &client.Error{Code: client.ErrorUnauthorized}) {
		t.Fatalf("start without login: %v", err)
	}
	sess.Close()
}

func TestSessionSendWithoutConversation(t *testing.T) {
	sess, err := client.NewSession(testConfig("http://localhost:1"), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer sess.Close()

	_, err = sess.Send(context.Background(), "hello")
	if !errors.Is(err, &client.Error{Code: client.ErrorNoConversation}) {
		t.Fatalf("send without conversation: %v", err)
	}
}

type peer struct {
	sess  *client.Session
	clock *clock.Mock
	id    string
}

func startPeer(t *testing.T, baseURL string, rest *client.RESTClient, id string) *peer {
	t.Helper()

	sess, err := client.NewSession(testConfig(baseURL), rest)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	mock := clock.NewMock()
	sess.SetClock(mock)
	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("start %s: %v", id, err)
	}
	t.Cleanup(func() { sess.Close() })

	eventually(t, id+" connected", func() bool { return sess.View().Connected })
	return &peer{sess: sess, clock: mock, id: id}
}

func TestSessionTypingAndReceipts(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	aliceREST, alice := registerUser(t, srv.URL, "alice")
	bobREST, bob := registerUser(t, srv.URL, "bob")

	conv, err := aliceREST.CreateConversation(ctx, models.CreateConversationRequest{
		Type:      models.ConversationDirect,
		MemberIDs: []string{bob.User.ID},
	})
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	a := startPeer(t, srv.URL, aliceREST, alice.User.ID)
	b := startPeer(t, srv.URL, bobREST, bob.User.ID)

	eventually(t, "presence", func() bool {
		return slices.Contains(a.sess.View().OnlineUserIDs, b.id)
	})

	a.sess.Mount(conv.ID)
	b.sess.Mount(conv.ID)
	eventually(t, "self id from snapshot", func() bool {
		return a.sess.View().SelfID == a.id && b.sess.View().SelfID == b.id
	})

	// Join'ler asenkron; typing bob'a ulaşana kadar tekrar edilir.
	eventually(t, "typing relay", func() bool {
		a.sess.Keystroke("hel")
		time.Sleep(20 * time.Millisecond)
		return slices.Contains(b.sess.View().TypingUserIDs, a.id)
	})
	if len(a.sess.View().TypingUserIDs) != 0 {
		t.Fatalf("alice sees her own typing: %v", a.sess.View().TypingUserIDs)
	}

	sent, err := a.sess.Send(ctx, "hello bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	eventually(t, "sent message appended", func() bool {
		v := a.sess.View()
		return len(v.Messages) > 0 && v.Messages[len(v.Messages)-1].ID == sent.ID
	})

	// message:new push'u bob'a poll beklemeden ulaşır.
	eventually(t, "message push", func() bool {
		for _, m := range b.sess.View().Messages {
			if m.ID == sent.ID {
				return true
			}
		}
		return false
	})

	// Gönderimden sonra typing:stop gider; bob'da pencere dolunca ve sweep'te kaybolur.
	eventually(t, "typing cleared", func() bool {
		b.clock.Add(2 * time.Second)
		return !slices.Contains(b.sess.View().TypingUserIDs, a.id)
	})

	// Bob'un poll'u okuma bildirimini gönderir; alice'in poll'u seen görür.
	eventually(t, "bob read report", func() bool {
		b.clock.Add(4 * time.Second)
		a.clock.Add(4 * time.Second)
		time.Sleep(20 * time.Millisecond)
		for _, m := range a.sess.View().Messages {
			if m.ID == sent.ID {
				return m.Status != nil && m.Status.DeliveredAt != nil && m.Status.SeenAt != nil
			}
		}
		return false
	})
}

func TestSessionMountSwitchDropsPreviousConversation(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	aliceREST, alice := registerUser(t, srv.URL, "alice")
	_, bob := registerUser(t, srv.URL, "bob")
	_, carol := registerUser(t, srv.URL, "carol")

	withBob, err := aliceREST.CreateConversation(ctx, models.CreateConversationRequest{MemberIDs: []string{bob.User.ID}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	withCarol, err := aliceREST.CreateConversation(ctx, models.CreateConversationRequest{MemberIDs: []string{carol.User.ID}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := aliceREST.SendMessage(ctx, withBob.ID, "one"); err != nil {
		t.Fatalf("send: %v", err)
	}

	a := startPeer(t, srv.URL, aliceREST, alice.User.ID)
	a.sess.Mount(withBob.ID)
	eventually(t, "first snapshot", func() bool { return len(a.sess.View().Messages) == 1 })

	a.sess.Mount(withCarol.ID)
	eventually(t, "switched view", func() bool {
		v := a.sess.View()
		return v.ConversationID == withCarol.ID && v.SelfID == a.id
	})
	if n := len(a.sess.View().Messages); n != 0 {
		t.Fatalf("messages from previous conversation leaked: %d", n)
	}
}
