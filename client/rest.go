package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/akinalp/gooverchat/models"
)

// RESTClient, gooverchat REST API istemcisi. Eşzamanlı kullanıma uygundur.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewRESTClient, baseURL köküne (ör: http://localhost:9090) istek atan client.
// timeout 0 ise http.Client süresiz çalışır.
func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/api",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient, özel bir http.Client kullanır.
func (c *RESTClient) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken, sonraki isteklerde kullanılacak access token. Login ve Register bunu kendisi yapar.
func (c *RESTClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *RESTClient) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Outcome, kritik olmayan bir yan etkinin sonucu. Çağıran görmezden gelebilir;
// üreten fonksiyon hata fırlatmaz, panic atmaz.
type Outcome struct {
	OK     bool
	Status int
	Err    error
}

// ─── Auth ───

func (c *RESTClient) Register(ctx context.Context, req models.CreateUserRequest) (*models.AuthTokens, error) {
	var resp models.AuthTokens
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.AccessToken)
	return &resp, nil
}

func (c *RESTClient) Login(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	var resp models.AuthTokens
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.AccessToken)
	return &resp, nil
}

// SocketToken, realtime handshake için kısa ömürlü token alır.
// Her bağlantı denemesinde yeniden çağrılmalıdır.
func (c *RESTClient) SocketToken(ctx context.Context) (*models.SocketToken, error) {
	var resp models.SocketToken
	if err := c.do(ctx, http.MethodGet, "/auth/socket-token", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ─── Conversations & Messages ───

func (c *RESTClient) ListConversations(ctx context.Context) ([]models.ConversationDetail, error) {
	var resp []models.ConversationDetail
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *RESTClient) CreateConversation(ctx context.Context, req models.CreateConversationRequest) (*models.ConversationDetail, error) {
	var resp models.ConversationDetail
	if err := c.do(ctx, http.MethodPost, "/conversations", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchMessages, en yeni sayfayı (cursor boşsa) ya da cursor'dan eski sayfayı döner.
// Mesajlar eskiden yeniye sıralıdır.
func (c *RESTClient) FetchMessages(ctx context.Context, conversationID, cursor string, limit int) (*models.MessagePage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp models.MessagePage
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RESTClient) SendMessage(ctx context.Context, conversationID, text string) (*models.Message, error) {
	var resp models.Message
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, models.SendMessageRequest{Text: text, Type: models.MessageText}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ─── Receipts (best-effort) ───

// MarkRead, okuma imlecini ilerletir. Tekrarlanan bildirimler server'da no-op'tur.
func (c *RESTClient) MarkRead(ctx context.Context, conversationID, messageID string) Outcome {
	path := "/conversations/" + url.PathEscape(conversationID) + "/read"
	return c.bestEffort(ctx, path, models.MarkReadRequest{LastReadMessageID: messageID})
}

// MarkDelivered, mesajların bu cihaza ulaştığını bildirir.
func (c *RESTClient) MarkDelivered(ctx context.Context, conversationID string, messageIDs []string) Outcome {
	if len(messageIDs) == 0 {
		return Outcome{OK: true}
	}
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages/delivered"
	return c.bestEffort(ctx, path, models.MarkDeliveredRequest{MessageIDs: messageIDs})
}

func (c *RESTClient) bestEffort(ctx context.Context, path string, body any) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	err := c.do(ctx, http.MethodPost, path, body, nil)
	if err != nil {
		out = Outcome{Err: err}
		if e, ok := err.(*Error); ok {
			out.Status = e.Status
		}
		return out
	}
	return Outcome{OK: true, Status: http.StatusOK}
}

// ─── Helpers ───

// apiEnvelope, server'ın pkg.APIResponse zarfı.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *RESTClient) do(ctx context.Context, method, path string, body, dest any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return WrapError(ErrorSerialization, "marshal request", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return WrapError(ErrorConnection, "create request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.accessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return WrapError(ErrorTimeout, "request cancelled", ctx.Err())
		}
		return WrapError(ErrorConnection, "http request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return WrapError(ErrorConnection, "read response", err)
	}

	var env apiEnvelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 400 {
		msg := env.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		code := ErrorHTTP
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			code = ErrorUnauthorized
		case http.StatusForbidden:
			code = ErrorForbidden
		case http.StatusTooManyRequests:
			code = ErrorRateLimited
		}
		return &Error{Code: code, Message: msg, Status: resp.StatusCode}
	}

	if decodeErr != nil {
		return WrapError(ErrorSerialization, "decode response", decodeErr)
	}
	if dest != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return WrapError(ErrorSerialization, "decode data", err)
		}
	}
	return nil
}
