package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	// rejectHeader, server'ın handshake reddinde tipli kodu koyduğu header.
	rejectHeader = "X-Realtime-Error"

	// Server 10000 karakterlik mesajları message:new içinde gönderebilir.
	readLimit = 1 << 20
)

// Conn, coder/websocket bağlantısını yazma timeout'u ile sarar.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

// Dial, socket token ile handshake yapar. Token hem query parametresi hem
// Authorization header olarak gönderilir.
//
// Server 401 dönerse *Error{Code: ErrorAuthRequired|ErrorInvalidToken} döner.
func Dial(ctx context.Context, endpoint, token string, handshakeTimeout, writeTimeout time.Duration) (*Conn, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, WrapError(ErrorInvalidConfig, "invalid socket url", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	dialCtx := ctx
	if handshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, handshakeTimeout)
		defer cancel()
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, resp, err := websocket.Dial(dialCtx, u.String(), &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		if herr := handshakeError(resp); herr != nil {
			herr.Wrapped = err
			return nil, herr
		}
		if dialCtx.Err() != nil {
			return nil, WrapError(ErrorTimeout, "handshake timed out", err)
		}
		return nil, WrapError(ErrorConnection, "dial failed", err)
	}
	ws.SetReadLimit(readLimit)

	return &Conn{ws: ws, writeTimeout: writeTimeout}, nil
}

// handshakeError, 401 yanıtından tipli hatayı çıkarır. Önce header, sonra body.
func handshakeError(resp *http.Response) *Error {
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		return nil
	}

	code := resp.Header.Get(rejectHeader)
	if code == "" && resp.Body != nil {
		var env apiEnvelope
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if json.Unmarshal(body, &env) == nil {
			code = env.Error
		}
	}

	parsed := ParseErrorCode(code)
	if parsed != ErrorAuthRequired && parsed != ErrorInvalidToken {
		parsed = ErrorInvalidToken
	}
	return &Error{Code: parsed, Message: "handshake rejected", Status: resp.StatusCode}
}

// Read, bir sonraki frame'i okur. ctx iptal edilince bağlantı da kapanır.
func (c *Conn) Read(ctx context.Context) (Frame, error) {
	var f Frame
	if err := wsjson.Read(ctx, c.ws, &f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Write, frame'i JSON olarak yazar.
func (c *Conn) Write(ctx context.Context, v any) error {
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, c.ws, v)
}

func (c *Conn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "client close")
}

// isExpectedDisconnect, normal kapanışları (iptal, EOF, normal close) ayırır.
func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || strings.Contains(err.Error(), "use of closed network connection") {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
