package client

import (
	"errors"
	"fmt"
)

// ErrorCode, SDK hatalarının kategorisi.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// Realtime kanalından gelenler
	ErrorAuthRequired
	ErrorInvalidToken
	ErrorForbidden
	ErrorUnknownEvent

	// REST
	ErrorUnauthorized
	ErrorRateLimited
	ErrorHTTP

	// İstemci tarafı
	ErrorConnection
	ErrorDisconnected
	ErrorTimeout
	ErrorInvalidConfig
	ErrorNotConnected
	ErrorNoConversation
	ErrorSerialization
)

func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorAuthRequired:
		return "auth_required"
	case ErrorInvalidToken:
		return "invalid_token"
	case ErrorForbidden:
		return "forbidden"
	case ErrorUnknownEvent:
		return "unknown_event"
	case ErrorUnauthorized:
		return "unauthorized"
	case ErrorRateLimited:
		return "rate_limited"
	case ErrorHTTP:
		return "http_error"
	case ErrorConnection:
		return "connection_error"
	case ErrorDisconnected:
		return "disconnected"
	case ErrorTimeout:
		return "timeout"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorNoConversation:
		return "no_conversation"
	case ErrorSerialization:
		return "serialization_error"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ParseErrorCode, server'ın realtime hata kodunu çözer.
func ParseErrorCode(code string) ErrorCode {
	switch code {
	case "auth_required":
		return ErrorAuthRequired
	case "invalid_token":
		return ErrorInvalidToken
	case "forbidden":
		return ErrorForbidden
	case "unknown_event":
		return ErrorUnknownEvent
	default:
		return ErrorUnknown
	}
}

// Error, kodlu SDK hatası. Status sadece REST ve handshake hatalarında doludur.
type Error struct {
	Code    ErrorCode
	Message string
	Status  int
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is, errors.Is(err, &Error{Code: ErrorInvalidToken}) gibi kod bazlı karşılaştırma sağlar.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Wrapped: err}
}

// IsHandshakeError, bağlantı denemesinin kimlik nedeniyle reddedildiğini söyler.
// Bu durumda yeni bir socket token alınıp tekrar denenir.
func IsHandshakeError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == ErrorAuthRequired || e.Code == ErrorInvalidToken
}
