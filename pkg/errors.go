// Package pkg, katmanlar arasında paylaşılan küçük yardımcıları barındırır:
// domain error sentinel'leri ve standart JSON response yazıcıları.
//
// Service katmanı sentinel'i %w ile sarar, handler katmanı errors.Is ile çözer:
//
//	return fmt.Errorf("%w: message not in conversation", pkg.ErrBadRequest)
//	...
//	pkg.Error(w, err) // → 400
package pkg

import "errors"

// Domain-level error'lar. HTTP status eşlemesi response.go içindeki mapErrorToStatus'ta.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	ErrInternal      = errors.New("internal error")
)
