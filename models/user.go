// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// `json:"..."` tag'leri API response'larında ve WebSocket payload'larında
// alanların nasıl serialize edileceğini belirler.
package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// User, bir kullanıcıyı temsil eder.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        *string   `json:"email,omitempty"`
	DisplayName  *string   `json:"display_name"` // nullable
	PasswordHash string    `json:"-"`            // API response'a asla dahil edilmez
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUserRequest, kayıt isteği. Hash'leme service katmanında yapılır.
type CreateUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Validate, kayıt isteğini normalize eder ve kontrol eder.
//   - Username: 3-32 karakter, alfanumerik + alt çizgi
//   - Email: opsiyonel, geçerli adres
//   - Password: minimum 8 karakter
//   - DisplayName: opsiyonel, max 32 karakter
func (r *CreateUserRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	usernameLen := utf8.RuneCountInString(r.Username)
	if usernameLen < 3 || usernameLen > 32 {
		return fmt.Errorf("username must be between 3 and 32 characters")
	}
	for _, ch := range r.Username {
		if !isValidUsernameChar(ch) {
			return fmt.Errorf("username can only contain letters, numbers, and underscores")
		}
	}

	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			return fmt.Errorf("invalid email address")
		}
	}

	if utf8.RuneCountInString(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if utf8.RuneCountInString(r.DisplayName) > 32 {
		return fmt.Errorf("display name must be at most 32 characters")
	}

	return nil
}

// LoginRequest, giriş isteği. Login alanı username veya email olabilir.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Validate, LoginRequest'in geçerli olup olmadığını kontrol eder.
func (r *LoginRequest) Validate() error {
	r.Login = strings.TrimSpace(r.Login)
	if r.Login == "" {
		return fmt.Errorf("login is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// IsEmail, login alanının email formatında olup olmadığını döner.
func (r *LoginRequest) IsEmail() bool {
	return strings.Contains(r.Login, "@")
}

func isValidUsernameChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '_'
}
