// Package repository, veritabanı erişim katmanını tanımlar.
//
// Service katmanı doğrudan SQL yazmaz; repository interface'leri üzerinden çalışır.
// Constructor'lar interface döner, implementasyon (sqlite_*, pg_*) dışarıya kapalıdır.
package repository

import (
	"context"

	"github.com/akinalp/gooverchat/models"
)

// UserRepository, kullanıcı veritabanı işlemleri için interface.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// ExistingIDs, verilen id'lerden users tablosunda bulunanları döner.
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
	// Search, username veya email'de query geçen kullanıcılar (büyük/küçük harf duyarsız).
	Search(ctx context.Context, query, excludeID string, limit int) ([]models.User, error)
}
