package database

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrations, binary'ye gömülü migration dosyalarını "migrations/" alt dizini kök olacak şekilde döner.
// Kullanım: database.New(path, database.Migrations())
func Migrations() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		// fs.Sub sadece geçersiz path'te hata verir; "migrations" sabit ve geçerli.
		panic(err)
	}
	return sub
}
