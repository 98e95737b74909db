package database

import (
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestSplitStatements(t *testing.T) {
	input := `
-- comment; with semicolon
CREATE TABLE a (x TEXT DEFAULT 'a;b');
INSERT INTO a (x) VALUES ('it''s');

`
	got := splitStatements(input)
	if len(got) != 2 {
		t.Fatalf("got %d statements: %#v", len(got), got)
	}
	if got[0] != "CREATE TABLE a (x TEXT DEFAULT 'a;b')" {
		t.Fatalf("first statement = %q", got[0])
	}
	if got[1] != "INSERT INTO a (x) VALUES ('it''s')" {
		t.Fatalf("second statement = %q", got[1])
	}
}

func TestSplitStatementsKeepsTriggerBody(t *testing.T) {
	input := `
CREATE TRIGGER t_ai AFTER INSERT ON a BEGIN
    INSERT INTO b (x) VALUES (CASE WHEN new.x IS NULL THEN 'none;' ELSE new.x END);
    DELETE FROM c;
END;
INSERT INTO a (x) VALUES ('backend');
`
	got := splitStatements(input)
	if len(got) != 2 {
		t.Fatalf("got %d statements: %#v", len(got), got)
	}
	if got[0][len(got[0])-3:] != "END" {
		t.Fatalf("trigger statement = %q", got[0])
	}
	if got[1] != "INSERT INTO a (x) VALUES ('backend')" {
		t.Fatalf("second statement = %q", got[1])
	}
}

func TestNewAppliesEmbeddedMigrations(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "test.db"), Migrations())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"users", "sessions", "conversations", "conversation_members", "messages", "message_deliveries", "message_hidden", "message_reactions", "friendships", "user_blocks", "messages_fts"} {
		var name string
		err := db.Conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestMigrationsRunOnce(t *testing.T) {
	migrations := fstest.MapFS{
		"001_a.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"002_b.sql": {Data: []byte("ALTER TABLE a ADD COLUMN name TEXT;")},
	}
	path := filepath.Join(t.TempDir(), "once.db")

	db, err := New(path, migrations)
	if err != nil {
		t.Fatalf("first New: %v", err)
	}
	db.Close()

	// İkinci açılışta 002 tekrar çalışsaydı "duplicate column" hatası atlanırdı,
	// ama schema_migrations kaydı sayesinde hiç çalışmamalı.
	db, err = New(path, migrations)
	if err != nil {
		t.Fatalf("second New: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.Conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("schema_migrations rows = %d, want 2", count)
	}
}
