package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/akinalp/gooverchat/database"
	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "repo.db"), database.Migrations())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, repo UserRepository, username string) *models.User {
	t.Helper()
	email := username + "@example.com"
	u := &models.User{Username: username, Email: &email, PasswordHash: "hash"}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func createConversation(t *testing.T, repo ConversationRepository, typ models.ConversationType, userIDs ...string) *models.Conversation {
	t.Helper()
	ctx := context.Background()
	conv := &models.Conversation{Type: typ, CreatedBy: &userIDs[0], CreatedAt: base}
	if err := repo.Create(ctx, conv); err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	for i, id := range userIDs {
		role := models.RoleMember
		if i == 0 {
			role = models.RoleOwner
		}
		if err := repo.AddMember(ctx, &models.Member{ConversationID: conv.ID, UserID: id, Role: role, JoinedAt: base}); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
	return conv
}

func createMessage(t *testing.T, repo MessageRepository, convID, senderID, text string, at time.Time) *models.Message {
	t.Helper()
	msg := &models.Message{ConversationID: convID, SenderID: senderID, Text: &text, CreatedAt: at}
	if err := repo.Create(context.Background(), msg); err != nil {
		t.Fatalf("create message: %v", err)
	}
	return msg
}

func TestUserRepoUniqueness(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	ctx := context.Background()

	alice := createUser(t, users, "alice")

	dup := &models.User{Username: "ALICE", PasswordHash: "x"}
	if err := users.Create(ctx, dup); !errors.Is(err, pkg.ErrAlreadyExists) {
		t.Fatalf("duplicate username err = %v, want ErrAlreadyExists", err)
	}

	got, err := users.GetByEmail(ctx, "Alice@Example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != alice.ID {
		t.Fatalf("GetByEmail id = %s, want %s", got.ID, alice.ID)
	}

	if _, err := users.GetByID(ctx, "missing"); !errors.Is(err, pkg.ErrNotFound) {
		t.Fatalf("GetByID missing err = %v", err)
	}
}

func TestSessionRepoLifecycle(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	sessions := NewSQLiteSessionRepo(db.Conn)
	ctx := context.Background()

	u := createUser(t, users, "sam")
	expired := &models.Session{UserID: u.ID, RefreshToken: "old", ExpiresAt: base.Add(-time.Hour)}
	live := &models.Session{UserID: u.ID, RefreshToken: "new", ExpiresAt: base.Add(time.Hour)}
	for _, s := range []*models.Session{expired, live} {
		if err := sessions.Create(ctx, s); err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	n, err := sessions.DeleteExpired(ctx, base)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d sessions, want 1", n)
	}
	if _, err := sessions.Consume(ctx, "old"); !errors.Is(err, pkg.ErrNotFound) {
		t.Fatalf("expired session still present: %v", err)
	}
	got, err := sessions.Consume(ctx, "new")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if got.UserID != u.ID {
		t.Fatalf("session user = %s", got.UserID)
	}
	if _, err := sessions.Consume(ctx, "new"); !errors.Is(err, pkg.ErrNotFound) {
		t.Fatalf("second Consume err = %v, want ErrNotFound", err)
	}
}

func TestSessionRepoStoresTokenHash(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	sessions := NewSQLiteSessionRepo(db.Conn)
	ctx := context.Background()

	u := createUser(t, users, "hana")
	if err := sessions.Create(ctx, &models.Session{UserID: u.ID, RefreshToken: "plain-token", ExpiresAt: base}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	var stored string
	if err := db.Conn.QueryRow(`SELECT token_hash FROM sessions WHERE user_id = ?`, u.ID).Scan(&stored); err != nil {
		t.Fatalf("read token_hash: %v", err)
	}
	if stored == "plain-token" || len(stored) != 64 {
		t.Fatalf("token_hash = %q, want sha256 hex", stored)
	}

	if err := sessions.DeleteByUserID(ctx, u.ID); err != nil {
		t.Fatalf("DeleteByUserID: %v", err)
	}
	if _, err := sessions.Consume(ctx, "plain-token"); !errors.Is(err, pkg.ErrNotFound) {
		t.Fatalf("session survived DeleteByUserID: %v", err)
	}
}

func TestConversationMembership(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	convs := NewSQLiteConversationRepo(db.Conn)
	ctx := context.Background()

	a := createUser(t, users, "anna")
	b := createUser(t, users, "bert")
	c := createUser(t, users, "cora")
	direct := createConversation(t, convs, models.ConversationDirect, a.ID, b.ID)

	ok, err := convs.IsMember(ctx, direct.ID, b.ID)
	if err != nil || !ok {
		t.Fatalf("IsMember(b) = %v, %v", ok, err)
	}
	ok, err = convs.IsMember(ctx, direct.ID, c.ID)
	if err != nil || ok {
		t.Fatalf("IsMember(c) = %v, %v", ok, err)
	}

	found, err := convs.FindDirect(ctx, b.ID, a.ID)
	if err != nil {
		t.Fatalf("FindDirect: %v", err)
	}
	if found == nil || found.ID != direct.ID {
		t.Fatalf("FindDirect = %+v, want %s", found, direct.ID)
	}
	none, err := convs.FindDirect(ctx, a.ID, c.ID)
	if err != nil || none != nil {
		t.Fatalf("FindDirect(a,c) = %+v, %v", none, err)
	}

	members, err := convs.ListMembers(ctx, direct.ID)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 2 || members[0].User == nil || members[0].User.PasswordHash != "" {
		t.Fatalf("members = %+v", members)
	}

	if _, err := convs.GetMember(ctx, direct.ID, c.ID); !errors.Is(err, pkg.ErrNotFound) {
		t.Fatalf("GetMember non-member err = %v", err)
	}
}

func TestMessagePagination(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	convs := NewSQLiteConversationRepo(db.Conn)
	msgs := NewSQLiteMessageRepo(db.Conn)
	ctx := context.Background()

	a := createUser(t, users, "ada")
	b := createUser(t, users, "bob")
	conv := createConversation(t, convs, models.ConversationDirect, a.ID, b.ID)

	var ids []string
	for i := 0; i < 5; i++ {
		m := createMessage(t, msgs, conv.ID, a.ID, "m", base.Add(time.Duration(i)*time.Second))
		ids = append(ids, m.ID)
	}
	// Aynı zaman damgası: ekleme sırası korunmalı.
	same := createMessage(t, msgs, conv.ID, b.ID, "tie", base.Add(4*time.Second))
	ids = append(ids, same.ID)

	page, err := msgs.ListPage(ctx, conv.ID, a.ID, "", 3)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if len(page) != 3 || page[0].ID != ids[5] || page[1].ID != ids[4] || page[2].ID != ids[3] {
		t.Fatalf("first page order wrong: %v", pageIDs(page))
	}

	older, err := msgs.ListPage(ctx, conv.ID, a.ID, page[2].ID, 10)
	if err != nil {
		t.Fatalf("ListPage cursor: %v", err)
	}
	if len(older) != 3 || older[0].ID != ids[2] || older[2].ID != ids[0] {
		t.Fatalf("older page wrong: %v", pageIDs(older))
	}

	if err := msgs.Hide(ctx, a.ID, ids[5], base); err != nil {
		t.Fatalf("Hide: %v", err)
	}
	if err := msgs.Hide(ctx, a.ID, ids[5], base); err != nil {
		t.Fatalf("Hide twice: %v", err)
	}
	latest, err := msgs.Latest(ctx, conv.ID, a.ID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.ID != ids[4] {
		t.Fatalf("Latest for hider = %s, want %s", latest.ID, ids[4])
	}
	latest, _ = msgs.Latest(ctx, conv.ID, b.ID)
	if latest.ID != ids[5] {
		t.Fatalf("Latest for other member = %s, want %s", latest.ID, ids[5])
	}

	filtered, err := msgs.FilterIDs(ctx, conv.ID, []string{ids[0], ids[5], "foreign"}, a.ID)
	if err != nil {
		t.Fatalf("FilterIDs: %v", err)
	}
	if len(filtered) != 1 || filtered[0] != ids[5] {
		t.Fatalf("FilterIDs = %v", filtered)
	}
}

func TestMessageSoftDelete(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	convs := NewSQLiteConversationRepo(db.Conn)
	msgs := NewSQLiteMessageRepo(db.Conn)
	ctx := context.Background()

	a := createUser(t, users, "dora")
	b := createUser(t, users, "eli")
	conv := createConversation(t, convs, models.ConversationDirect, a.ID, b.ID)
	m := createMessage(t, msgs, conv.ID, a.ID, "secret", base)

	if err := msgs.SoftDelete(ctx, m.ID, base.Add(time.Minute)); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	got, err := msgs.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Text != nil || got.DeletedAt == nil {
		t.Fatalf("soft delete left text=%v deleted_at=%v", got.Text, got.DeletedAt)
	}
	if err := msgs.UpdateText(ctx, m.ID, "again", base); !errors.Is(err, pkg.ErrNotFound) {
		t.Fatalf("editing deleted message err = %v", err)
	}
}

func TestReactionToggle(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	convs := NewSQLiteConversationRepo(db.Conn)
	msgs := NewSQLiteMessageRepo(db.Conn)
	reactions := NewSQLiteReactionRepo(db.Conn)
	ctx := context.Background()

	a := createUser(t, users, "finn")
	b := createUser(t, users, "gail")
	conv := createConversation(t, convs, models.ConversationDirect, a.ID, b.ID)
	m := createMessage(t, msgs, conv.ID, a.ID, "hi", base)

	for _, uid := range []string{a.ID, b.ID} {
		added, err := reactions.Toggle(ctx, m.ID, uid, "👍")
		if err != nil || !added {
			t.Fatalf("Toggle add = %v, %v", added, err)
		}
	}
	groups, err := reactions.GetByMessageID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByMessageID: %v", err)
	}
	if len(groups) != 1 || groups[0].Count != 2 {
		t.Fatalf("groups = %+v", groups)
	}

	added, err := reactions.Toggle(ctx, m.ID, a.ID, "👍")
	if err != nil || added {
		t.Fatalf("Toggle remove = %v, %v", added, err)
	}
	groups, _ = reactions.GetByMessageID(ctx, m.ID)
	if len(groups) != 1 || groups[0].Count != 1 || groups[0].Users[0] != b.ID {
		t.Fatalf("groups after remove = %+v", groups)
	}
}

func TestDeliveriesAreIdempotent(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	convs := NewSQLiteConversationRepo(db.Conn)
	msgs := NewSQLiteMessageRepo(db.Conn)
	receipts := NewSQLiteReceiptRepo(db.Conn)
	ctx := context.Background()

	a := createUser(t, users, "hana")
	b := createUser(t, users, "ivan")
	conv := createConversation(t, convs, models.ConversationDirect, a.ID, b.ID)
	m := createMessage(t, msgs, conv.ID, a.ID, "hi", base)

	first := base.Add(time.Second)
	n, err := receipts.InsertDeliveries(ctx, b.ID, []string{m.ID}, first)
	if err != nil || n != 1 {
		t.Fatalf("first insert = %d, %v", n, err)
	}
	n, err = receipts.InsertDeliveries(ctx, b.ID, []string{m.ID}, base.Add(time.Minute))
	if err != nil || n != 0 {
		t.Fatalf("second insert = %d, %v", n, err)
	}

	deliveries, err := receipts.DeliveriesForMessages(ctx, []string{m.ID})
	if err != nil {
		t.Fatalf("DeliveriesForMessages: %v", err)
	}
	if len(deliveries) != 1 || !deliveries[0].DeliveredAt.Equal(first) {
		t.Fatalf("deliveries = %+v, want one at %v", deliveries, first)
	}
}

func TestReadCursorOnlyMovesForward(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	convs := NewSQLiteConversationRepo(db.Conn)
	msgs := NewSQLiteMessageRepo(db.Conn)
	receipts := NewSQLiteReceiptRepo(db.Conn)
	ctx := context.Background()

	a := createUser(t, users, "jo")
	b := createUser(t, users, "kai")
	conv := createConversation(t, convs, models.ConversationDirect, a.ID, b.ID)
	m1 := createMessage(t, msgs, conv.ID, a.ID, "one", base.Add(10*time.Second))
	m2 := createMessage(t, msgs, conv.ID, a.ID, "two", base.Add(20*time.Second))

	readAt := base.Add(30 * time.Second)
	advanced, err := receipts.AdvanceReadCursor(ctx, conv.ID, b.ID, m2.ID, readAt)
	if err != nil || !advanced {
		t.Fatalf("advance to m2 = %v, %v", advanced, err)
	}
	advanced, err = receipts.AdvanceReadCursor(ctx, conv.ID, b.ID, m1.ID, readAt.Add(time.Second))
	if err != nil || advanced {
		t.Fatalf("backwards advance = %v, %v", advanced, err)
	}
	advanced, err = receipts.AdvanceReadCursor(ctx, conv.ID, b.ID, m2.ID, readAt.Add(time.Minute))
	if err != nil || advanced {
		t.Fatalf("same-id advance = %v, %v", advanced, err)
	}

	cursors, err := receipts.ReadCursors(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ReadCursors: %v", err)
	}
	if len(cursors) != 1 {
		t.Fatalf("cursors = %+v", cursors)
	}
	c := cursors[0]
	if c.UserID != b.ID || c.MessageID != m2.ID || !c.LastReadAt.Equal(readAt) || !c.MessageCreatedAt.Equal(m2.CreatedAt) {
		t.Fatalf("cursor = %+v", c)
	}
}

func pageIDs(msgs []models.Message) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}
