package repository

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/akinalp/gooverchat/models"
	"github.com/akinalp/gooverchat/pkg"
)

func TestFriendshipLifecycle(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	friends := NewSQLiteFriendshipRepo(db.Conn)
	ctx := context.Background()

	alice, bob, carol := createUser(t, users, "alice"), createUser(t, users, "Bob"), createUser(t, users, "carol")

	req := &models.Friendship{UserID: alice.ID, FriendID: bob.ID, Status: models.FriendshipPending, CreatedAt: base}
	if err := friends.Create(ctx, req); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(req.ID) != 16 {
		t.Fatalf("id = %q, want 16 hex chars", req.ID)
	}
	dup := &models.Friendship{UserID: alice.ID, FriendID: bob.ID, Status: models.FriendshipPending}
	if err := friends.Create(ctx, dup); !errors.Is(err, pkg.ErrAlreadyExists) {
		t.Fatalf("duplicate err = %v, want ErrAlreadyExists", err)
	}

	// GetByPair iki yönde de aynı kaydı bulur.
	got, err := friends.GetByPair(ctx, bob.ID, alice.ID)
	if err != nil || got.ID != req.ID || got.UserID != alice.ID {
		t.Fatalf("GetByPair reversed = %+v, err %v", got, err)
	}
	if _, err := friends.GetByPair(ctx, alice.ID, carol.ID); !errors.Is(err, pkg.ErrNotFound) {
		t.Fatalf("missing pair err = %v, want ErrNotFound", err)
	}

	incoming, _ := friends.ListIncoming(ctx, bob.ID)
	outgoing, _ := friends.ListOutgoing(ctx, alice.ID)
	if len(incoming) != 1 || incoming[0].User.ID != alice.ID || incoming[0].User.PasswordHash != "" {
		t.Fatalf("incoming = %+v", incoming)
	}
	if len(outgoing) != 1 || outgoing[0].User.ID != bob.ID {
		t.Fatalf("outgoing = %+v", outgoing)
	}

	if err := friends.Accept(ctx, req.ID, base.Add(time.Minute)); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := friends.Accept(ctx, req.ID, base.Add(time.Minute)); !errors.Is(err, pkg.ErrNotFound) {
		t.Fatalf("accept twice err = %v, want ErrNotFound", err)
	}

	carolReq := &models.Friendship{UserID: carol.ID, FriendID: alice.ID, Status: models.FriendshipPending}
	friends.Create(ctx, carolReq)
	friends.Accept(ctx, carolReq.ID, base)

	list, err := friends.ListFriends(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list friends: %v", err)
	}
	if len(list) != 2 || list[0].User.Username != "Bob" || list[1].User.Username != "carol" {
		t.Fatalf("friends = %+v", list)
	}

	removed, err := friends.DeleteByPair(ctx, bob.ID, alice.ID)
	if err != nil || !removed {
		t.Fatalf("delete by pair = %v, err %v", removed, err)
	}
	if removed, _ := friends.DeleteByPair(ctx, bob.ID, alice.ID); removed {
		t.Fatalf("second delete reported a row")
	}
}

func TestBlocksAreDirected(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	blocks := NewSQLiteBlockRepo(db.Conn)
	ctx := context.Background()

	alice, bob, carol := createUser(t, users, "alice"), createUser(t, users, "bob"), createUser(t, users, "carol")

	if err := blocks.Block(ctx, alice.ID, bob.ID, base); err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := blocks.Block(ctx, alice.ID, bob.ID, base); err != nil {
		t.Fatalf("block twice: %v", err)
	}

	for _, pair := range [][2]string{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		blocked, err := blocks.EitherBlocked(ctx, pair[0], pair[1])
		if err != nil || !blocked {
			t.Fatalf("EitherBlocked(%v) = %v, err %v", pair, blocked, err)
		}
	}
	if blocked, _ := blocks.EitherBlocked(ctx, alice.ID, carol.ID); blocked {
		t.Fatalf("unrelated pair reported blocked")
	}

	list, _ := blocks.ListBlocked(ctx, alice.ID)
	if len(list) != 1 || list[0].ID != bob.ID {
		t.Fatalf("alice blocked = %+v", list)
	}
	if list, _ := blocks.ListBlocked(ctx, bob.ID); len(list) != 0 {
		t.Fatalf("bob blocked = %+v", list)
	}

	if err := blocks.Unblock(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if blocked, _ := blocks.EitherBlocked(ctx, alice.ID, bob.ID); blocked {
		t.Fatalf("still blocked after unblock")
	}
}

func TestUserSearch(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	ctx := context.Background()

	me := createUser(t, users, "alice")
	createUser(t, users, "Alicia")
	createUser(t, users, "bob_ali")
	createUser(t, users, "bobby")

	found, err := users.Search(ctx, "ALI", me.ID, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	names := make([]string, len(found))
	for i, u := range found {
		names[i] = u.Username
		if u.PasswordHash != "" {
			t.Fatalf("password hash leaked for %s", u.Username)
		}
	}
	if len(names) != 2 || names[0] != "Alicia" || names[1] != "bob_ali" {
		t.Fatalf("names = %v", names)
	}

	// Email de aranır; LIKE joker karakterleri düz karakterdir.
	if found, _ := users.Search(ctx, "bobby@example", me.ID, 10); len(found) != 1 {
		t.Fatalf("email search = %+v", found)
	}
	if found, _ := users.Search(ctx, "b_b", me.ID, 10); len(found) != 0 {
		t.Fatalf("underscore matched as wildcard: %+v", found)
	}
	if found, _ := users.Search(ctx, "b", me.ID, 1); len(found) != 1 {
		t.Fatalf("limit ignored: %d results", len(found))
	}
}

func TestRemoveMemberAndListIDs(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	convs := NewSQLiteConversationRepo(db.Conn)
	ctx := context.Background()

	alice, bob := createUser(t, users, "alice"), createUser(t, users, "bob")
	first := createConversation(t, convs, models.ConversationGroup, alice.ID, bob.ID)
	second := createConversation(t, convs, models.ConversationDirect, alice.ID, bob.ID)

	if err := convs.RemoveMember(ctx, first.ID, bob.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if err := convs.RemoveMember(ctx, first.ID, bob.ID); !errors.Is(err, pkg.ErrNotFound) {
		t.Fatalf("remove twice err = %v, want ErrNotFound", err)
	}
	if ok, _ := convs.IsMember(ctx, first.ID, bob.ID); ok {
		t.Fatalf("bob still a member")
	}

	ids, err := convs.ListIDs(ctx)
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	sort.Strings(ids)
	want := []string{first.ID, second.ID}
	sort.Strings(want)
	if len(ids) != 2 || ids[0] != want[0] || ids[1] != want[1] {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
}

type mapMirror map[string][]string

func (m mapMirror) SyncConversation(_ context.Context, conversationID string, userIDs []string) error {
	m[conversationID] = append([]string(nil), userIDs...)
	return nil
}

func TestSyncAllMemberships(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	convs := NewSQLiteConversationRepo(db.Conn)
	ctx := context.Background()

	alice, bob, carol := createUser(t, users, "alice"), createUser(t, users, "bob"), createUser(t, users, "carol")
	group := createConversation(t, convs, models.ConversationGroup, alice.ID, bob.ID, carol.ID)
	direct := createConversation(t, convs, models.ConversationDirect, alice.ID, bob.ID)

	mirror := mapMirror{}
	n, err := SyncAllMemberships(ctx, convs, mirror)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if n != 2 || len(mirror[group.ID]) != 3 || len(mirror[direct.ID]) != 2 {
		t.Fatalf("synced %d, mirror = %v", n, mirror)
	}
}

func TestMessageSearch(t *testing.T) {
	db := openTestDB(t)
	users := NewSQLiteUserRepo(db.Conn)
	convs := NewSQLiteConversationRepo(db.Conn)
	messages := NewSQLiteMessageRepo(db.Conn)
	ctx := context.Background()

	alice, bob := createUser(t, users, "alice"), createUser(t, users, "bob")
	conv := createConversation(t, convs, models.ConversationDirect, alice.ID, bob.ID)
	other := createConversation(t, convs, models.ConversationGroup, alice.ID, bob.ID)

	first := createMessage(t, messages, conv.ID, alice.ID, "Deploy window opens at nine", base)
	second := createMessage(t, messages, conv.ID, bob.ID, "deployment finished", base.Add(time.Minute))
	edited := createMessage(t, messages, conv.ID, bob.ID, "lunch?", base.Add(2*time.Minute))
	deleted := createMessage(t, messages, conv.ID, alice.ID, "deploy rollback", base.Add(3*time.Minute))
	createMessage(t, messages, other.ID, alice.ID, "deploy elsewhere", base)

	if err := messages.SoftDelete(ctx, deleted.ID, base.Add(4*time.Minute)); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := messages.UpdateText(ctx, edited.ID, "deploy after lunch", base.Add(5*time.Minute)); err != nil {
		t.Fatalf("update text: %v", err)
	}

	got, err := messages.Search(ctx, conv.ID, alice.ID, "depl", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if ids := pageIDs(got); len(ids) != 3 || ids[0] != edited.ID || ids[1] != second.ID || ids[2] != first.ID {
		t.Fatalf("search ids = %v", ids)
	}

	// İki kelime birlikte eşleşmeli.
	if got, _ := messages.Search(ctx, conv.ID, alice.ID, "deploy nine", 10); len(got) != 1 || got[0].ID != first.ID {
		t.Fatalf("two-term search = %v", pageIDs(got))
	}

	if err := messages.Hide(ctx, bob.ID, first.ID, base); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if got, _ := messages.Search(ctx, conv.ID, bob.ID, "window", 10); len(got) != 0 {
		t.Fatalf("hidden message found: %v", pageIDs(got))
	}

	// FTS sözdizimi kullanıcı girdisinden gelmez.
	if _, err := messages.Search(ctx, conv.ID, alice.ID, `"unbalanced OR (`, 10); err != nil {
		t.Fatalf("raw fts syntax leaked into query: %v", err)
	}
	if got, _ := messages.Search(ctx, conv.ID, alice.ID, `"*`, 10); len(got) != 0 {
		t.Fatalf("empty query matched %v", pageIDs(got))
	}
}
