package chat

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:chat_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Conversation{}, &Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestAppendMessageBlankIsNoOp(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	for _, content := range []string{"", "   ", "\n\t  \n"} {
		msg, err := store.AppendMessage(ctx, "s1", "user", content, "guest")
		if err != nil {
			t.Fatalf("append %q: %v", content, err)
		}
		if msg != nil {
			t.Fatalf("append %q: expected nil message", content)
		}
	}

	// the no-op must not have created a conversation either
	conv, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if conv != nil {
		t.Fatalf("blank append created a conversation: %+v", conv)
	}
}

func TestAppendMessageTrimsContent(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	msg, err := store.AppendMessage(ctx, "s1", "user", "  hello  \n", "guest")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if msg == nil || msg.Content != "hello" {
		t.Fatalf("expected trimmed content, got %+v", msg)
	}
}

func TestAutoTitleFirstUserMessage(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	if _, err := store.AppendMessage(ctx, "s1", "user", "Hello world\nand some follow-up detail", "guest"); err != nil {
		t.Fatalf("append: %v", err)
	}

	conv, err := store.Get(ctx, "s1")
	if err != nil || conv == nil {
		t.Fatalf("get: %v %v", conv, err)
	}
	if conv.Title != "Hello world" {
		t.Fatalf("expected first-line title, got %q", conv.Title)
	}

	// a later user message must not override the earned title
	if _, err := store.AppendMessage(ctx, "s1", "user", "Second question", "guest"); err != nil {
		t.Fatalf("append: %v", err)
	}
	conv, err = store.Get(ctx, "s1")
	if err != nil || conv == nil {
		t.Fatalf("get: %v %v", conv, err)
	}
	if conv.Title != "Hello world" {
		t.Fatalf("title overridden by second message: %q", conv.Title)
	}
}

func TestAutoTitleIgnoresAssistantMessages(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	if _, err := store.AppendMessage(ctx, "s1", "assistant", "Welcome! How can I help?", "guest"); err != nil {
		t.Fatalf("append: %v", err)
	}
	conv, err := store.Get(ctx, "s1")
	if err != nil || conv == nil {
		t.Fatalf("get: %v %v", conv, err)
	}
	if conv.Title != DefaultTitle {
		t.Fatalf("assistant message set the title: %q", conv.Title)
	}
}

func TestAutoTitleTruncatesTo60Runes(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	long := strings.Repeat("ab", 50) // 100 runes, no newline
	if _, err := store.AppendMessage(ctx, "s1", "user", long, "guest"); err != nil {
		t.Fatalf("append: %v", err)
	}
	conv, err := store.Get(ctx, "s1")
	if err != nil || conv == nil {
		t.Fatalf("get: %v %v", conv, err)
	}
	if got := []rune(conv.Title); len(got) != 60 {
		t.Fatalf("expected 60-rune title, got %d", len(got))
	}
	if !strings.HasPrefix(long, conv.Title) {
		t.Fatalf("title is not a prefix of the message: %q", conv.Title)
	}
}

func TestRenameAndReArmAutoTitle(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	if _, err := store.AppendMessage(ctx, "s1", "user", "First question", "guest"); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := store.Rename(ctx, "s1", "  My Topic  "); err != nil {
		t.Fatalf("rename: %v", err)
	}
	conv, _ := store.Get(ctx, "s1")
	if conv.Title != "My Topic" {
		t.Fatalf("expected trimmed rename, got %q", conv.Title)
	}

	// blank rename restores the placeholder, which re-arms auto-titling
	if err := store.Rename(ctx, "s1", "   "); err != nil {
		t.Fatalf("rename blank: %v", err)
	}
	conv, _ = store.Get(ctx, "s1")
	if conv.Title != DefaultTitle {
		t.Fatalf("expected placeholder after blank rename, got %q", conv.Title)
	}

	if _, err := store.AppendMessage(ctx, "s1", "user", "Fresh topic", "guest"); err != nil {
		t.Fatalf("append: %v", err)
	}
	conv, _ = store.Get(ctx, "s1")
	if conv.Title != "Fresh topic" {
		t.Fatalf("auto-title did not re-arm, got %q", conv.Title)
	}
}

func TestGetMessagesOrder(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	contents := []string{"one", "two", "three", "four"}
	roles := []string{"user", "assistant", "user", "assistant"}
	for i, c := range contents {
		if _, err := store.AppendMessage(ctx, "s1", roles[i], c, "guest"); err != nil {
			t.Fatalf("append %q: %v", c, err)
		}
	}

	msgs, err := store.GetMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != len(contents) {
		t.Fatalf("expected %d messages, got %d", len(contents), len(msgs))
	}
	for i, m := range msgs {
		if m.Content != contents[i] || m.Role != roles[i] {
			t.Fatalf("message %d out of order: %+v", i, m)
		}
	}
}

func TestListRecentDescWindow(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := store.AppendMessage(ctx, "s1", "user", fmt.Sprintf("m%d", i), "guest"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recent, err := store.ListRecentDesc(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected window of 3, got %d", len(recent))
	}
	if recent[0].Content != "m4" || recent[2].Content != "m2" {
		t.Fatalf("unexpected window: %+v", recent)
	}
}

func TestListOrderedByActivity(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	if _, err := store.AppendMessage(ctx, "a", "user", "older", "guest"); err != nil {
		t.Fatalf("append: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := store.AppendMessage(ctx, "b", "user", "newer", "system"); err != nil {
		t.Fatalf("append: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	// touching a again makes it the most recently active
	if _, err := store.AppendMessage(ctx, "a", "user", "again", "guest"); err != nil {
		t.Fatalf("append: %v", err)
	}

	all, err := store.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].SessionID != "a" {
		t.Fatalf("unexpected order: %+v", all)
	}

	guests, err := store.List(ctx, "guest", 0)
	if err != nil {
		t.Fatalf("list guests: %v", err)
	}
	if len(guests) != 1 || guests[0].SessionID != "a" {
		t.Fatalf("unexpected guest filter: %+v", guests)
	}
}

func TestDeleteRemovesMessages(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	if _, err := store.AppendMessage(ctx, "s1", "user", "hello", "guest"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := store.AppendMessage(ctx, "s2", "user", "other", "guest"); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	conv, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if conv != nil {
		t.Fatalf("conversation survived delete")
	}
	var count int64
	if err := db.Model(&Message{}).Where("session_id = ?", "s1").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("messages survived delete: %d", count)
	}

	// the neighbouring conversation is untouched
	other, err := store.Get(ctx, "s2")
	if err != nil || other == nil {
		t.Fatalf("neighbour lost: %v %v", other, err)
	}
}
