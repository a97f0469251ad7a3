package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/reloadggg/chatbot-rag/internal/ai"
)

var testDBSeq atomic.Int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:sessions_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&GuestSession{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestSaveAndLoad(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	cfg := ai.ProviderConfig{LLMProvider: "openai", LLMModel: "gpt-4o", LLMAPIKey: "sk-test"}
	if err := store.Save(ctx, "s1", cfg, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatalf("expected session, got nil")
	}
	if got.UserType != UserTypeGuest {
		t.Fatalf("expected user_type guest, got %q", got.UserType)
	}
	gotCfg, err := got.Config()
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if gotCfg != cfg {
		t.Fatalf("config mismatch: %+v", gotCfg)
	}
	if !got.ExpiresAt.After(got.CreatedAt) {
		t.Fatalf("expires_at must be after created_at")
	}
}

func TestLoadMissing(t *testing.T) {
	store := NewStore(openTestDB(t))

	got, err := store.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing session")
	}
}

func TestLazyExpiryRemovesRow(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	if err := store.Save(ctx, "s1", ai.ProviderConfig{}, 50*time.Millisecond); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("expected live session, got %v err=%v", got, err)
	}

	time.Sleep(80 * time.Millisecond)

	got, err = store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load after expiry: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired session to read as missing")
	}

	// lazy expiry must also have removed the row itself
	var count int64
	if err := db.Model(&GuestSession{}).Where("session_id = ?", "s1").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected row removed, found %d", count)
	}
}

func TestSaveUpsertPreservesCreatedAt(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	cfgA := ai.ProviderConfig{LLMProvider: "openai", LLMModel: "gpt-4o"}
	cfgB := ai.ProviderConfig{LLMProvider: "gemini", LLMModel: "gemini-1.5-pro"}

	if err := store.Save(ctx, "s1", cfgA, time.Hour); err != nil {
		t.Fatalf("first save: %v", err)
	}
	first, err := store.Load(ctx, "s1")
	if err != nil || first == nil {
		t.Fatalf("load after first save: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if err := store.Save(ctx, "s1", cfgB, 2*time.Hour); err != nil {
		t.Fatalf("second save: %v", err)
	}
	second, err := store.Load(ctx, "s1")
	if err != nil || second == nil {
		t.Fatalf("load after second save: %v", err)
	}

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at changed on upsert: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.ExpiresAt.After(first.ExpiresAt) {
		t.Fatalf("expires_at not refreshed")
	}
	gotCfg, err := second.Config()
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if gotCfg != cfgB {
		t.Fatalf("expected refreshed config, got %+v", gotCfg)
	}
}

func TestCleanupExpired(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	if err := store.Save(ctx, "live", ai.ProviderConfig{}, time.Hour); err != nil {
		t.Fatalf("save live: %v", err)
	}
	if err := store.Save(ctx, "dead1", ai.ProviderConfig{}, time.Millisecond); err != nil {
		t.Fatalf("save dead1: %v", err)
	}
	if err := store.Save(ctx, "dead2", ai.ProviderConfig{}, time.Millisecond); err != nil {
		t.Fatalf("save dead2: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	n, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}

	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].SessionID != "live" {
		t.Fatalf("unexpected active sessions: %+v", active)
	}
}

func TestListActiveFiltersExpired(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	if err := store.Save(ctx, "live", ai.ProviderConfig{}, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "dead", ai.ProviderConfig{}, time.Millisecond); err != nil {
		t.Fatalf("save: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	// no sweep has run; filtering happens at read time
	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].SessionID != "live" {
		t.Fatalf("unexpected active sessions: %+v", active)
	}
}

func TestNewID(t *testing.T) {
	a, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	b, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if len(a) != 26 || len(b) != 26 {
		t.Fatalf("expected 26-char ids, got %q %q", a, b)
	}
	if a == b {
		t.Fatalf("expected unique ids")
	}
}
