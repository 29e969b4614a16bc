package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hfi/wiki-realnames/internal/wiki"
)

func newTestRedisStore(t *testing.T) (*RedisAccountStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisAccountStore(context.Background(), mr.Addr(), "", 0, "wiki:")
	if err != nil {
		t.Fatalf("NewRedisAccountStore() error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store, mr
}

func TestRedisAccountStore_AccountByName(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.PutAccount(ctx, "alice", "Alice Smith"); err != nil {
		t.Fatalf("PutAccount() error: %v", err)
	}
	if err := store.PutAccount(ctx, "carol", ""); err != nil {
		t.Fatalf("PutAccount() error: %v", err)
	}

	if got := mr.HGet("wiki:account:alice", "real_name"); got != "Alice Smith" {
		t.Errorf("stored real_name = %q, want %q", got, "Alice Smith")
	}

	tests := []struct {
		name         string
		username     string
		wantRealName string
		wantErr      error
	}{
		{name: "with real name", username: "alice", wantRealName: "Alice Smith"},
		{name: "empty real name", username: "carol", wantRealName: ""},
		{name: "unknown account", username: "nobody", wantErr: wiki.ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := store.AccountByName(ctx, tt.username)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("AccountByName() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("AccountByName() error: %v", err)
			}
			if a.Name != tt.username || a.RealName != tt.wantRealName {
				t.Errorf("AccountByName() = %+v", a)
			}
		})
	}
}

func TestRedisAccountStore_AccountByRealName(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	for name, realName := range map[string]string{
		"zed":   "Pat Lee",
		"pat":   "Pat Lee",
		"alice": "Alice Smith",
		"carol": "",
	} {
		if err := store.PutAccount(ctx, name, realName); err != nil {
			t.Fatalf("PutAccount(%s) error: %v", name, err)
		}
	}

	tests := []struct {
		name     string
		realName string
		wantName string
		wantErr  error
	}{
		{name: "single owner", realName: "Alice Smith", wantName: "alice"},
		{name: "duplicate real name resolves to lowest name", realName: "Pat Lee", wantName: "pat"},
		{name: "unknown real name", realName: "Nobody Here", wantErr: wiki.ErrAccountNotFound},
		{name: "empty real name", realName: "", wantErr: wiki.ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := store.AccountByRealName(ctx, tt.realName)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("AccountByRealName() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("AccountByRealName() error: %v", err)
			}
			if a.Name != tt.wantName || a.RealName != tt.realName {
				t.Errorf("AccountByRealName() = %+v, want name %q", a, tt.wantName)
			}
		})
	}
}

func TestRedisAccountStore_RealNameChange(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.PutAccount(ctx, "alice", "Alice Smith"); err != nil {
		t.Fatalf("PutAccount() error: %v", err)
	}
	if err := store.PutAccount(ctx, "alice", "Alice Jones"); err != nil {
		t.Fatalf("PutAccount() error: %v", err)
	}

	if _, err := store.AccountByRealName(ctx, "Alice Smith"); !errors.Is(err, wiki.ErrAccountNotFound) {
		t.Errorf("old real name error = %v, want ErrAccountNotFound", err)
	}
	a, err := store.AccountByRealName(ctx, "Alice Jones")
	if err != nil {
		t.Fatalf("AccountByRealName(new) error: %v", err)
	}
	if a.Name != "alice" {
		t.Errorf("Name = %q, want alice", a.Name)
	}
	if mr.Exists("wiki:realname:Alice Smith") {
		t.Error("old reverse set still present")
	}

	// Clearing the real name drops the account from every reverse set.
	if err := store.PutAccount(ctx, "alice", ""); err != nil {
		t.Fatalf("PutAccount() error: %v", err)
	}
	if _, err := store.AccountByRealName(ctx, "Alice Jones"); !errors.Is(err, wiki.ErrAccountNotFound) {
		t.Errorf("cleared real name error = %v, want ErrAccountNotFound", err)
	}
}

func TestRedisAccountStore_IgnoresStaleReverseEntries(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.PutAccount(ctx, "bob", "Bob Jones"); err != nil {
		t.Fatalf("PutAccount() error: %v", err)
	}
	// Entries written behind the store's back: one for a missing account,
	// one for an account whose hash names someone else.
	if _, err := mr.SAdd("wiki:realname:Bob Jones", "aaron", "bea"); err != nil {
		t.Fatalf("SAdd() error: %v", err)
	}
	mr.HSet("wiki:account:bea", "real_name", "Bea Ortiz")

	a, err := store.AccountByRealName(ctx, "Bob Jones")
	if err != nil {
		t.Fatalf("AccountByRealName() error: %v", err)
	}
	if a.Name != "bob" || a.RealName != "Bob Jones" {
		t.Errorf("AccountByRealName() = %+v, want bob", a)
	}
}

func TestRedisAccountStore_Ping(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping() error: %v", err)
	}

	mr.Close()
	if err := store.Ping(ctx); err == nil {
		t.Error("Ping() after server close should fail")
	}
	if _, err := store.AccountByName(ctx, "alice"); err == nil || errors.Is(err, wiki.ErrAccountNotFound) {
		t.Errorf("AccountByName() error = %v, want a connection error", err)
	}
}

func TestNewRedisAccountStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisAccountStore(context.Background(), addr, "", 0, ""); err == nil {
		t.Error("NewRedisAccountStore() should fail when Redis is down")
	}
}

func TestNewRedisAccountStoreFromClient_Prefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisAccountStoreFromClient(client, "tenant1:")
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.PutAccount(context.Background(), "alice", "Alice Smith"); err != nil {
		t.Fatalf("PutAccount() error: %v", err)
	}
	if !mr.Exists("tenant1:account:alice") {
		t.Error("account hash not written under prefix")
	}
	if ok, _ := mr.SIsMember("tenant1:realname:Alice Smith", "alice"); !ok {
		t.Error("reverse set not written under prefix")
	}
}
