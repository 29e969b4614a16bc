package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/hfi/wiki-realnames/internal/wiki"
)

type pageKey struct {
	ns    wiki.Namespace
	dbKey string
}

// MemoryStore is an in-memory implementation of both account and page stores
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]string // name -> real name
	pages    map[pageKey]int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]string),
		pages:    make(map[pageKey]int64),
	}
}

// PutAccount creates or updates an account
func (m *MemoryStore) PutAccount(name, realName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[name] = realName
}

// PutPage records that title exists with the given page id
func (m *MemoryStore) PutPage(title wiki.Title, id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[pageKey{ns: title.Namespace(), dbKey: title.DBKey()}] = id
}

// DeletePage removes title
func (m *MemoryStore) DeletePage(title wiki.Title) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, pageKey{ns: title.Namespace(), dbKey: title.DBKey()})
}

// AccountByName looks an account up by login name
func (m *MemoryStore) AccountByName(_ context.Context, name string) (*wiki.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	realName, ok := m.accounts[name]
	if !ok {
		return nil, wiki.ErrAccountNotFound
	}
	return &wiki.Account{Name: name, RealName: realName}, nil
}

// AccountByRealName returns the first account, by name, whose real name matches
func (m *MemoryStore) AccountByRealName(_ context.Context, realName string) (*wiki.Account, error) {
	if realName == "" {
		return nil, wiki.ErrAccountNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []string
	for name, rn := range m.accounts {
		if rn == realName {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return nil, wiki.ErrAccountNotFound
	}
	sort.Strings(matches)
	return &wiki.Account{Name: matches[0], RealName: realName}, nil
}

// CurrentPageID returns the page id for title, or wiki.PageIDMissing
func (m *MemoryStore) CurrentPageID(_ context.Context, title wiki.Title) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pages[pageKey{ns: title.Namespace(), dbKey: title.DBKey()}], nil
}

// Size returns the number of accounts and pages held
func (m *MemoryStore) Size() (accounts, pages int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts), len(m.pages)
}

// Ping always succeeds
func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
