package session

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Canonical keys. Every component reads and writes the token pair through
// these, never through ad hoc names.
const (
	KeyAccess       = "access"
	KeyRefresh      = "refresh"
	KeyPendingEmail = "pending_email"
	KeyResetEmail   = "reset_email"
)

var ErrNotFound = errors.New("session value not found")

type Tokens struct {
	Access  string
	Refresh string
}

func (t Tokens) Empty() bool {
	return strings.TrimSpace(t.Access) == ""
}

// Store owns the persisted session: the token pair plus a few small values
// carried between screens (pending verification email, reset email).
type Store interface {
	Tokens(ctx context.Context) (Tokens, error)
	SaveTokens(ctx context.Context, tokens Tokens) error
	ClearTokens(ctx context.Context) error

	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	Close() error
}

// AccessToken adapts a Store to the HTTP client's token source.
func AccessToken(ctx context.Context, store Store) (string, error) {
	tokens, err := store.Tokens(ctx)
	if err != nil {
		return "", err
	}
	return tokens.Access, nil
}

// TokenSource is the view of a Store the HTTP client needs.
type TokenSource struct {
	Store Store
}

func (s TokenSource) AccessToken(ctx context.Context) (string, error) {
	if s.Store == nil {
		return "", nil
	}
	return AccessToken(ctx, s.Store)
}

type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Tokens(_ context.Context) (Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Tokens{Access: m.values[KeyAccess], Refresh: m.values[KeyRefresh]}, nil
}

func (m *MemoryStore) SaveTokens(_ context.Context, tokens Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[KeyAccess] = tokens.Access
	m.values[KeyRefresh] = tokens.Refresh
	return nil
}

func (m *MemoryStore) ClearTokens(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, KeyAccess)
	delete(m.values, KeyRefresh)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Open picks the store for path: ":memory:" (or empty) keeps the session in
// process memory, anything else is a SQLite file.
func Open(path string) (Store, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == ":memory:" {
		return NewMemoryStore(), nil
	}
	return NewSQLiteStore(path)
}
