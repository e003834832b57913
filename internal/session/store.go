// Package session provides the persistent key-value store that backs a UI session.
//
// Every access is a single atomic key read or write. Callers that update several
// keys (name, email, password) do so with separate writes; there is no
// cross-field transaction.
package session

import (
	"context"
	"fmt"
	"sync"
)

// Keys persisted for a UI session.
const (
	KeyProfileID = "spaniProfileId"
	KeyPhone     = "spaniUserPhone"
	KeyName      = "spaniUserName"
	KeyEmail     = "spaniUserEmail"
	KeyPassword  = "spaniUserPassword"
	KeyLoggedIn  = "spaniLoggedIn"
)

// Store is a string-keyed, string-valued persistent store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Closer is implemented by stores that hold external resources.
type Closer interface {
	Close() error
}

// GetString returns the stored value or "" when the key is absent.
func GetString(ctx context.Context, s Store, key string) (string, error) {
	v, _, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return v, nil
}

// RemoveAll removes each key in turn and stops at the first failure.
func RemoveAll(ctx context.Context, s Store, keys ...string) error {
	for _, k := range keys {
		if err := s.Remove(ctx, k); err != nil {
			return fmt.Errorf("failed to remove %s: %w", k, err)
		}
	}
	return nil
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Remove implements Store.
func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Len reports how many keys are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// NamespacedBackend is a store that can partition keys by namespace.
type NamespacedBackend interface {
	GetNS(ctx context.Context, ns, key string) (string, bool, error)
	SetNS(ctx context.Context, ns, key, value string) error
	RemoveNS(ctx context.Context, ns, key string) error
}

// namespaced scopes a NamespacedBackend to one UI session.
type namespaced struct {
	backend NamespacedBackend
	ns      string
}

// Namespaced returns a Store whose keys live under ns.
func Namespaced(backend NamespacedBackend, ns string) Store {
	return &namespaced{backend: backend, ns: ns}
}

func (n *namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.backend.GetNS(ctx, n.ns, key)
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	return n.backend.SetNS(ctx, n.ns, key, value)
}

func (n *namespaced) Remove(ctx context.Context, key string) error {
	return n.backend.RemoveNS(ctx, n.ns, key)
}

// MemoryBackend is a namespaced in-memory backend.
type MemoryBackend struct {
	mu     sync.Mutex
	stores map[string]*MemoryStore
}

// NewMemoryBackend creates an empty namespaced in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{stores: make(map[string]*MemoryStore)}
}

func (b *MemoryBackend) store(ns string) *MemoryStore {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.stores[ns]
	if !ok {
		s = NewMemoryStore()
		b.stores[ns] = s
	}
	return s
}

// GetNS implements NamespacedBackend.
func (b *MemoryBackend) GetNS(ctx context.Context, ns, key string) (string, bool, error) {
	return b.store(ns).Get(ctx, key)
}

// SetNS implements NamespacedBackend.
func (b *MemoryBackend) SetNS(ctx context.Context, ns, key, value string) error {
	return b.store(ns).Set(ctx, key, value)
}

// RemoveNS implements NamespacedBackend.
func (b *MemoryBackend) RemoveNS(ctx context.Context, ns, key string) error {
	return b.store(ns).Remove(ctx, key)
}
