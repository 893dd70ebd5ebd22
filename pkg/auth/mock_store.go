package auth

import "sync"

// MockStore is an in-memory credential store for testing
type MockStore struct {
	creds map[string]*Credentials
	mu    sync.RWMutex

	// StoreErr, when set, is returned by Store to simulate failures
	StoreErr error
}

// NewMockStore creates a new in-memory credential store
func NewMockStore() *MockStore {
	return &MockStore{
		creds: make(map[string]*Credentials),
	}
}

// NewMockManager creates a Manager backed only by a mock store, for
// tests that must not touch the keychain or filesystem
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return &Manager{stores: []CredentialStore{store}}, store
}

// Count returns the number of stored credentials
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.creds)
}

// Store saves credentials in memory
func (m *MockStore) Store(creds *Credentials) error {
	if m.StoreErr != nil {
		return m.StoreErr
	}
	if creds == nil || creds.Site == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *creds
	m.creds[creds.Site] = &clone
	return nil
}

// Retrieve gets credentials from memory
func (m *MockStore) Retrieve(site string) (*Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	creds, exists := m.creds[site]
	if !exists {
		return nil, ErrCredentialsNotFound
	}
	clone := *creds
	return &clone, nil
}

// Delete removes credentials from memory
func (m *MockStore) Delete(site string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.creds[site]; !exists {
		return ErrCredentialsNotFound
	}
	delete(m.creds, site)
	return nil
}

// Exists checks if credentials exist in memory
func (m *MockStore) Exists(site string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.creds[site]
	return exists
}
