package auth

import "sync"

// MockStore is an in-memory Store used by tests
type MockStore struct {
	creds map[string]Credential
	mu    sync.RWMutex

	// FailStore makes Store return an error, for fallback testing
	FailStore bool
}

// NewMockStore creates a new in-memory credential store
func NewMockStore() *MockStore {
	return &MockStore{creds: make(map[string]Credential)}
}

// Store saves a credential in memory
func (m *MockStore) Store(cred *Credential) error {
	if m.FailStore {
		return ErrInvalidCredential
	}
	if cred == nil || cred.Username == "" {
		return ErrInvalidCredential
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[cred.Username] = *cred
	return nil
}

// Retrieve gets a credential from memory
func (m *MockStore) Retrieve(username string) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, exists := m.creds[username]
	if !exists {
		return nil, ErrCredentialNotFound
	}
	return &cred, nil
}

// Delete removes a credential from memory
func (m *MockStore) Delete(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.creds[username]; !exists {
		return ErrCredentialNotFound
	}
	delete(m.creds, username)
	return nil
}

// Exists checks if a credential exists in memory
func (m *MockStore) Exists(username string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.creds[username]
	return exists
}
