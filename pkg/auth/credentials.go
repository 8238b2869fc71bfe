package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Credential is a stored Instagram session token
type Credential struct {
	Username     string    `json:"username"`
	SessionID    string    `json:"session_id"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the interface for storing and retrieving session credentials
type Store interface {
	// Store saves a credential
	Store(cred *Credential) error

	// Retrieve gets the credential for a specific username
	Retrieve(username string) (*Credential, error)

	// Delete removes the credential for a specific username
	Delete(username string) error

	// Exists checks if a credential exists for a username
	Exists(username string) bool
}

var (
	// ErrCredentialNotFound is returned when no credential exists
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrInvalidCredential is returned when a credential is malformed
	ErrInvalidCredential = errors.New("invalid credential")
)

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []Store
}

// NewManager creates a credential manager. The system keychain is
// preferred; an encrypted file in the config directory is the fallback
// for headless hosts without a keyring daemon.
func NewManager() (*Manager, error) {
	var stores []Store

	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "session.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over explicit stores, used by tests
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Store saves a credential to the first store that accepts it
func (m *Manager) Store(cred *Credential) error {
	if cred == nil || cred.Username == "" || cred.SessionID == "" {
		return ErrInvalidCredential
	}
	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(cred); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("all credential stores failed: %w", lastErr)
	}
	return errors.New("no credential stores available")
}

// Retrieve gets a credential, trying each store in order
func (m *Manager) Retrieve(username string) (*Credential, error) {
	for _, store := range m.stores {
		cred, err := store.Retrieve(username)
		if err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, ErrCredentialNotFound
}

// Delete removes a credential from every store that has it
func (m *Manager) Delete(username string) error {
	found := false
	for _, store := range m.stores {
		if store.Exists(username) {
			if err := store.Delete(username); err != nil {
				return err
			}
			found = true
		}
	}
	if !found {
		return ErrCredentialNotFound
	}
	return nil
}

// Exists checks if a credential exists in any store
func (m *Manager) Exists(username string) bool {
	for _, store := range m.stores {
		if store.Exists(username) {
			return true
		}
	}
	return false
}

// getConfigDir returns the igtracker config directory, creating it if needed
func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".config", "igtracker")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}
