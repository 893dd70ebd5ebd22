package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultSite is the site name used when none is given
const DefaultSite = "default"

var (
	// ErrCredentialsNotFound indicates no stored credentials for a site
	ErrCredentialsNotFound = errors.New("credentials not found")
	// ErrInvalidCredentials indicates malformed or incomplete credentials
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrStoreUnavailable indicates the store does not support the operation
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// Credentials holds the Jira connection identity for one site
type Credentials struct {
	Site         string    `json:"site"`
	BaseURL      string    `json:"base_url"`
	Email        string    `json:"email"`
	APIToken     string    `json:"api_token"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for a site
	Store(creds *Credentials) error

	// Retrieve gets credentials for a specific site
	Retrieve(site string) (*Credentials, error)

	// Delete removes credentials for a specific site
	Delete(site string) error

	// Exists checks if credentials exist for a site
	Exists(site string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a new credential manager with appropriate storage
// backends: system keychain first, encrypted file as fallback, then
// environment variables as last resort.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves credentials using the first available store
func (m *Manager) Store(creds *Credentials) error {
	if creds.Site == "" {
		return errors.New("site name is required")
	}
	if creds.BaseURL == "" {
		return errors.New("base URL is required")
	}
	if creds.Email == "" {
		return errors.New("email is required")
	}
	if creds.APIToken == "" {
		return errors.New("API token is required")
	}

	creds.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(creds); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(site string) (*Credentials, error) {
	for _, store := range m.stores {
		if creds, err := store.Retrieve(site); err == nil && creds != nil {
			return creds, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, site)
}

// RetrieveDefault gets credentials for the default site, trying
// environment variables first for non-interactive use
func (m *Manager) RetrieveDefault() (*Credentials, error) {
	if envStore, ok := m.stores[len(m.stores)-1].(*EnvironmentStore); ok {
		if creds, err := envStore.Retrieve(""); err == nil && creds != nil {
			return creds, nil
		}
	}
	return m.Retrieve(DefaultSite)
}

// Delete removes credentials for a site from all stores
func (m *Manager) Delete(site string) error {
	var deleted bool
	for _, store := range m.stores {
		if err := store.Delete(site); err == nil {
			deleted = true
		}
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, site)
	}
	return nil
}

// Exists checks if credentials exist for a site in any store
func (m *Manager) Exists(site string) bool {
	for _, store := range m.stores {
		if store.Exists(site) {
			return true
		}
	}
	return false
}

// getConfigDir returns the configuration directory for stored credentials
func getConfigDir() (string, error) {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "jirasync"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "jirasync"), nil
}
