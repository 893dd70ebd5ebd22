package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCredentialManager(t *testing.T) {
	// Use the mock manager so tests never touch the keychain
	manager, mockStore := NewMockManager()

	creds := &Credentials{
		Site:         "work",
		BaseURL:      "https://work.atlassian.net",
		Email:        "user@example.com",
		APIToken:     "token123",
		LastModified: time.Now(),
	}

	if err := manager.Store(creds); err != nil {
		t.Errorf("Failed to store credentials: %v", err)
	}

	retrieved, err := manager.Retrieve("work")
	if err != nil {
		t.Fatalf("Failed to retrieve credentials: %v", err)
	}
	if retrieved.BaseURL != creds.BaseURL {
		t.Errorf("BaseURL mismatch: got %s, want %s", retrieved.BaseURL, creds.BaseURL)
	}
	if retrieved.Email != creds.Email || retrieved.APIToken != creds.APIToken {
		t.Error("Identity fields mismatch after round trip")
	}

	if !manager.Exists("work") {
		t.Error("Exists should report stored site")
	}
	if manager.Exists("nope") {
		t.Error("Exists should not report unknown site")
	}

	if err := manager.Delete("work"); err != nil {
		t.Errorf("Failed to delete credentials: %v", err)
	}
	if _, err := manager.Retrieve("work"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound after delete, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 stored credentials after delete, got %d", mockStore.Count())
	}
}

func TestManagerStoreFallsBack(t *testing.T) {
	failing := NewMockStore()
	failing.StoreErr = errors.New("keychain locked")
	backup := NewMockStore()

	manager := &Manager{stores: []CredentialStore{failing, backup}}

	creds := &Credentials{Site: "default", BaseURL: "https://x.atlassian.net", Email: "a@b.c", APIToken: "t"}
	if err := manager.Store(creds); err != nil {
		t.Fatalf("Store should fall back to the next store: %v", err)
	}

	if failing.Count() != 0 {
		t.Error("Failing store should hold nothing")
	}
	if backup.Count() != 1 {
		t.Error("Backup store should hold the credentials")
	}

	// Retrieve also walks the chain
	if _, err := manager.Retrieve("default"); err != nil {
		t.Errorf("Retrieve should find credentials in backup store: %v", err)
	}
}

func TestRetrieveDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv("JIRASYNC_BASE_URL", "https://env.atlassian.net")
	t.Setenv("JIRASYNC_EMAIL", "env@example.com")
	t.Setenv("JIRASYNC_API_TOKEN", "env-token")

	stored := NewMockStore()
	stored.Store(&Credentials{
		Site: DefaultSite, BaseURL: "https://stored.atlassian.net",
		Email: "stored@example.com", APIToken: "stored-token",
	})

	manager := &Manager{stores: []CredentialStore{stored, NewEnvironmentStore()}}

	creds, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatalf("RetrieveDefault failed: %v", err)
	}
	if creds.BaseURL != "https://env.atlassian.net" {
		t.Errorf("Environment credentials should win for non-interactive use, got %s", creds.BaseURL)
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Run("Complete", func(t *testing.T) {
		t.Setenv("JIRASYNC_BASE_URL", "https://env.atlassian.net")
		t.Setenv("JIRASYNC_EMAIL", "env@example.com")
		t.Setenv("JIRASYNC_API_TOKEN", "env-token")

		store := NewEnvironmentStore()
		creds, err := store.Retrieve("")
		if err != nil {
			t.Fatalf("Retrieve failed: %v", err)
		}
		if creds.Site != DefaultSite {
			t.Errorf("Expected default site, got %s", creds.Site)
		}
		if creds.APIToken != "env-token" {
			t.Errorf("Unexpected token: %s", creds.APIToken)
		}
		if !store.Exists("anything") {
			t.Error("Exists should be true with complete environment")
		}
	})

	t.Run("Incomplete", func(t *testing.T) {
		t.Setenv("JIRASYNC_BASE_URL", "https://env.atlassian.net")
		t.Setenv("JIRASYNC_EMAIL", "")
		t.Setenv("JIRASYNC_API_TOKEN", "")

		store := NewEnvironmentStore()
		if _, err := store.Retrieve(""); !errors.Is(err, ErrCredentialsNotFound) {
			t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
		}
	})

	t.Run("ReadOnly", func(t *testing.T) {
		store := NewEnvironmentStore()
		if err := store.Store(&Credentials{Site: "x"}); !errors.Is(err, ErrStoreUnavailable) {
			t.Errorf("Store should be unsupported, got %v", err)
		}
		if err := store.Delete("x"); !errors.Is(err, ErrStoreUnavailable) {
			t.Errorf("Delete should be unsupported, got %v", err)
		}
	})
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv("JIRASYNC_CREDENTIALS_KEY", "test_passphrase_123")

	path := filepath.Join(t.TempDir(), "credentials.enc")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	creds := &Credentials{
		Site:     "work",
		BaseURL:  "https://work.atlassian.net",
		Email:    "user@example.com",
		APIToken: "secret-token",
	}

	if err := store.Store(creds); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}

	retrieved, err := store.Retrieve("work")
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if retrieved.APIToken != creds.APIToken {
		t.Error("Token mismatch after encryption round trip")
	}

	// A second site coexists in the same file
	second := &Credentials{Site: "personal", BaseURL: "https://me.atlassian.net", Email: "me@example.com", APIToken: "t2"}
	if err := store.Store(second); err != nil {
		t.Fatalf("Failed to store second site: %v", err)
	}
	if !store.Exists("work") || !store.Exists("personal") {
		t.Error("Both sites should exist")
	}

	if err := store.Delete("work"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if store.Exists("work") {
		t.Error("Deleted site should not exist")
	}
	if !store.Exists("personal") {
		t.Error("Remaining site should survive deletion of another")
	}
}

func TestEncryptedFileStoreTokenNotPlaintext(t *testing.T) {
	t.Setenv("JIRASYNC_CREDENTIALS_KEY", "test_passphrase_123")

	path := filepath.Join(t.TempDir(), "credentials.enc")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	if err := store.Store(&Credentials{Site: "work", BaseURL: "https://w.atlassian.net", Email: "e@x.c", APIToken: "SUPERSECRET"}); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if strings.Contains(string(content), "SUPERSECRET") {
		t.Error("API token must not appear in plaintext on disk")
	}
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv("JIRASYNC_CREDENTIALS_KEY", "first-passphrase")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}
	if err := store.Store(&Credentials{Site: "work", BaseURL: "https://w.atlassian.net", Email: "e@x.c", APIToken: "t"}); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}

	t.Setenv("JIRASYNC_CREDENTIALS_KEY", "other-passphrase")
	other, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create second store: %v", err)
	}
	if _, err := other.Retrieve("work"); err == nil {
		t.Error("Retrieval with the wrong passphrase should fail")
	}
}

func TestMockStoreValidation(t *testing.T) {
	store := NewMockStore()

	if err := store.Store(nil); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for nil, got %v", err)
	}
	if err := store.Store(&Credentials{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for empty site, got %v", err)
	}
	if err := store.Delete("missing"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}
