package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment
// variables, for CI and other non-interactive use
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(site string) (*Credentials, error) {
	baseURL := os.Getenv("JIRASYNC_BASE_URL")
	email := os.Getenv("JIRASYNC_EMAIL")
	apiToken := os.Getenv("JIRASYNC_API_TOKEN")

	if baseURL == "" || email == "" || apiToken == "" {
		return nil, ErrCredentialsNotFound
	}

	if site == "" {
		site = DefaultSite
	}

	return &Credentials{
		Site:         site,
		BaseURL:      baseURL,
		Email:        email,
		APIToken:     apiToken,
		LastModified: time.Now(),
	}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(site string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(site string) bool {
	return os.Getenv("JIRASYNC_BASE_URL") != "" &&
		os.Getenv("JIRASYNC_EMAIL") != "" &&
		os.Getenv("JIRASYNC_API_TOKEN") != ""
}
