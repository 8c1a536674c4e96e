// Package auth stores the credentials used to reach agent endpoints.
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	authFileName = "auth.json"
	filePerms    = 0600 // Owner read/write only
)

// CredentialType says how a credential is presented to the endpoint.
type CredentialType string

const (
	CredentialTypeBearer CredentialType = "bearer"
	CredentialTypeHeader CredentialType = "header"
)

// Credential is the secret for one endpoint.
type Credential struct {
	Type   CredentialType `json:"type"`
	Token  string         `json:"token"`
	Header string         `json:"header,omitempty"` // For CredentialTypeHeader
}

// AuthData is the structure of auth.json
type AuthData struct {
	Version   int                   `json:"version"`
	Endpoints map[string]Credential `json:"endpoints"`
}

// Store manages credential storage
type Store struct {
	mu       sync.RWMutex
	filePath string
	data     *AuthData
}

// NewStore creates a new credential store
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store := &Store{
		filePath: filepath.Join(dataDir, authFileName),
		data: &AuthData{
			Version:   1,
			Endpoints: make(map[string]Credential),
		},
	}

	if err := store.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load auth data: %w", err)
	}

	return store, nil
}

// endpointKey normalizes an endpoint URL so trailing slashes and case in the
// scheme do not create separate entries.
func endpointKey(url string) string {
	url = strings.TrimSpace(url)
	if scheme, rest, ok := strings.Cut(url, "://"); ok {
		url = strings.ToLower(scheme) + "://" + rest
	}
	return strings.TrimRight(url, "/")
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var authData AuthData
	if err := json.Unmarshal(data, &authData); err != nil {
		return fmt.Errorf("failed to parse auth file: %w", err)
	}

	// Endpoints is never nil, even for a hand-edited file.
	if authData.Endpoints == nil {
		authData.Endpoints = make(map[string]Credential)
	}

	s.data = &authData
	return nil
}

// save writes the auth file to disk with secure permissions
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal auth data: %w", err)
	}

	// Write to temp file first, then rename (atomic)
	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, filePerms); err != nil {
		return fmt.Errorf("failed to write auth file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to save auth file: %w", err)
	}

	return nil
}

// GetCredential returns the credential for an endpoint
func (s *Store) GetCredential(url string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.data.Endpoints[endpointKey(url)]
	if !ok {
		return Credential{}, fmt.Errorf("no credential found for endpoint: %s", url)
	}

	return cred, nil
}

// SetCredential stores a credential for an endpoint
func (s *Store) SetCredential(url string, cred Credential) error {
	if endpointKey(url) == "" {
		return fmt.Errorf("endpoint url is required")
	}
	if cred.Token == "" {
		return fmt.Errorf("token is required")
	}
	if cred.Type == "" {
		cred.Type = CredentialTypeBearer
	}
	if cred.Type == CredentialTypeHeader && cred.Header == "" {
		return fmt.Errorf("header name is required for header credentials")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Endpoints[endpointKey(url)] = cred
	return s.save()
}

// RemoveCredential removes the credential for an endpoint
func (s *Store) RemoveCredential(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data.Endpoints, endpointKey(url))
	return s.save()
}

// ListEndpoints returns every endpoint with a stored credential, sorted.
func (s *Store) ListEndpoints() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	urls := make([]string, 0, len(s.data.Endpoints))
	for url := range s.data.Endpoints {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// Header returns the request headers that authenticate against url. It is
// empty when no credential is stored.
func (s *Store) Header(url string) http.Header {
	h := http.Header{}
	cred, err := s.GetCredential(url)
	if err != nil {
		return h
	}
	switch cred.Type {
	case CredentialTypeHeader:
		h.Set(cred.Header, cred.Token)
	default:
		h.Set("Authorization", "Bearer "+cred.Token)
	}
	return h
}

// Mask shortens a token for display.
func Mask(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("•", len(token))
	}
	return token[:4] + "…" + token[len(token)-4:]
}
