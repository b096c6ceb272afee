// Package secrets stores the default oracle API key in the platform
// keyring, falling back to a restricted-permission file when no keyring is
// available (headless servers).
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	// ServiceName identifies this application in the platform keyring.
	ServiceName = "socanalyzer"

	// oracleKeyName is the keyring entry holding the default oracle
	// credential.
	oracleKeyName = "oracle_api_key"

	fallbackFileName = "oracle_api_key"
)

// ErrNotFound is returned when no credential has been stored.
var ErrNotFound = errors.New("no stored credential")

// Store persists credentials for the analyzer.
type Store interface {
	// SetOracleKey stores the default oracle API key.
	SetOracleKey(key string) error

	// OracleKey loads the default oracle API key.
	OracleKey() (string, error)

	// DeleteOracleKey removes the stored key.
	DeleteOracleKey() error
}

// NewStore returns a keyring-backed store when the platform keyring is
// usable, otherwise a file-backed store rooted at dataDir.
func NewStore(dataDir string) Store {
	if keyringAvailable() {
		return &keyringStore{}
	}
	return &fileStore{path: filepath.Join(dataDir, fallbackFileName)}
}

// keyringAvailable probes the platform keyring with a throwaway entry.
func keyringAvailable() bool {
	probe := fmt.Sprintf("probe-%d", time.Now().UnixNano())
	if err := keyring.Set(ServiceName, "availability_probe", probe); err != nil {
		return false
	}
	value, err := keyring.Get(ServiceName, "availability_probe")
	_ = keyring.Delete(ServiceName, "availability_probe")
	return err == nil && value == probe
}

type keyringStore struct{}

func (s *keyringStore) SetOracleKey(key string) error {
	if err := keyring.Set(ServiceName, oracleKeyName, key); err != nil {
		return fmt.Errorf("failed to store oracle key in keyring: %w", err)
	}
	return nil
}

func (s *keyringStore) OracleKey() (string, error) {
	value, err := keyring.Get(ServiceName, oracleKeyName)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read oracle key from keyring: %w", err)
	}
	return value, nil
}

func (s *keyringStore) DeleteOracleKey() error {
	if err := keyring.Delete(ServiceName, oracleKeyName); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete oracle key from keyring: %w", err)
	}
	return nil
}

// fileStore keeps the key in a 0600 file. Weaker than the keyring but
// workable on headless deployments.
type fileStore struct {
	path string
}

func (s *fileStore) SetOracleKey(key string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create secrets directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(key), 0600); err != nil {
		return fmt.Errorf("failed to write oracle key file: %w", err)
	}
	return nil
}

func (s *fileStore) OracleKey() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read oracle key file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *fileStore) DeleteOracleKey() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete oracle key file: %w", err)
	}
	return nil
}
