// ABOUTME: Installation-wide shared secret loaded from a file
// ABOUTME: Re-read on every call so a rotated secret applies to the next request

package logon

import (
	"bytes"
	"os"
)

// SecretStore yields the shared secret mixed into every signature.
type SecretStore interface {
	Load() ([]byte, error)
}

// FileSecretStore reads the shared secret from Path. Nothing is cached.
type FileSecretStore struct {
	Path string
}

// Exists reports whether the secret file is present.
func (s FileSecretStore) Exists() bool {
	return fileExists(s.Path)
}

// Load returns the file contents with surrounding whitespace trimmed.
func (s FileSecretStore) Load() ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &ConfigurationError{Op: "reading shared secret", Path: s.Path, Err: err}
	}
	return bytes.TrimSpace(data), nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
