package credentials

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

// Credentials are the tracker login stored encrypted on disk by the auth
// command and loaded when the environment carries no API key.
type Credentials struct {
	URL  string `json:"url"`
	User string `json:"user"`
	Key  string `json:"key"`
}

// Save seals the credentials with secretbox and writes them to path. The
// sealing key lives in a 0600 file beside the credentials, created on first
// save.
func Save(path string, creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	key, err := loadOrCreateKey(keyPath(path))
	if err != nil {
		return err
	}

	payload, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], payload, &nonce, &key)
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return nil
}

// Load opens the sealed credentials at path using the key file beside it.
func Load(path string) (Credentials, error) {
	key, err := readKey(keyPath(path))
	if err != nil {
		return Credentials{}, err
	}

	sealed, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials file: %w", err)
	}
	if len(sealed) < nonceSize {
		return Credentials{}, fmt.Errorf("credentials file is truncated")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	payload, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &key)
	if !ok {
		return Credentials{}, fmt.Errorf("credentials file failed to decrypt")
	}

	var creds Credentials
	if err := json.Unmarshal(payload, &creds); err != nil {
		return Credentials{}, fmt.Errorf("unmarshal credentials: %w", err)
	}
	return creds, nil
}

func keyPath(path string) string {
	return path + ".key"
}

func loadOrCreateKey(path string) ([keySize]byte, error) {
	if _, err := os.Stat(path); err == nil {
		return readKey(path)
	}

	var key [keySize]byte
	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("generate key: %w", err)
	}
	if err := os.WriteFile(path, key[:], 0o600); err != nil {
		return key, fmt.Errorf("write key file: %w", err)
	}
	return key, nil
}

func readKey(path string) ([keySize]byte, error) {
	var key [keySize]byte
	raw, err := os.ReadFile(path)
	if err != nil {
		return key, fmt.Errorf("read key file: %w", err)
	}
	if len(raw) != keySize {
		return key, fmt.Errorf("key file must hold %d bytes, has %d", keySize, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}
