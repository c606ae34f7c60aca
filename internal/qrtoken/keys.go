package qrtoken

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the symmetric encryption key length in bytes.
const KeySize = chacha20poly1305.KeySize

// Key is the symmetric encryption key. Its String method never reveals the bytes.
type Key []byte

func (k Key) String() string { return "Key(redacted)" }

// GoString keeps %#v from printing the key material.
func (k Key) GoString() string { return k.String() }

// KeyStore loads the encryption key from a file or generates and persists it on first use.
// There is no rotation; the key lives for the lifetime of the process.
type KeyStore struct {
	path string
	rand io.Reader
}

// NewKeyStore returns a store backed by the file at path.
func NewKeyStore(path string) *KeyStore {
	return &KeyStore{path: path, rand: rand.Reader}
}

// Path returns the key file location.
func (s *KeyStore) Path() string {
	return s.path
}

// LoadOrCreate returns the persisted key, creating it when the file does not exist.
// Any failure is a *KeyStorageError.
func (s *KeyStore) LoadOrCreate() (Key, bool, error) {
	key, err := s.load()
	if err == nil {
		return key, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}

	key, err = s.create()
	if err != nil {
		// another process published its key first; that file is complete
		if errors.Is(err, fs.ErrExist) {
			key, err = s.load()
			return key, false, err
		}
		return nil, false, err
	}
	return key, true, nil
}

func (s *KeyStore) load() (Key, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &KeyStorageError{Op: "read", Path: s.path, Err: err}
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, &KeyStorageError{Op: "parse", Path: s.path, Err: errors.New("key file is not hex encoded")}
	}
	if len(decoded) != KeySize {
		return nil, &KeyStorageError{Op: "parse", Path: s.path, Err: fmt.Errorf("key must be %d bytes, got %d", KeySize, len(decoded))}
	}
	return Key(decoded), nil
}

func (s *KeyStore) create() (Key, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(s.rand, key); err != nil {
		return nil, &KeyStorageError{Op: "generate", Path: s.path, Err: err}
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, &KeyStorageError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	// The key is written in full to a temp file and then linked into place,
	// so readers never see a partially written key file.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".qrkey-*")
	if err != nil {
		return nil, &KeyStorageError{Op: "create", Path: s.path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return nil, &KeyStorageError{Op: "chmod", Path: tmp.Name(), Err: err}
	}
	if _, err := tmp.WriteString(hex.EncodeToString(key) + "\n"); err != nil {
		_ = tmp.Close()
		return nil, &KeyStorageError{Op: "write", Path: tmp.Name(), Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, &KeyStorageError{Op: "sync", Path: tmp.Name(), Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &KeyStorageError{Op: "close", Path: tmp.Name(), Err: err}
	}

	// link fails with ErrExist when another process published first
	if err := os.Link(tmp.Name(), s.path); err != nil {
		return nil, &KeyStorageError{Op: "create", Path: s.path, Err: err}
	}
	return Key(key), nil
}
