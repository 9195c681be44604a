// Package secretstore resolves SecretHandles to plaintext (spec.md §4.A).
// Two backends are supported: the OS keyring (preferred) and a
// local-encrypted fallback using a per-device master key file.
package secretstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/aquilaworks/convocations/internal/model"
	"github.com/aquilaworks/convocations/internal/rerr"
	"github.com/google/renameio/v2"
	"github.com/zalando/go-keyring"
)

const (
	keySize   = 32 // AES-256
	nonceSize = 12 // GCM standard nonce
	keyringService = "convocations"
)

// Store resolves and manages SecretHandles. A zero Store uses the OS
// keyring when available and falls back to the local-encrypted backend
// rooted at MasterKeyPath.
type Store struct {
	// MasterKeyPath is the path to the per-device master key file
	// (secret.key), created on first local-encrypted use.
	MasterKeyPath string
}

// Set stores plaintext under account and returns an opaque handle. It tries
// the keyring backend first; if the keyring is unavailable on this
// platform, it falls back to the local-encrypted backend (spec.md §4.A).
func (s Store) Set(account, plaintext string) (model.SecretHandle, error) {
	if err := keyring.Set(keyringService, account, plaintext); err == nil {
		return model.SecretHandle{Backend: model.SecretBackendKeyring, Account: account}, nil
	}

	key, err := s.loadOrCreateMasterKey()
	if err != nil {
		return model.SecretHandle{}, rerr.Wrap(rerr.KindSecret, "load master key", err)
	}
	nonce, ciphertext, err := encrypt(key, []byte(plaintext))
	if err != nil {
		return model.SecretHandle{}, rerr.Wrap(rerr.KindSecret, "encrypt secret", err)
	}
	return model.SecretHandle{
		Backend:    model.SecretBackendLocalEncrypted,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// Get resolves handle to its plaintext value. Plaintext is returned only to
// the caller and must never be logged.
func (s Store) Get(handle model.SecretHandle) (string, error) {
	switch handle.Backend {
	case model.SecretBackendKeyring:
		v, err := keyring.Get(keyringService, handle.Account)
		if err != nil {
			return "", rerr.Wrap(rerr.KindSecret, "keyring lookup failed", err)
		}
		return v, nil
	case model.SecretBackendLocalEncrypted:
		key, err := s.loadOrCreateMasterKey()
		if err != nil {
			return "", rerr.Wrap(rerr.KindSecret, "load master key", err)
		}
		plaintext, err := decrypt(key, handle.Nonce, handle.Ciphertext)
		if err != nil {
			return "", rerr.Wrap(rerr.KindSecret, "decryption failed", err)
		}
		return string(plaintext), nil
	default:
		return "", rerr.New(rerr.KindSecret, "no credential configured")
	}
}

// Clear removes the credential referenced by handle from its backend.
func (s Store) Clear(handle model.SecretHandle) error {
	switch handle.Backend {
	case model.SecretBackendKeyring:
		if err := keyring.Delete(keyringService, handle.Account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return rerr.Wrap(rerr.KindSecret, "keyring delete failed", err)
		}
		return nil
	case model.SecretBackendLocalEncrypted:
		// Nothing further to do: the ciphertext lives in config, which the
		// caller is responsible for persisting without this handle.
		return nil
	default:
		return nil
	}
}

// loadOrCreateMasterKey reads the 32-byte master key from MasterKeyPath,
// generating and atomically writing a new one with owner-only permissions
// on first use.
func (s Store) loadOrCreateMasterKey() ([]byte, error) {
	data, err := os.ReadFile(s.MasterKeyPath)
	if err == nil {
		if len(data) != keySize {
			return nil, rerr.New(rerr.KindSecret, "master key file is corrupt")
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, rerr.IO(s.MasterKeyPath, err)
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, rerr.Wrap(rerr.KindSecret, "generate master key", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.MasterKeyPath), 0o700); err != nil {
		return nil, rerr.IO(s.MasterKeyPath, err)
	}
	if err := renameio.WriteFile(s.MasterKeyPath, key, 0o600); err != nil {
		return nil, rerr.IO(s.MasterKeyPath, err)
	}
	return key, nil
}

// encrypt produces a fresh random nonce and seals plaintext with
// AES-256-GCM under key, returning the nonce and ciphertext separately (the
// SecretHandle's local-encrypted variant stores them as distinct fields).
func encrypt(key, plaintext []byte) (nonce, ciphertext []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}
	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return nonce, ciphertext, nil
}

func decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}
