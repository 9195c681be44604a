package secretstore

import (
	"path/filepath"
	"testing"

	"github.com/aquilaworks/convocations/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := make([]byte, keySize)
	for i := range key {
		key[i] = byte(i)
	}
	nonce, ciphertext, err := encrypt(key, []byte("sk-or-v1-secret"))
	require.NoError(t, err)
	plain, err := decrypt(key, nonce, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "sk-or-v1-secret", string(plain))
}

func TestDecryptFailsOnTamperedCiphertext(t *testing.T) {
	key := make([]byte, keySize)
	nonce, ciphertext, err := encrypt(key, []byte("hunter2"))
	require.NoError(t, err)
	ciphertext[0] ^= 0xff
	_, err = decrypt(key, nonce, ciphertext)
	assert.Error(t, err)
}

func TestLoadOrCreateMasterKeyPersistsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	store := Store{MasterKeyPath: filepath.Join(dir, "secret.key")}

	key1, err := store.loadOrCreateMasterKey()
	require.NoError(t, err)
	assert.Len(t, key1, keySize)

	key2, err := store.loadOrCreateMasterKey()
	require.NoError(t, err)
	assert.Equal(t, key1, key2)
}

func TestSetGetLocalEncryptedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := Store{MasterKeyPath: filepath.Join(dir, "secret.key")}

	handle, err := store.Set("openrouter", "sk-or-v1-test")
	require.NoError(t, err)
	require.True(t, handle.IsSet())

	got, err := store.Get(handle)
	require.NoError(t, err)
	assert.Equal(t, "sk-or-v1-test", got)
}

func TestGetUnsetHandleFails(t *testing.T) {
	store := Store{}
	_, err := store.Get(model.SecretHandle{})
	assert.Error(t, err)
}
