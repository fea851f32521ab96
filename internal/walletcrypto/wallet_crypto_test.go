package walletcrypto

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrowningVC/Migratorrr-sub000/internal/apperror"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	registry := NewKeyRegistry()
	require.NoError(t, registry.AddKey("v1", DeriveMasterKey("test-master-key"), true))

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	expected, err := wire.PubkeyFromPublicKey(pub)
	require.NoError(t, err)

	ciphertext, version, err := EncryptPrivateKey(priv, registry)
	require.NoError(t, err)
	assert.Equal(t, "v1", version)
	assert.NotEmpty(t, ciphertext)

	decrypted, err := DecryptAndVerify(ciphertext, version, registry, expected)
	require.NoError(t, err)
	assert.Equal(t, priv, decrypted)
}

func TestDecryptAndVerify_RejectsKeyMismatch(t *testing.T) {
	registry := NewKeyRegistry()
	require.NoError(t, registry.AddKey("v1", DeriveMasterKey("test-master-key"), true))

	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	wrongPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	wrongExpected, err := wire.PubkeyFromPublicKey(wrongPub)
	require.NoError(t, err)

	ciphertext, version, err := EncryptPrivateKey(priv, registry)
	require.NoError(t, err)

	_, err = DecryptAndVerify(ciphertext, version, registry, wrongExpected)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrWalletKeyMismatch)
}

func TestDecryptAndVerify_UsesRetiredKeyVersionStillOnFile(t *testing.T) {
	registry := NewKeyRegistry()
	require.NoError(t, registry.AddKey("v1", DeriveMasterKey("old-key"), true))

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	expected, err := wire.PubkeyFromPublicKey(pub)
	require.NoError(t, err)

	ciphertext, version, err := EncryptPrivateKey(priv, registry)
	require.NoError(t, err)

	require.NoError(t, registry.RetireKey("v1"))
	require.NoError(t, registry.AddKey("v2", DeriveMasterKey("new-key"), true))

	decrypted, err := DecryptAndVerify(ciphertext, version, registry, expected)
	require.NoError(t, err)
	assert.Equal(t, priv, decrypted)
}

func TestZeroize_ClearsBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zeroize(b)
	for _, v := range b {
		assert.Equal(t, byte(0), v)
	}
}
