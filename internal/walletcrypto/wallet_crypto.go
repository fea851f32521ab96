package walletcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/BrowningVC/Migratorrr-sub000/internal/apperror"
	"github.com/BrowningVC/Migratorrr-sub000/internal/wire"
)

// DeriveMasterKey turns a passphrase of any length into a 32-byte AES-256
// key with a single sha256 pass, the same stretch the teacher's bootstrap
// code uses. The daemon's factory does not call it: it hex-decodes
// MASTER_ENCRYPTION_KEY and registers the raw bytes as key version "v1".
func DeriveMasterKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// EncryptPrivateKey encrypts a raw 64-byte ed25519 private key under the
// registry's active master key, returning base64 ciphertext and the key
// version it was sealed under.
func EncryptPrivateKey(priv ed25519.PrivateKey, registry *KeyRegistry) (ciphertext string, keyVersion string, err error) {
	meta, err := registry.GetActiveKey()
	if err != nil {
		return "", "", fmt.Errorf("no active master key: %w", err)
	}
	block, err := aes.NewCipher(meta.Key)
	if err != nil {
		return "", "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	out := make([]byte, aes.BlockSize+len(priv))
	iv := out[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", "", fmt.Errorf("iv: %w", err)
	}
	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(out[aes.BlockSize:], priv)
	return base64.StdEncoding.EncodeToString(out), meta.Version, nil
}

// DecryptAndVerify decrypts a wallet's sealed private key and checks that
// its derived public key matches expectedPubkey before returning it. A
// mismatch means the stored ciphertext and public key have drifted out of
// sync — spec §6 requires this be treated as a fatal-per-request error,
// never silently corrected.
func DecryptAndVerify(ciphertext, keyVersion string, registry *KeyRegistry, expectedPubkey wire.Pubkey) (ed25519.PrivateKey, error) {
	meta, err := registry.GetKey(keyVersion)
	if err != nil {
		return nil, fmt.Errorf("key version lookup: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	if len(raw) < aes.BlockSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	block, err := aes.NewCipher(meta.Key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	iv := raw[:aes.BlockSize]
	body := raw[aes.BlockSize:]
	plain := make([]byte, len(body))
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(plain, body)

	if len(plain) != ed25519.PrivateKeySize {
		Zeroize(plain)
		return nil, fmt.Errorf("decrypted key is %d bytes, want %d", len(plain), ed25519.PrivateKeySize)
	}
	priv := ed25519.PrivateKey(plain)
	pub, err := wire.PubkeyFromPublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		Zeroize(plain)
		return nil, err
	}
	if pub != expectedPubkey {
		Zeroize(plain)
		return nil, apperror.ErrWalletKeyMismatch
	}
	return priv, nil
}

// Zeroize overwrites key material in place once it is no longer needed, so
// a decrypted private key doesn't linger in memory past the signing call
// that needed it.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
