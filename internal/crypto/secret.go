package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"sml/internal/domain"
	"sml/internal/util/memzero"
)

// SaltBytes is the size of the KEK salt used by snapshot encryption.
const SaltBytes = 16

// DeriveKEK derives a key-encryption key from a passphrase and salt using Argon2id.
func DeriveKEK(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1<<16, 8, 1, KeyBytes)
}

// EncryptSecret encrypts plaintext with a KEK derived from the passphrase and salt.
func EncryptSecret(passphrase string, plaintext, salt []byte) (nonce, ciphertext []byte, err error) {
	if len(salt) != SaltBytes {
		return nil, nil, fmt.Errorf("%w: salt must be %d bytes", domain.ErrInvalidInput, SaltBytes)
	}
	kek := DeriveKEK(passphrase, salt)
	defer memzero.Zero(kek)

	aead, err := chacha20poly1305.New(kek)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	nonce = make([]byte, NonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	return nonce, aead.Seal(nil, nonce, plaintext, nil), nil
}

// DecryptSecret decrypts a ciphertext with a KEK derived from the passphrase and salt.
func DecryptSecret(passphrase string, salt, nonce, ciphertext []byte) ([]byte, error) {
	if len(salt) != SaltBytes {
		return nil, fmt.Errorf("%w: salt must be %d bytes", domain.ErrInvalidInput, SaltBytes)
	}
	kek := DeriveKEK(passphrase, salt)
	defer memzero.Zero(kek)

	aead, err := chacha20poly1305.New(kek)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	pt, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, domain.ErrAuthenticationFailed
	}
	return pt, nil
}
