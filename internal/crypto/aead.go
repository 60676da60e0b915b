package crypto

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"sml/internal/domain"
)

// NonceBytes is the ChaCha20-Poly1305 nonce size.
const NonceBytes = chacha20poly1305.NonceSize

// TagBytes is the ChaCha20-Poly1305 authentication tag size.
const TagBytes = chacha20poly1305.Overhead

// Seal encrypts plaintext under a one-use message key, binding ad. The nonce
// is derived from the message counter; keys are never reused across counters.
func Seal(key []byte, counter uint32, plaintext, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	return aead.Seal(nil, counterNonce(counter), plaintext, ad), nil
}

// Open decrypts ciphertext produced by Seal with the same key, counter, and ad.
// A tag mismatch is reported as ErrAuthenticationFailed.
func Open(key []byte, counter uint32, ciphertext, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	pt, err := aead.Open(nil, counterNonce(counter), ciphertext, ad)
	if err != nil {
		return nil, domain.ErrAuthenticationFailed
	}
	return pt, nil
}

func counterNonce(counter uint32) []byte {
	nonce := make([]byte, NonceBytes)
	binary.BigEndian.PutUint32(nonce[NonceBytes-4:], counter)
	return nonce
}
