package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"sml/internal/domain"
)

// Chain-step constants, per the Signal double-ratchet recommendation of
// using distinct single-byte HMAC inputs for the next chain key and the
// message key.
var (
	chainKeyInput   = []byte{0x02}
	messageKeyInput = []byte{0x01}
)

// HKDF expands ikm under the given domain-separation label into n bytes.
func HKDF(ikm, salt []byte, label string, n int) []byte {
	r := hkdf.New(sha256.New, ikm, salt, []byte(label))
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		// Only reachable for absurd output lengths.
		panic(fmt.Sprintf("hkdf expand: %v", err))
	}
	return out
}

// RootStep advances a root key with fresh DH output, producing the next root
// key and a new chain key.
func RootStep(rk, dhOut []byte) (newRK, ck []byte) {
	okm := HKDF(dhOut, rk, "sml/v1 root", 2*KeyBytes)
	return okm[:KeyBytes], okm[KeyBytes:]
}

// ChainStep performs one symmetric ratchet step: chain key -> next chain key
// and a one-use message key. The input chain key is not consumed.
func ChainStep(ck []byte) (next, mk []byte) {
	return hmacSum(ck, chainKeyInput), hmacSum(ck, messageKeyInput)
}

// ValidateKey checks that a symmetric key is exactly KeyBytes long.
func ValidateKey(k []byte) error {
	if len(k) != KeyBytes {
		return fmt.Errorf("%w: key must be %d bytes, got %d", domain.ErrInvalidInput, KeyBytes, len(k))
	}
	return nil
}

func hmacSum(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
