package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/curve25519"

	"sml/internal/domain"
)

const (
	// KeyBytes is the size of every symmetric key and X25519 key.
	KeyBytes = 32
)

// RandomBytes returns n bytes from the system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	return b, nil
}

// GenerateX25519 returns a fresh clamped X25519 key pair.
func GenerateX25519() (domain.X25519Private, domain.X25519Public, error) {
	var priv domain.X25519Private
	if _, err := rand.Read(priv[:]); err != nil {
		return domain.X25519Private{}, domain.X25519Public{}, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	clamp(&priv)

	pub, err := PublicKey(priv)
	if err != nil {
		return domain.X25519Private{}, domain.X25519Public{}, err
	}
	return priv, pub, nil
}

// PrivateFromSecret turns a 32-byte derived secret into a usable X25519
// private key. The input is not consumed.
func PrivateFromSecret(secret []byte) (domain.X25519Private, error) {
	var priv domain.X25519Private
	if len(secret) != KeyBytes {
		return priv, fmt.Errorf("%w: secret must be %d bytes", domain.ErrInvalidInput, KeyBytes)
	}
	copy(priv[:], secret)
	clamp(&priv)
	return priv, nil
}

// PublicKey derives the public key for an X25519 private key.
func PublicKey(priv domain.X25519Private) (domain.X25519Public, error) {
	pubBytes, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return domain.X25519Public{}, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	var pub domain.X25519Public
	copy(pub[:], pubBytes)
	return pub, nil
}

// DH computes the X25519 shared secret between priv and pub.
func DH(priv domain.X25519Private, pub domain.X25519Public) ([32]byte, error) {
	res, err := curve25519.X25519(priv.Slice(), pub.Slice())
	var out [32]byte
	if err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	copy(out[:], res)
	return out, nil
}

func clamp(priv *domain.X25519Private) {
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64
}
