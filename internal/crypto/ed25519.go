package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"sml/internal/domain"
)

// NewIdentity generates a fresh X25519 key pair and an Ed25519 key pair.
func NewIdentity() (domain.Identity, error) {
	xPriv, xPub, err := GenerateX25519()
	if err != nil {
		return domain.Identity{}, err
	}

	edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}

	id := domain.Identity{XPriv: xPriv, XPub: xPub}
	copy(id.EdPriv[:], edPriv)
	copy(id.EdPub[:], edPub)
	return id, nil
}

// SignEd25519 signs msg with the identity signing key.
func SignEd25519(priv domain.Ed25519Private, msg []byte) []byte {
	return ed25519.Sign(priv.Slice(), msg)
}

// VerifyEd25519 checks sig over msg under pub.
func VerifyEd25519(pub domain.Ed25519Public, msg, sig []byte) bool {
	return ed25519.Verify(pub.Slice(), msg, sig)
}

// Fingerprint returns a SHA-256 hex digest of a public key.
func Fingerprint(pub []byte) domain.Fingerprint {
	sum := sha256.Sum256(pub)
	return domain.Fingerprint(hex.EncodeToString(sum[:]))
}
