package crypto

import (
	"sml/internal/domain"
	"sml/internal/util/memzero"
)

// SealTo encrypts a small secret to a recipient's X25519 public key using an
// ephemeral DH exchange. Both public keys are bound as associated data.
func SealTo(pub domain.X25519Public, secret []byte) (domain.X25519Public, []byte, error) {
	ephPriv, ephPub, err := GenerateX25519()
	if err != nil {
		return domain.X25519Public{}, nil, err
	}
	defer memzero.Zero(ephPriv[:])

	shared, err := DH(ephPriv, pub)
	if err != nil {
		return domain.X25519Public{}, nil, err
	}
	key := HKDF(shared[:], nil, "sml/v1 seal", KeyBytes)
	memzero.Zero(shared[:])
	defer memzero.Zero(key)

	box, err := Seal(key, 0, secret, sealAD(ephPub, pub))
	if err != nil {
		return domain.X25519Public{}, nil, err
	}
	return ephPub, box, nil
}

// OpenFrom reverses SealTo with the recipient's private key.
func OpenFrom(priv domain.X25519Private, ephPub domain.X25519Public, box []byte) ([]byte, error) {
	pub, err := PublicKey(priv)
	if err != nil {
		return nil, err
	}
	shared, err := DH(priv, ephPub)
	if err != nil {
		return nil, err
	}
	key := HKDF(shared[:], nil, "sml/v1 seal", KeyBytes)
	memzero.Zero(shared[:])
	defer memzero.Zero(key)

	return Open(key, 0, box, sealAD(ephPub, pub))
}

func sealAD(ephPub, pub domain.X25519Public) []byte {
	ad := make([]byte, 0, 2*KeyBytes)
	ad = append(ad, ephPub[:]...)
	ad = append(ad, pub[:]...)
	return ad
}
