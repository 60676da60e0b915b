package wire

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"sml/internal/domain"
)

// EncodeBundle serializes a pre-key bundle: fixed-size key fields, the
// signed pre-key signature, a one-byte one-time pre-key presence flag, and
// the 32-bit pre-key ids.
func EncodeBundle(b domain.PreKeyBundle) ([]byte, error) {
	if len(b.SignedPreKeySignature) != ed25519.SignatureSize {
		return nil, fmt.Errorf("%w: signature must be %d bytes", domain.ErrInvalidInput, ed25519.SignatureSize)
	}
	out := []byte{Version}
	out = append(out, b.IdentityKey[:]...)
	out = append(out, b.SigningKey[:]...)
	out = binary.BigEndian.AppendUint32(out, b.SignedPreKeyID)
	out = append(out, b.SignedPreKey[:]...)
	out = append(out, b.SignedPreKeySignature...)
	if b.OneTimePreKey != nil {
		out = append(out, 1)
		out = binary.BigEndian.AppendUint32(out, b.OneTimePreKey.ID)
		out = append(out, b.OneTimePreKey.Pub[:]...)
	} else {
		out = append(out, 0)
	}
	return out, nil
}

// DecodeBundle parses a pre-key bundle produced by EncodeBundle.
func DecodeBundle(data []byte) (domain.PreKeyBundle, error) {
	var b domain.PreKeyBundle
	r := reader{buf: data}
	if err := r.expectByte(Version, "version"); err != nil {
		return b, err
	}
	if err := r.key32(b.IdentityKey[:], "identity key"); err != nil {
		return b, err
	}
	if err := r.key32(b.SigningKey[:], "signing key"); err != nil {
		return b, err
	}
	var err error
	if b.SignedPreKeyID, err = r.uint32("signed pre-key id"); err != nil {
		return b, err
	}
	if err := r.key32(b.SignedPreKey[:], "signed pre-key"); err != nil {
		return b, err
	}
	if r.off+ed25519.SignatureSize > len(data) {
		return b, r.short("signed pre-key signature")
	}
	b.SignedPreKeySignature = make([]byte, ed25519.SignatureSize)
	copy(b.SignedPreKeySignature, data[r.off:])
	r.off += ed25519.SignatureSize

	flag, err := r.byte("one-time pre-key flag")
	if err != nil {
		return b, err
	}
	switch flag {
	case 0:
	case 1:
		opk := &domain.OneTimePreKeyPublic{}
		if opk.ID, err = r.uint32("one-time pre-key id"); err != nil {
			return b, err
		}
		if err := r.key32(opk.Pub[:], "one-time pre-key"); err != nil {
			return b, err
		}
		b.OneTimePreKey = opk
	default:
		return b, fmt.Errorf("%w: bad one-time pre-key flag %#x", domain.ErrInvalidInput, flag)
	}
	if r.off != len(data) {
		return b, fmt.Errorf("%w: %d trailing bytes", domain.ErrInvalidInput, len(data)-r.off)
	}
	return b, nil
}
