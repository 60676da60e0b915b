package x3dh

import (
	"fmt"

	"sml/internal/crypto"
	"sml/internal/domain"
	"sml/internal/util/memzero"
)

const rootKeyLabel = "sml/v1 x3dh"

// InitiatorRoot verifies the peer bundle, runs the initiator side of X3DH,
// and returns the 32-byte root key together with the handshake block the
// first envelope must carry.
func InitiatorRoot(id domain.Identity, bundle domain.PreKeyBundle) ([]byte, domain.PreKeyMessage, error) {
	if !crypto.VerifyEd25519(bundle.SigningKey, bundle.SignedPreKey.Slice(), bundle.SignedPreKeySignature) {
		return nil, domain.PreKeyMessage{}, domain.ErrInvalidSignature
	}

	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, domain.PreKeyMessage{}, err
	}
	defer memzero.Zero(ephPriv[:])

	var opk *domain.X25519Public
	if bundle.OneTimePreKey != nil {
		opk = &bundle.OneTimePreKey.Pub
	}
	// Transcript order: DH(IKa, SPKb), DH(EKa, IKb), DH(EKa, SPKb), then
	// DH(EKa, OPKb) when the bundle carries a one-time pre-key.
	root, err := deriveRoot(
		dhTerm{id.XPriv, bundle.SignedPreKey},
		dhTerm{ephPriv, bundle.IdentityKey},
		dhTerm{ephPriv, bundle.SignedPreKey},
		opk, ephPriv,
	)
	if err != nil {
		return nil, domain.PreKeyMessage{}, err
	}

	pm := domain.PreKeyMessage{
		InitiatorIdentityKey: id.XPub,
		EphemeralKey:         ephPub,
		SignedPreKeyID:       bundle.SignedPreKeyID,
	}
	if bundle.OneTimePreKey != nil {
		pm.HasOneTimePreKey = true
		pm.OneTimePreKeyID = bundle.OneTimePreKey.ID
	}
	return root, pm, nil
}

// ResponderRoot runs the responder side of X3DH against the handshake block
// of an inbound first envelope, using the signed pre-key private it
// references and, when the block names one, the matching one-time pre-key
// private.
func ResponderRoot(id domain.Identity, spkPriv domain.X25519Private, opkPriv *domain.X25519Private, pm domain.PreKeyMessage) ([]byte, error) {
	if pm.HasOneTimePreKey && opkPriv == nil {
		return nil, domain.ErrPreKeyNotFound
	}
	if !pm.HasOneTimePreKey && opkPriv != nil {
		return nil, fmt.Errorf("%w: unreferenced one-time pre-key supplied", domain.ErrInvalidInput)
	}

	// The responder's terms mirror the initiator's with the private and
	// public roles swapped, so the same transcript order applies.
	var (
		opk       *domain.X25519Public
		opkSecret domain.X25519Private
	)
	if opkPriv != nil {
		opk = &pm.EphemeralKey
		opkSecret = *opkPriv
	}
	return deriveRoot(
		dhTerm{spkPriv, pm.InitiatorIdentityKey},
		dhTerm{id.XPriv, pm.EphemeralKey},
		dhTerm{spkPriv, pm.EphemeralKey},
		opk, opkSecret,
	)
}

type dhTerm struct {
	priv domain.X25519Private
	pub  domain.X25519Public
}

// deriveRoot concatenates the three (or four) DH outputs in transcript order
// and expands them into the root key. The transcript is wiped before return.
func deriveRoot(t1, t2, t3 dhTerm, optPub *domain.X25519Public, optPriv domain.X25519Private) ([]byte, error) {
	transcript := make([]byte, 0, 4*crypto.KeyBytes)
	defer func() { memzero.Zero(transcript) }()

	for _, t := range []dhTerm{t1, t2, t3} {
		out, err := crypto.DH(t.priv, t.pub)
		if err != nil {
			return nil, err
		}
		transcript = append(transcript, out[:]...)
		memzero.Zero(out[:])
	}
	if optPub != nil {
		out, err := crypto.DH(optPriv, *optPub)
		if err != nil {
			return nil, err
		}
		transcript = append(transcript, out[:]...)
		memzero.Zero(out[:])
	}
	return crypto.HKDF(transcript, nil, rootKeyLabel, crypto.KeyBytes), nil
}
