package wire

import (
	"encoding/binary"
	"fmt"

	"sml/internal/domain"
)

const (
	// Version is the wire format version emitted by this package.
	Version = 0x01

	typePairwise = 0x01
	typeGroup    = 0x02

	flagPreKey = 0x01

	keyLen = 32
)

// RatchetHeaderLen is the fixed encoded size of a ratchet header.
const RatchetHeaderLen = keyLen + 4 + 4

// PairwisePrefix builds the envelope bytes that precede the ratchet header:
// version, type, flags, and the optional X3DH handshake block.
func PairwisePrefix(pk *domain.PreKeyMessage) []byte {
	flags := byte(0)
	if pk != nil {
		flags |= flagPreKey
	}
	out := []byte{Version, typePairwise, flags}
	if pk == nil {
		return out
	}
	out = append(out, pk.InitiatorIdentityKey[:]...)
	out = append(out, pk.EphemeralKey[:]...)
	out = binary.BigEndian.AppendUint32(out, pk.SignedPreKeyID)
	if pk.HasOneTimePreKey {
		out = append(out, 1)
		out = binary.BigEndian.AppendUint32(out, pk.OneTimePreKeyID)
	} else {
		out = append(out, 0)
	}
	return out
}

// AppendRatchetHeader appends the canonical ratchet header encoding to dst.
func AppendRatchetHeader(dst []byte, h domain.RatchetHeader) []byte {
	dst = append(dst, h.RatchetKey[:]...)
	dst = binary.BigEndian.AppendUint32(dst, h.PreviousChainLength)
	dst = binary.BigEndian.AppendUint32(dst, h.MessageIndex)
	return dst
}

// EncodeEnvelope assembles a full pairwise envelope from the prefix produced
// by PairwisePrefix, the ratchet header, and the AEAD ciphertext.
func EncodeEnvelope(prefix []byte, h domain.RatchetHeader, cipher []byte) []byte {
	out := AppendRatchetHeader(prefix, h)
	out = binary.BigEndian.AppendUint32(out, uint32(len(cipher)))
	return append(out, cipher...)
}

// DecodeEnvelope parses a pairwise envelope. The returned ad slice is the
// exact byte prefix the sender bound as associated data.
func DecodeEnvelope(data []byte) (env domain.Envelope, ad []byte, err error) {
	r := reader{buf: data}
	if err := r.expectByte(Version, "version"); err != nil {
		return env, nil, err
	}
	if err := r.expectByte(typePairwise, "type"); err != nil {
		return env, nil, err
	}
	flags, err := r.byte("flags")
	if err != nil {
		return env, nil, err
	}
	if flags&^flagPreKey != 0 {
		return env, nil, fmt.Errorf("%w: unknown envelope flags %#x", domain.ErrInvalidInput, flags)
	}
	if flags&flagPreKey != 0 {
		pk := &domain.PreKeyMessage{}
		if err := r.key32(pk.InitiatorIdentityKey[:], "initiator identity key"); err != nil {
			return env, nil, err
		}
		if err := r.key32(pk.EphemeralKey[:], "ephemeral key"); err != nil {
			return env, nil, err
		}
		if pk.SignedPreKeyID, err = r.uint32("signed pre-key id"); err != nil {
			return env, nil, err
		}
		opkFlag, err := r.byte("one-time pre-key flag")
		if err != nil {
			return env, nil, err
		}
		switch opkFlag {
		case 0:
		case 1:
			pk.HasOneTimePreKey = true
			if pk.OneTimePreKeyID, err = r.uint32("one-time pre-key id"); err != nil {
				return env, nil, err
			}
		default:
			return env, nil, fmt.Errorf("%w: bad one-time pre-key flag %#x", domain.ErrInvalidInput, opkFlag)
		}
		env.PreKey = pk
	}

	if err := r.key32(env.Header.RatchetKey[:], "ratchet key"); err != nil {
		return env, nil, err
	}
	if env.Header.PreviousChainLength, err = r.uint32("previous chain length"); err != nil {
		return env, nil, err
	}
	if env.Header.MessageIndex, err = r.uint32("message index"); err != nil {
		return env, nil, err
	}

	ad = data[:r.off]

	if env.Cipher, err = r.bytes32("ciphertext"); err != nil {
		return env, nil, err
	}
	if r.off != len(data) {
		return env, nil, fmt.Errorf("%w: %d trailing bytes", domain.ErrInvalidInput, len(data)-r.off)
	}
	return env, ad, nil
}

// GroupPrefix builds the envelope bytes that precede the group header.
func GroupPrefix() []byte {
	return []byte{Version, typeGroup}
}

// AppendGroupHeader appends the canonical group header encoding to dst.
func AppendGroupHeader(dst []byte, h domain.GroupHeader) []byte {
	dst = appendString(dst, string(h.Group))
	dst = binary.BigEndian.AppendUint64(dst, h.Epoch)
	dst = appendString(dst, string(h.Sender))
	dst = binary.BigEndian.AppendUint32(dst, h.MessageIndex)
	return dst
}

// EncodeGroupEnvelope assembles a full group envelope.
func EncodeGroupEnvelope(h domain.GroupHeader, cipher []byte) []byte {
	out := AppendGroupHeader(GroupPrefix(), h)
	out = binary.BigEndian.AppendUint32(out, uint32(len(cipher)))
	return append(out, cipher...)
}

// DecodeGroupEnvelope parses a group envelope. The returned ad slice is the
// exact byte prefix the sender bound as associated data.
func DecodeGroupEnvelope(data []byte) (env domain.GroupEnvelope, ad []byte, err error) {
	r := reader{buf: data}
	if err := r.expectByte(Version, "version"); err != nil {
		return env, nil, err
	}
	if err := r.expectByte(typeGroup, "type"); err != nil {
		return env, nil, err
	}
	g, err := r.string("group id")
	if err != nil {
		return env, nil, err
	}
	env.Header.Group = domain.GroupID(g)
	if env.Header.Epoch, err = r.uint64("epoch"); err != nil {
		return env, nil, err
	}
	s, err := r.string("sender id")
	if err != nil {
		return env, nil, err
	}
	env.Header.Sender = domain.MemberID(s)
	if env.Header.MessageIndex, err = r.uint32("message index"); err != nil {
		return env, nil, err
	}

	ad = data[:r.off]

	if env.Cipher, err = r.bytes32("ciphertext"); err != nil {
		return env, nil, err
	}
	if r.off != len(data) {
		return env, nil, fmt.Errorf("%w: %d trailing bytes", domain.ErrInvalidInput, len(data)-r.off)
	}
	return env, ad, nil
}
