package ratchet

import (
	"fmt"

	"sml/internal/crypto"
	"sml/internal/domain"
	"sml/internal/util/memzero"
	"sml/internal/wire"
)

// State is one pairwise session's evolving ratchet state. Fields are
// exported for snapshot serialization only; mutate exclusively through
// Encrypt and Decrypt.
type State struct {
	RootKey []byte `json:"root_key"`

	DHPriv       domain.X25519Private `json:"dh_priv"`
	DHPub        domain.X25519Public  `json:"dh_pub"`
	RemoteKey    domain.X25519Public  `json:"remote_key"`
	HasRemoteKey bool                 `json:"has_remote_key"`

	SendChainKey []byte `json:"send_ck,omitempty"`
	RecvChainKey []byte `json:"recv_ck,omitempty"`

	SendCount uint32 `json:"ns"`
	RecvCount uint32 `json:"nr"`
	PrevCount uint32 `json:"pn"`

	MaxSkip int          `json:"max_skip"`
	Skipped *SkippedKeys `json:"-"`
}

// NewInitiator seeds a session from an X3DH root key. The peer's signed
// pre-key acts as its first ratchet key; a fresh local ratchet pair is
// generated, so the X3DH ephemeral is never reused. root is consumed.
func NewInitiator(root []byte, peerSignedPreKey domain.X25519Public, maxSkip int) (*State, error) {
	if err := crypto.ValidateKey(root); err != nil {
		return nil, err
	}
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}
	dh, err := crypto.DH(priv, peerSignedPreKey)
	if err != nil {
		return nil, err
	}
	rk, sendCK := crypto.RootStep(root, dh[:])
	memzero.Zero(dh[:])
	memzero.Zero(root)

	if maxSkip <= 0 {
		maxSkip = DefaultMaxSkipped
	}
	return &State{
		RootKey:      rk,
		DHPriv:       priv,
		DHPub:        pub,
		RemoteKey:    peerSignedPreKey,
		HasRemoteKey: true,
		SendChainKey: sendCK,
		MaxSkip:      maxSkip,
		Skipped:      NewSkippedKeys(maxSkip),
	}, nil
}

// NewResponder seeds a session from an X3DH root key on the receiving side.
// The signed pre-key pair referenced by the handshake is the initial local
// ratchet pair; the remote ratchet key arrives with the first envelope.
// root is consumed.
func NewResponder(root []byte, spkPriv domain.X25519Private, spkPub domain.X25519Public, maxSkip int) (*State, error) {
	if err := crypto.ValidateKey(root); err != nil {
		return nil, err
	}
	if maxSkip <= 0 {
		maxSkip = DefaultMaxSkipped
	}
	st := &State{
		RootKey: append([]byte(nil), root...),
		DHPriv:  spkPriv,
		DHPub:   spkPub,
		MaxSkip: maxSkip,
		Skipped: NewSkippedKeys(maxSkip),
	}
	memzero.Zero(root)
	return st, nil
}

// Encrypt performs one symmetric ratchet step and seals plaintext, binding
// extraAD followed by the canonical header bytes as associated data. When a
// receive-side DH step left the sending chain unset, the deferred send-side
// DH step runs first with a fresh ratchet key pair.
func (s *State) Encrypt(extraAD, plaintext []byte) (domain.RatchetHeader, []byte, error) {
	if s.SendChainKey == nil {
		if !s.HasRemoteKey {
			return domain.RatchetHeader{}, nil, fmt.Errorf("%w: sending chain not established", domain.ErrInternal)
		}
		newPriv, newPub, err := crypto.GenerateX25519()
		if err != nil {
			return domain.RatchetHeader{}, nil, err
		}
		dh, err := crypto.DH(newPriv, s.RemoteKey)
		if err != nil {
			return domain.RatchetHeader{}, nil, err
		}
		rk, sendCK := crypto.RootStep(s.RootKey, dh[:])
		memzero.Zero(dh[:])

		// PrevCount and SendCount were reset by the receive-side step that
		// cleared the sending chain.
		replaceKey(&s.RootKey, rk)
		memzero.Zero(s.DHPriv[:])
		s.DHPriv, s.DHPub = newPriv, newPub
		s.SendChainKey = sendCK
	}

	next, mk := crypto.ChainStep(s.SendChainKey)
	replaceKey(&s.SendChainKey, next)
	defer memzero.Zero(mk)

	header := domain.RatchetHeader{
		RatchetKey:          s.DHPub,
		PreviousChainLength: s.PrevCount,
		MessageIndex:        s.SendCount,
	}
	ct, err := crypto.Seal(mk, header.MessageIndex, plaintext, headerAD(extraAD, header))
	if err != nil {
		return domain.RatchetHeader{}, nil, err
	}
	s.SendCount++
	return header, ct, nil
}

// Decrypt opens one envelope. Out-of-order messages are served from the
// skipped-key cache; gaps cache the intervening keys; a fresh remote ratchet
// key triggers a DH step. All chain mutations are staged and committed only
// after the tag verifies, so authentication failures leave the session
// unchanged apart from cached skipped keys.
func (s *State) Decrypt(extraAD []byte, header domain.RatchetHeader, ciphertext []byte) ([]byte, error) {
	ad := headerAD(extraAD, header)

	// Out-of-order fast path: the key was derived and parked earlier.
	// Take is destructive, so a second envelope for the same slot fails.
	if mk, ok := s.Skipped.Take([32]byte(header.RatchetKey), header.MessageIndex); ok {
		pt, err := crypto.Open(mk, header.MessageIndex, ciphertext, ad)
		memzero.Zero(mk)
		return pt, err
	}

	st := s.stage()

	if !st.HasRemoteKey || header.RatchetKey != st.RemoteKey {
		// Cache the tail of the outgoing receive chain, then DH-ratchet.
		if err := st.skipTo(header.PreviousChainLength); err != nil {
			return nil, err
		}
		if err := st.dhStep(header.RatchetKey); err != nil {
			return nil, err
		}
	}

	if header.MessageIndex < st.RecvCount {
		// Same chain, counter behind, and not in the cache: the key for this
		// slot was already consumed.
		return nil, domain.ErrStaleOrReplayedMessage
	}
	if err := st.skipTo(header.MessageIndex); err != nil {
		return nil, err
	}
	if st.RecvChainKey == nil {
		// Crafted header naming our stored remote key before any chain exists.
		return nil, domain.ErrAuthenticationFailed
	}

	next, mk := crypto.ChainStep(st.RecvChainKey)
	defer memzero.Zero(mk)

	pt, err := crypto.Open(mk, header.MessageIndex, ciphertext, ad)
	if err != nil {
		// Discard the staged state; s keeps its committed chains.
		return nil, err
	}

	st.RecvChainKey = next
	st.RecvCount = header.MessageIndex + 1
	s.commit(st)
	return pt, nil
}

// Wipe erases every secret the session holds.
func (s *State) Wipe() {
	memzero.Zero(s.RootKey)
	memzero.Zero(s.SendChainKey)
	memzero.Zero(s.RecvChainKey)
	memzero.Zero(s.DHPriv[:])
	s.RootKey, s.SendChainKey, s.RecvChainKey = nil, nil, nil
	if s.Skipped != nil {
		s.Skipped.Purge()
	}
}

// stage returns a scratch copy whose key buffers are independent of s. The
// skipped-key cache is shared: entries it gains on a failed attempt are
// rederivable and safe to retain.
func (s *State) stage() *State {
	c := *s
	c.RootKey = append([]byte(nil), s.RootKey...)
	c.SendChainKey = cloneKey(s.SendChainKey)
	c.RecvChainKey = cloneKey(s.RecvChainKey)
	return &c
}

// commit adopts the staged state, wiping the buffers it replaces.
func (s *State) commit(st *State) {
	memzero.Zero(s.RootKey)
	memzero.Zero(s.SendChainKey)
	memzero.Zero(s.RecvChainKey)
	if st.DHPriv != s.DHPriv {
		memzero.Zero(s.DHPriv[:])
	}
	*s = *st
}

// dhStep advances the receiving side to the peer's new ratchet key. The
// sending chain reset is deferred to the next Encrypt.
func (s *State) dhStep(remote domain.X25519Public) error {
	dh, err := crypto.DH(s.DHPriv, remote)
	if err != nil {
		return err
	}
	rk, recvCK := crypto.RootStep(s.RootKey, dh[:])
	memzero.Zero(dh[:])

	s.PrevCount = s.SendCount
	s.SendCount, s.RecvCount = 0, 0
	replaceKey(&s.RootKey, rk)
	replaceKey(&s.RecvChainKey, recvCK)
	memzero.Zero(s.SendChainKey)
	s.SendChainKey = nil
	s.RemoteKey = remote
	s.HasRemoteKey = true
	return nil
}

// skipTo derives and caches receiving-chain keys for every index strictly
// below target.
func (s *State) skipTo(target uint32) error {
	if s.RecvChainKey == nil || s.RecvCount >= target {
		return nil
	}
	if target-s.RecvCount > uint32(s.MaxSkip) {
		return fmt.Errorf("%w: gap of %d exceeds skipped-key limit %d",
			domain.ErrResourceExhausted, target-s.RecvCount, s.MaxSkip)
	}
	gen := [32]byte(s.RemoteKey)
	for s.RecvCount < target {
		next, mk := crypto.ChainStep(s.RecvChainKey)
		replaceKey(&s.RecvChainKey, next)
		s.Skipped.Insert(gen, s.RecvCount, mk)
		s.RecvCount++
	}
	return nil
}

func headerAD(extraAD []byte, h domain.RatchetHeader) []byte {
	ad := make([]byte, 0, len(extraAD)+40)
	ad = append(ad, extraAD...)
	return wire.AppendRatchetHeader(ad, h)
}

func cloneKey(k []byte) []byte {
	if k == nil {
		return nil
	}
	return append([]byte(nil), k...)
}

// replaceKey wipes the old buffer before adopting the new one.
func replaceKey(dst *[]byte, next []byte) {
	memzero.Zero(*dst)
	*dst = next
}
