package session

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"sml/internal/domain"
	"sml/internal/protocol/ratchet"
	"sml/internal/protocol/x3dh"
	"sml/internal/services/prekey"
	"sml/internal/util/memzero"
	"sml/internal/wire"
)

// Service maps opaque handles to live pairwise sessions. Handle lookups are
// guarded by an RW mutex; each session carries its own lock so operations on
// distinct handles proceed in parallel while a single handle is serialized.
type Service struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*pairwise

	prekeys *prekey.Service
	maxSkip int
	log     *logrus.Entry
}

type pairwise struct {
	mu sync.Mutex

	id domain.SessionID
	st *ratchet.State

	// pending is the handshake block attached to outgoing envelopes until
	// the first inbound message proves the peer holds the session.
	pending *domain.PreKeyMessage
}

// New constructs a session service backed by the given pre-key manager.
func New(log *logrus.Entry, prekeys *prekey.Service, maxSkip int) *Service {
	return &Service{
		sessions: make(map[domain.SessionID]*pairwise),
		prekeys:  prekeys,
		maxSkip:  maxSkip,
		log:      log,
	}
}

// Initiate establishes a session from a peer's pre-key bundle and returns
// its handle. The first envelopes sent will carry the X3DH handshake block.
func (s *Service) Initiate(bundle domain.PreKeyBundle) (domain.SessionID, error) {
	root, pm, err := x3dh.InitiatorRoot(s.prekeys.Identity(), bundle)
	if err != nil {
		return "", err
	}
	st, err := ratchet.NewInitiator(root, bundle.SignedPreKey, s.maxSkip)
	if err != nil {
		return "", err
	}

	p := &pairwise{id: domain.NewSessionID(), st: st, pending: &pm}
	s.mu.Lock()
	s.sessions[p.id] = p
	s.mu.Unlock()

	s.log.WithField("session", p.id).Info("pairwise session initiated")
	return p.id, nil
}

// Accept establishes a session from the first inbound envelope of an
// unknown peer and decrypts it. The envelope must carry a handshake block;
// a one-time pre-key it references is consumed atomically.
func (s *Service) Accept(data []byte) (domain.SessionID, []byte, error) {
	env, ad, err := wire.DecodeEnvelope(data)
	if err != nil {
		return "", nil, err
	}
	if env.PreKey == nil {
		return "", nil, fmt.Errorf("%w: first envelope lacks handshake block", domain.ErrInvalidInput)
	}
	pm := *env.PreKey

	spk, err := s.prekeys.SignedPreKey(pm.SignedPreKeyID)
	if err != nil {
		return "", nil, err
	}
	var opkPriv *domain.X25519Private
	if pm.HasOneTimePreKey {
		pair, err := s.prekeys.ConsumeOneTime(pm.OneTimePreKeyID)
		if err != nil {
			return "", nil, err
		}
		opkPriv = &pair.Priv
	}

	root, err := x3dh.ResponderRoot(s.prekeys.Identity(), spk.Priv, opkPriv, pm)
	if opkPriv != nil {
		memzero.Zero(opkPriv[:])
	}
	if err != nil {
		return "", nil, err
	}

	st, err := ratchet.NewResponder(root, spk.Priv, spk.Pub, s.maxSkip)
	if err != nil {
		return "", nil, err
	}
	pt, err := st.Decrypt(ad[:len(ad)-wire.RatchetHeaderLen], env.Header, env.Cipher)
	if err != nil {
		st.Wipe()
		return "", nil, err
	}

	p := &pairwise{id: domain.NewSessionID(), st: st}
	s.mu.Lock()
	s.sessions[p.id] = p
	s.mu.Unlock()

	s.log.WithField("session", p.id).Info("pairwise session accepted")
	return p.id, pt, nil
}

// Encrypt seals plaintext for the session and returns the wire envelope.
func (s *Service) Encrypt(id domain.SessionID, plaintext []byte) ([]byte, error) {
	p, err := s.get(id)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	prefix := wire.PairwisePrefix(p.pending)
	header, ct, err := p.st.Encrypt(prefix, plaintext)
	if err != nil {
		return nil, err
	}
	return wire.EncodeEnvelope(prefix, header, ct), nil
}

// Decrypt opens a wire envelope for the session.
func (s *Service) Decrypt(id domain.SessionID, data []byte) ([]byte, error) {
	p, err := s.get(id)
	if err != nil {
		return nil, err
	}
	env, ad, err := wire.DecodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	pt, err := p.st.Decrypt(ad[:len(ad)-wire.RatchetHeaderLen], env.Header, env.Cipher)
	if err != nil {
		return nil, err
	}
	// The peer demonstrably holds the session; stop attaching the handshake.
	p.pending = nil
	return pt, nil
}

// Destroy releases and erases all secret state of a session. Destroying an
// unknown or already-destroyed handle is a no-op; later use of the handle
// fails with ErrSessionNotFound.
func (s *Service) Destroy(id domain.SessionID) {
	s.mu.Lock()
	p, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	p.mu.Lock()
	p.st.Wipe()
	p.mu.Unlock()
	s.log.WithField("session", id).Info("pairwise session destroyed")
}

// DestroyAll wipes every session, for client shutdown.
func (s *Service) DestroyAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.sessions {
		p.mu.Lock()
		p.st.Wipe()
		p.mu.Unlock()
		delete(s.sessions, id)
	}
}

func (s *Service) get(id domain.SessionID) (*pairwise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return p, nil
}

// Snapshot exports all sessions for the serialize hook.
func (s *Service) Snapshot() []State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]State, 0, len(s.sessions))
	for _, p := range s.sessions {
		p.mu.Lock()
		out = append(out, State{
			ID:      p.id,
			Ratchet: *p.st,
			Skipped: p.st.Skipped.Snapshot(),
			Pending: p.pending,
		})
		p.mu.Unlock()
	}
	return out
}

// Restore rebuilds sessions from an exported snapshot.
func (s *Service) Restore(states []State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range states {
		r := st.Ratchet
		if r.MaxSkip <= 0 {
			r.MaxSkip = ratchet.DefaultMaxSkipped
		}
		r.Skipped = ratchet.NewSkippedKeys(r.MaxSkip)
		r.Skipped.Restore(st.Skipped)
		s.sessions[st.ID] = &pairwise{id: st.ID, st: &r, pending: st.Pending}
	}
}

// State is the serializable form of one pairwise session.
type State struct {
	ID      domain.SessionID       `json:"id"`
	Ratchet ratchet.State          `json:"ratchet"`
	Skipped []ratchet.SkippedEntry `json:"skipped,omitempty"`
	Pending *domain.PreKeyMessage  `json:"pending,omitempty"`
}
