package prekey

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"sml/internal/crypto"
	"sml/internal/domain"
	"sml/internal/util/memzero"
)

// DefaultOneTimeCount is the pool size targeted by replenishment.
const DefaultOneTimeCount = 20

// Service owns one account's pre-key material. All methods are safe for
// concurrent use; one-time pre-key consumption in particular follows an
// atomic claim-and-remove discipline.
type Service struct {
	mu sync.Mutex

	identity domain.Identity
	current  domain.SignedPreKeyPair
	previous *domain.SignedPreKeyPair

	oneTime map[uint32]domain.OneTimePreKeyPair
	order   []uint32

	target int
	log    *logrus.Entry
}

// New generates a fresh identity, an initial signed pre-key, and a pool of
// oneTimeCount one-time pre-keys.
func New(log *logrus.Entry, oneTimeCount int) (*Service, error) {
	if oneTimeCount <= 0 {
		oneTimeCount = DefaultOneTimeCount
	}
	id, err := crypto.NewIdentity()
	if err != nil {
		return nil, err
	}
	s := &Service{
		identity: id,
		oneTime:  make(map[uint32]domain.OneTimePreKeyPair),
		target:   oneTimeCount,
		log:      log,
	}
	if err := s.RotateSignedPreKey(); err != nil {
		return nil, err
	}
	if err := s.Replenish(oneTimeCount); err != nil {
		return nil, err
	}
	return s, nil
}

// Identity returns the account identity key material.
func (s *Service) Identity() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Fingerprint returns the identity key fingerprint shown to users.
func (s *Service) Fingerprint() domain.Fingerprint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return crypto.Fingerprint(s.identity.XPub.Slice())
}

// RotateSignedPreKey installs a fresh signed pre-key. The superseded key is
// retained until the following rotation so in-flight handshakes resolve.
func (s *Service) RotateSignedPreKey() error {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}
	id, err := randomID()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sig := crypto.SignEd25519(s.identity.EdPriv, pub.Slice())
	if s.previous != nil {
		memzero.Zero(s.previous.Priv[:])
	}
	if s.current.ID != 0 {
		retired := s.current
		s.previous = &retired
	}
	s.current = domain.SignedPreKeyPair{ID: id, Priv: priv, Pub: pub, Sig: sig}
	s.log.WithField("spk_id", id).Debug("rotated signed pre-key")
	return nil
}

// Replenish tops the one-time pre-key pool back up to target keys. Pools
// already at or above the target are left alone.
func (s *Service) Replenish(target int) error {
	s.mu.Lock()
	need := target - len(s.oneTime)
	s.mu.Unlock()
	if need <= 0 {
		return nil
	}

	pairs := make([]domain.OneTimePreKeyPair, 0, need)
	for i := 0; i < need; i++ {
		priv, pub, err := crypto.GenerateX25519()
		if err != nil {
			return err
		}
		id, err := randomID()
		if err != nil {
			return err
		}
		pairs = append(pairs, domain.OneTimePreKeyPair{ID: id, Priv: priv, Pub: pub})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range pairs {
		p := pairs[i]
		if len(s.oneTime) >= target {
			memzero.Zero(pairs[i].Priv[:])
			continue
		}
		if _, exists := s.oneTime[p.ID]; exists {
			continue
		}
		s.oneTime[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	s.log.WithField("pool", len(s.oneTime)).Debug("replenished one-time pre-keys")
	return nil
}

// Bundle returns the publishable snapshot: the current signed pre-key and at
// most one still-unused one-time pre-key. An exhausted pool is lazily
// replenished first.
func (s *Service) Bundle() (domain.PreKeyBundle, error) {
	s.mu.Lock()
	exhausted := len(s.oneTime) == 0
	s.mu.Unlock()
	if exhausted {
		if err := s.Replenish(s.target); err != nil {
			return domain.PreKeyBundle{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b := domain.PreKeyBundle{
		IdentityKey:           s.identity.XPub,
		SigningKey:            s.identity.EdPub,
		SignedPreKeyID:        s.current.ID,
		SignedPreKey:          s.current.Pub,
		SignedPreKeySignature: append([]byte(nil), s.current.Sig...),
	}
	for _, id := range s.order {
		if p, ok := s.oneTime[id]; ok {
			b.OneTimePreKey = &domain.OneTimePreKeyPublic{ID: p.ID, Pub: p.Pub}
			break
		}
	}
	return b, nil
}

// ConsumeOneTime atomically claims and removes a one-time pre-key. A second
// consumer of the same id gets ErrPreKeyNotFound. The caller owns the
// returned private material and must wipe it after the agreement.
func (s *Service) ConsumeOneTime(id uint32) (domain.OneTimePreKeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.oneTime[id]
	if !ok {
		return domain.OneTimePreKeyPair{}, fmt.Errorf("%w: one-time pre-key %d", domain.ErrPreKeyNotFound, id)
	}
	delete(s.oneTime, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.WithField("opk_id", id).Debug("consumed one-time pre-key")
	return p, nil
}

// SignedPreKey resolves the current or retained-previous signed pre-key by id.
func (s *Service) SignedPreKey(id uint32) (domain.SignedPreKeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.ID == id {
		return s.current, nil
	}
	if s.previous != nil && s.previous.ID == id {
		return *s.previous, nil
	}
	return domain.SignedPreKeyPair{}, fmt.Errorf("%w: signed pre-key %d", domain.ErrPreKeyNotFound, id)
}

// PoolSize reports the number of unused one-time pre-keys.
func (s *Service) PoolSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.oneTime)
}

// Wipe erases all private key material.
func (s *Service) Wipe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	memzero.Zero(s.identity.XPriv[:])
	memzero.Zero(s.identity.EdPriv[:])
	memzero.Zero(s.current.Priv[:])
	if s.previous != nil {
		memzero.Zero(s.previous.Priv[:])
		s.previous = nil
	}
	for id, p := range s.oneTime {
		memzero.Zero(p.Priv[:])
		delete(s.oneTime, id)
	}
	s.order = nil
}

// Snapshot exports the pre-key state for the serialize hook.
func (s *Service) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Identity: s.identity,
		Current:  s.current,
		Previous: s.previous,
		Target:   s.target,
	}
	for _, id := range s.order {
		if p, ok := s.oneTime[id]; ok {
			st.OneTime = append(st.OneTime, p)
		}
	}
	return st
}

// Restore rebuilds a service from an exported snapshot.
func Restore(log *logrus.Entry, st State) *Service {
	s := &Service{
		identity: st.Identity,
		current:  st.Current,
		previous: st.Previous,
		oneTime:  make(map[uint32]domain.OneTimePreKeyPair, len(st.OneTime)),
		target:   st.Target,
		log:      log,
	}
	if s.target <= 0 {
		s.target = DefaultOneTimeCount
	}
	for _, p := range st.OneTime {
		s.oneTime[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	return s
}

// State is the serializable form of the pre-key material.
type State struct {
	Identity domain.Identity            `json:"identity"`
	Current  domain.SignedPreKeyPair    `json:"current"`
	Previous *domain.SignedPreKeyPair   `json:"previous,omitempty"`
	OneTime  []domain.OneTimePreKeyPair `json:"one_time"`
	Target   int                        `json:"target"`
}

func randomID() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	id := binary.BigEndian.Uint32(b[:])
	if id == 0 {
		id = 1
	}
	return id, nil
}
