package group

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"sml/internal/domain"
	"sml/internal/protocol/group"
	"sml/internal/protocol/ratchet"
	"sml/internal/wire"
)

// Candidate re-exports the protocol type for callers of this service.
type Candidate = group.Candidate

// Service maps opaque handles to group sessions. Like the pairwise
// service, the handle map takes an RW mutex and each group its own lock.
type Service struct {
	mu     sync.RWMutex
	groups map[domain.GroupID]*handle

	selfID  domain.MemberID
	maxSkip int
	log     *logrus.Entry
}

type handle struct {
	mu sync.Mutex
	s  *group.Session
}

// New constructs a group service for the member identified by selfID.
func New(log *logrus.Entry, selfID domain.MemberID, maxSkip int) *Service {
	return &Service{
		groups:  make(map[domain.GroupID]*handle),
		selfID:  selfID,
		maxSkip: maxSkip,
		log:     log,
	}
}

// SelfID returns the member identity this service commits and sends under.
func (s *Service) SelfID() domain.MemberID { return s.selfID }

// Create forms a new group with us plus the given candidates and returns
// the group handle and the encoded create commit to distribute.
func (s *Service) Create(others []Candidate) (domain.GroupID, []byte, error) {
	sess, commit, err := group.Create(s.selfID, others, s.maxSkip)
	if err != nil {
		return "", nil, err
	}
	data, err := wire.EncodeCommit(commit)
	if err != nil {
		sess.Wipe()
		return "", nil, err
	}

	s.mu.Lock()
	s.groups[sess.ID] = &handle{s: sess}
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"group": sess.ID, "members": len(commit.Members)}).Info("group created")
	return sess.ID, data, nil
}

// Join enters a group from an encoded create or add commit whose welcome
// section is sealed to the given init key.
func (s *Service) Join(initPriv domain.X25519Private, data []byte) (domain.GroupID, error) {
	commit, err := wire.DecodeCommit(data)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[commit.Group]; ok {
		return "", fmt.Errorf("%w: already a member of group %s", domain.ErrInvalidInput, commit.Group)
	}
	sess, err := group.NewFromCommit(s.selfID, initPriv, commit, s.maxSkip)
	if err != nil {
		return "", err
	}
	s.groups[sess.ID] = &handle{s: sess}

	s.log.WithFields(logrus.Fields{"group": sess.ID, "epoch": sess.Epoch}).Info("group joined")
	return sess.ID, nil
}

// Add admits a new member and returns the encoded commit to distribute.
// The commit carries a welcome sealed to the candidate's init key.
func (s *Service) Add(id domain.GroupID, member domain.MemberID, initKey domain.X25519Public) ([]byte, error) {
	return s.commit(id, "member added", func(sess *group.Session) (domain.GroupCommit, error) {
		return sess.AddMember(member, initKey)
	})
}

// Remove evicts a member and returns the encoded commit to distribute.
func (s *Service) Remove(id domain.GroupID, member domain.MemberID) ([]byte, error) {
	return s.commit(id, "member removed", func(sess *group.Session) (domain.GroupCommit, error) {
		return sess.RemoveMember(member)
	})
}

// Update re-keys our own leaf and returns the encoded commit to distribute.
func (s *Service) Update(id domain.GroupID) ([]byte, error) {
	return s.commit(id, "group rekeyed", func(sess *group.Session) (domain.GroupCommit, error) {
		return sess.Update()
	})
}

// Apply advances a group to the epoch of a commit produced by another
// member. A remove commit that evicts us wipes and drops the handle.
func (s *Service) Apply(id domain.GroupID, data []byte) error {
	commit, err := wire.DecodeCommit(data)
	if err != nil {
		return err
	}
	h, err := s.get(id)
	if err != nil {
		return err
	}

	h.mu.Lock()
	err = h.s.Apply(commit)
	h.mu.Unlock()
	if err != nil {
		if commit.Op == domain.CommitRemove && memberAbsent(commit.Members, s.selfID) {
			s.Destroy(id)
			s.log.WithField("group", id).Info("removed from group")
		}
		return err
	}

	s.log.WithFields(logrus.Fields{"group": id, "epoch": commit.Epoch}).Info("commit applied")
	return nil
}

// Encrypt seals plaintext for the group and returns the wire envelope.
func (s *Service) Encrypt(id domain.GroupID, plaintext []byte) ([]byte, error) {
	h, err := s.get(id)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	header, ct, err := h.s.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	return wire.EncodeGroupEnvelope(header, ct), nil
}

// Decrypt opens a wire envelope for the group.
func (s *Service) Decrypt(id domain.GroupID, data []byte) ([]byte, error) {
	h, err := s.get(id)
	if err != nil {
		return nil, err
	}
	env, _, err := wire.DecodeGroupEnvelope(data)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.s.Decrypt(env.Header, env.Cipher)
}

// Members lists the current membership of a group.
func (s *Service) Members(id domain.GroupID) ([]domain.GroupMember, error) {
	h, err := s.get(id)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.GroupMember(nil), h.s.Members...), nil
}

// Destroy wipes and drops a group handle. Destroying an unknown handle is
// a no-op; later use of the handle fails with ErrGroupNotFound.
func (s *Service) Destroy(id domain.GroupID) {
	s.mu.Lock()
	h, ok := s.groups[id]
	delete(s.groups, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	h.mu.Lock()
	h.s.Wipe()
	h.mu.Unlock()
	s.log.WithField("group", id).Info("group session destroyed")
}

// DestroyAll wipes every group, for client shutdown.
func (s *Service) DestroyAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, h := range s.groups {
		h.mu.Lock()
		h.s.Wipe()
		h.mu.Unlock()
		delete(s.groups, id)
	}
}

func (s *Service) commit(id domain.GroupID, event string, fn func(*group.Session) (domain.GroupCommit, error)) ([]byte, error) {
	h, err := s.get(id)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	commit, err := fn(h.s)
	if err != nil {
		return nil, err
	}
	data, err := wire.EncodeCommit(commit)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"group": id, "epoch": commit.Epoch}).Info(event)
	return data, nil
}

func (s *Service) get(id domain.GroupID) (*handle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGroupNotFound, id)
	}
	return h, nil
}

func memberAbsent(members []domain.GroupMember, id domain.MemberID) bool {
	for _, m := range members {
		if m.ID == id {
			return false
		}
	}
	return true
}

// Snapshot exports all groups for the serialize hook.
func (s *Service) Snapshot() []State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]State, 0, len(s.groups))
	for _, h := range s.groups {
		h.mu.Lock()
		out = append(out, State{
			Session: *h.s,
			Skipped: h.s.Skipped.Snapshot(),
		})
		h.mu.Unlock()
	}
	return out
}

// Restore rebuilds groups from an exported snapshot.
func (s *Service) Restore(states []State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range states {
		sess := st.Session
		if sess.MaxSkip <= 0 {
			sess.MaxSkip = ratchet.DefaultMaxSkipped
		}
		sess.Skipped = ratchet.NewSkippedKeys(sess.MaxSkip)
		sess.Skipped.Restore(st.Skipped)
		s.groups[sess.ID] = &handle{s: &sess}
	}
}

// State is the serializable form of one group session.
type State struct {
	Session group.Session          `json:"session"`
	Skipped []ratchet.SkippedEntry `json:"skipped,omitempty"`
}
