package group

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"sml/internal/crypto"
	"sml/internal/domain"
	"sml/internal/protocol/ratchet"
	"sml/internal/util/memzero"
	"sml/internal/wire"
)

const (
	pathLabel        = "sml/v1 tree path"
	epochLabel       = "sml/v1 epoch"
	senderChainLabel = "sml/v1 sender chain"
)

// Candidate is a member-to-be, identified by the caller and reachable
// through a published init key.
type Candidate struct {
	ID      domain.MemberID
	InitKey domain.X25519Public
}

// Chain is one sender's symmetric message chain within the current epoch.
type Chain struct {
	Key  []byte `json:"key"`
	Next uint32 `json:"next"`
}

// Session is one member's view of a group. Fields are exported for snapshot
// serialization only; mutate exclusively through the methods.
type Session struct {
	ID     domain.GroupID  `json:"id"`
	SelfID domain.MemberID `json:"self_id"`

	Members    []domain.GroupMember `json:"members"`
	LeafSecret []byte               `json:"leaf_secret"`

	Epoch       uint64 `json:"epoch"`
	EpochSecret []byte `json:"epoch_secret"`

	SendChain  Chain                      `json:"send_chain"`
	RecvChains map[domain.MemberID]*Chain `json:"recv_chains"`

	MaxSkip int                  `json:"max_skip"`
	Skipped *ratchet.SkippedKeys `json:"-"`
}

// Create forms a new group with the creator plus the given candidates and
// returns the creator's session together with the create commit the caller
// must distribute. Each candidate's leaf secret travels sealed to its init
// key inside the commit's welcome section.
func Create(selfID domain.MemberID, others []Candidate, maxSkip int) (*Session, domain.GroupCommit, error) {
	seen := map[domain.MemberID]bool{selfID: true}
	for _, c := range others {
		if seen[c.ID] {
			return nil, domain.GroupCommit{}, fmt.Errorf("%w: duplicate member %s", domain.ErrInvalidInput, c.ID)
		}
		seen[c.ID] = true
	}

	selfSecret, err := newLeafSecret()
	if err != nil {
		return nil, domain.GroupCommit{}, err
	}
	members := make([]domain.GroupMember, 0, len(others)+1)
	selfPub, err := leafPublic(selfSecret)
	if err != nil {
		return nil, domain.GroupCommit{}, err
	}
	members = append(members, domain.GroupMember{ID: selfID, LeafKey: selfPub})

	welcome := make([]domain.SealedSecret, 0, len(others))
	for _, c := range others {
		secret, err := newLeafSecret()
		if err != nil {
			return nil, domain.GroupCommit{}, err
		}
		pub, err := leafPublic(secret)
		if err != nil {
			return nil, domain.GroupCommit{}, err
		}
		ephPub, box, err := crypto.SealTo(c.InitKey, secret)
		memzero.Zero(secret)
		if err != nil {
			return nil, domain.GroupCommit{}, err
		}
		members = append(members, domain.GroupMember{ID: c.ID, LeafKey: pub})
		welcome = append(welcome, domain.SealedSecret{Recipient: c.ID, EphKey: ephPub, Box: box})
	}

	levels, root, err := sealPath(members, 0, selfSecret)
	if err != nil {
		return nil, domain.GroupCommit{}, err
	}

	if maxSkip <= 0 {
		maxSkip = ratchet.DefaultMaxSkipped
	}
	s := &Session{
		ID:         domain.NewGroupID(),
		SelfID:     selfID,
		Members:    members,
		LeafSecret: selfSecret,
		MaxSkip:    maxSkip,
		Skipped:    ratchet.NewSkippedKeys(maxSkip),
	}
	s.installEpoch(root, 1)

	commit := domain.GroupCommit{
		Group:     s.ID,
		Epoch:     1,
		Op:        domain.CommitCreate,
		Committer: selfID,
		Members:   members,
		Path:      levels,
		Welcome:   welcome,
	}
	return s, commit, nil
}

// NewFromCommit joins a group from a create or add commit that carries a
// welcome for selfID, sealed to the given init key.
func NewFromCommit(selfID domain.MemberID, initPriv domain.X25519Private, c domain.GroupCommit, maxSkip int) (*Session, error) {
	if c.Op != domain.CommitCreate && c.Op != domain.CommitAdd {
		return nil, fmt.Errorf("%w: commit op %d carries no welcome", domain.ErrInvalidInput, c.Op)
	}
	var leafSecret []byte
	for _, w := range c.Welcome {
		if w.Recipient == selfID {
			secret, err := crypto.OpenFrom(initPriv, w.EphKey, w.Box)
			if err != nil {
				return nil, err
			}
			leafSecret = secret
			break
		}
	}
	if leafSecret == nil {
		return nil, fmt.Errorf("%w: no welcome addressed to %s", domain.ErrInvalidInput, selfID)
	}

	selfIdx, err := memberIndex(c.Members, selfID)
	if err != nil {
		memzero.Zero(leafSecret)
		return nil, err
	}
	pub, err := leafPublic(leafSecret)
	if err != nil {
		memzero.Zero(leafSecret)
		return nil, err
	}
	if pub != c.Members[selfIdx].LeafKey {
		memzero.Zero(leafSecret)
		return nil, fmt.Errorf("%w: welcome secret does not match leaf key", domain.ErrInvalidInput)
	}

	root, err := openPath(c, selfID, leafSecret)
	if err != nil {
		memzero.Zero(leafSecret)
		return nil, err
	}

	if maxSkip <= 0 {
		maxSkip = ratchet.DefaultMaxSkipped
	}
	s := &Session{
		ID:         c.Group,
		SelfID:     selfID,
		Members:    cloneMembers(c.Members),
		LeafSecret: leafSecret,
		MaxSkip:    maxSkip,
		Skipped:    ratchet.NewSkippedKeys(maxSkip),
	}
	s.installEpoch(root, c.Epoch)
	return s, nil
}

// Update re-keys our own leaf and advances the epoch. The returned commit
// must be distributed to every other member.
func (s *Session) Update() (domain.GroupCommit, error) {
	return s.recommit(domain.CommitUpdate, cloneMembers(s.Members), nil)
}

// AddMember admits a new member, generating its leaf secret and sealing it
// to the given init key inside the commit's welcome section.
func (s *Session) AddMember(id domain.MemberID, initKey domain.X25519Public) (domain.GroupCommit, error) {
	if _, err := memberIndex(s.Members, id); err == nil {
		return domain.GroupCommit{}, fmt.Errorf("%w: member %s already present", domain.ErrInvalidInput, id)
	}
	secret, err := newLeafSecret()
	if err != nil {
		return domain.GroupCommit{}, err
	}
	pub, err := leafPublic(secret)
	if err != nil {
		memzero.Zero(secret)
		return domain.GroupCommit{}, err
	}
	ephPub, box, err := crypto.SealTo(initKey, secret)
	memzero.Zero(secret)
	if err != nil {
		return domain.GroupCommit{}, err
	}

	members := append(cloneMembers(s.Members), domain.GroupMember{ID: id, LeafKey: pub})
	welcome := []domain.SealedSecret{{Recipient: id, EphKey: ephPub, Box: box}}
	return s.recommit(domain.CommitAdd, members, welcome)
}

// RemoveMember evicts a member. The new epoch's path secrets are sealed only
// to remaining members, so nothing derivable from the removed member's state
// reaches the new epoch secret.
func (s *Session) RemoveMember(id domain.MemberID) (domain.GroupCommit, error) {
	if id == s.SelfID {
		return domain.GroupCommit{}, fmt.Errorf("%w: cannot remove self; leave by discarding the session", domain.ErrInvalidInput)
	}
	idx, err := memberIndex(s.Members, id)
	if err != nil {
		return domain.GroupCommit{}, err
	}
	members := cloneMembers(s.Members)
	members = append(members[:idx], members[idx+1:]...)
	return s.recommit(domain.CommitRemove, members, nil)
}

// Apply advances this member to the epoch of a commit produced elsewhere.
// Commits must arrive in epoch order; the committer must not apply its own
// commit (its state advanced when the commit was produced).
func (s *Session) Apply(c domain.GroupCommit) error {
	if c.Group != s.ID {
		return fmt.Errorf("%w: commit for group %s", domain.ErrInvalidInput, c.Group)
	}
	if c.Epoch <= s.Epoch {
		return domain.ErrStaleOrReplayedMessage
	}
	if c.Epoch != s.Epoch+1 {
		return fmt.Errorf("%w: commit skips from epoch %d to %d", domain.ErrInvalidInput, s.Epoch, c.Epoch)
	}
	if c.Committer == s.SelfID {
		return fmt.Errorf("%w: own commit is applied on creation", domain.ErrInvalidInput)
	}

	selfIdx, err := memberIndex(c.Members, s.SelfID)
	if err != nil {
		return fmt.Errorf("%w: removed from group", domain.ErrGroupNotFound)
	}
	pub, err := leafPublic(s.LeafSecret)
	if err != nil {
		return err
	}
	if pub != c.Members[selfIdx].LeafKey {
		return fmt.Errorf("%w: commit does not carry our leaf key", domain.ErrInvalidInput)
	}

	root, err := openPath(c, s.SelfID, s.LeafSecret)
	if err != nil {
		return err
	}
	s.Members = cloneMembers(c.Members)
	s.installEpoch(root, c.Epoch)
	return nil
}

// Encrypt advances our sender chain one step and seals plaintext under the
// resulting message key, binding the group header as associated data.
func (s *Session) Encrypt(plaintext []byte) (domain.GroupHeader, []byte, error) {
	if s.SendChain.Key == nil {
		return domain.GroupHeader{}, nil, fmt.Errorf("%w: no epoch established", domain.ErrInternal)
	}
	header := domain.GroupHeader{
		Group:        s.ID,
		Epoch:        s.Epoch,
		Sender:       s.SelfID,
		MessageIndex: s.SendChain.Next,
	}
	next, mk := crypto.ChainStep(s.SendChain.Key)
	memzero.Zero(s.SendChain.Key)
	s.SendChain.Key = next
	defer memzero.Zero(mk)

	ct, err := crypto.Seal(mk, header.MessageIndex, plaintext, groupAD(header))
	if err != nil {
		return domain.GroupHeader{}, nil, err
	}
	s.SendChain.Next++
	return header, ct, nil
}

// Decrypt opens one group envelope, serving out-of-order messages from the
// skipped-key cache. Only the current epoch is retained; older epochs are
// rejected as stale.
func (s *Session) Decrypt(header domain.GroupHeader, ciphertext []byte) ([]byte, error) {
	if header.Group != s.ID {
		return nil, fmt.Errorf("%w: envelope for group %s", domain.ErrInvalidInput, header.Group)
	}
	if header.Epoch < s.Epoch {
		return nil, domain.ErrStaleOrReplayedMessage
	}
	if header.Epoch > s.Epoch {
		return nil, fmt.Errorf("%w: envelope from future epoch %d; apply the commit first", domain.ErrInvalidInput, header.Epoch)
	}
	if header.Sender == s.SelfID {
		return nil, fmt.Errorf("%w: cannot decrypt own message", domain.ErrInvalidInput)
	}
	chain, ok := s.RecvChains[header.Sender]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sender %s", domain.ErrInvalidInput, header.Sender)
	}

	ad := groupAD(header)
	gen := senderGen(header)

	if mk, ok := s.Skipped.Take(gen, header.MessageIndex); ok {
		pt, err := crypto.Open(mk, header.MessageIndex, ciphertext, ad)
		memzero.Zero(mk)
		return pt, err
	}
	if header.MessageIndex < chain.Next {
		return nil, domain.ErrStaleOrReplayedMessage
	}
	if header.MessageIndex-chain.Next > uint32(s.MaxSkip) {
		return nil, fmt.Errorf("%w: gap of %d exceeds skipped-key limit %d",
			domain.ErrResourceExhausted, header.MessageIndex-chain.Next, s.MaxSkip)
	}

	// Stage the chain walk; commit only after the tag verifies.
	staged := Chain{Key: append([]byte(nil), chain.Key...), Next: chain.Next}
	for staged.Next < header.MessageIndex {
		next, mk := crypto.ChainStep(staged.Key)
		memzero.Zero(staged.Key)
		staged.Key = next
		s.Skipped.Insert(gen, staged.Next, mk)
		staged.Next++
	}
	next, mk := crypto.ChainStep(staged.Key)
	defer memzero.Zero(mk)

	pt, err := crypto.Open(mk, header.MessageIndex, ciphertext, ad)
	if err != nil {
		memzero.Zero(staged.Key)
		memzero.Zero(next)
		return nil, err
	}
	memzero.Zero(staged.Key)
	memzero.Zero(chain.Key)
	chain.Key = next
	chain.Next = header.MessageIndex + 1
	return pt, nil
}

// Wipe erases every secret the session holds.
func (s *Session) Wipe() {
	memzero.Zero(s.LeafSecret)
	memzero.Zero(s.EpochSecret)
	memzero.Zero(s.SendChain.Key)
	s.LeafSecret, s.EpochSecret, s.SendChain.Key = nil, nil, nil
	for _, c := range s.RecvChains {
		memzero.Zero(c.Key)
	}
	s.RecvChains = nil
	if s.Skipped != nil {
		s.Skipped.Purge()
	}
}

// recommit re-keys our own leaf, seals the new path to the given member
// list, advances the local epoch, and returns the commit to distribute.
func (s *Session) recommit(op domain.CommitOp, members []domain.GroupMember, welcome []domain.SealedSecret) (domain.GroupCommit, error) {
	selfIdx, err := memberIndex(members, s.SelfID)
	if err != nil {
		return domain.GroupCommit{}, err
	}
	newSecret, err := newLeafSecret()
	if err != nil {
		return domain.GroupCommit{}, err
	}
	pub, err := leafPublic(newSecret)
	if err != nil {
		memzero.Zero(newSecret)
		return domain.GroupCommit{}, err
	}
	members[selfIdx].LeafKey = pub

	levels, root, err := sealPath(members, selfIdx, newSecret)
	if err != nil {
		memzero.Zero(newSecret)
		return domain.GroupCommit{}, err
	}

	commit := domain.GroupCommit{
		Group:     s.ID,
		Epoch:     s.Epoch + 1,
		Op:        op,
		Committer: s.SelfID,
		Members:   cloneMembers(members),
		Path:      levels,
		Welcome:   welcome,
	}

	memzero.Zero(s.LeafSecret)
	s.LeafSecret = newSecret
	s.Members = members
	s.installEpoch(root, s.Epoch+1)
	return commit, nil
}

// installEpoch wipes the previous epoch's material and derives the epoch
// secret and per-sender chains. root is consumed.
func (s *Session) installEpoch(root []byte, epoch uint64) {
	memzero.Zero(s.EpochSecret)
	memzero.Zero(s.SendChain.Key)
	for _, c := range s.RecvChains {
		memzero.Zero(c.Key)
	}
	s.Skipped.Purge()

	salt := binary.BigEndian.AppendUint64(nil, epoch)
	s.EpochSecret = crypto.HKDF(root, salt, epochLabel, crypto.KeyBytes)
	memzero.Zero(root)
	s.Epoch = epoch

	s.SendChain = Chain{Key: s.senderChainKey(s.SelfID)}
	s.RecvChains = make(map[domain.MemberID]*Chain, len(s.Members)-1)
	for _, m := range s.Members {
		if m.ID == s.SelfID {
			continue
		}
		s.RecvChains[m.ID] = &Chain{Key: s.senderChainKey(m.ID)}
	}
}

func (s *Session) senderChainKey(id domain.MemberID) []byte {
	return crypto.HKDF(s.EpochSecret, []byte(id), senderChainLabel, crypto.KeyBytes)
}

// sealPath chains a fresh path secret per tree level above the committer's
// leaf and seals each level's secret to the leaves of its copath subtree.
// It returns the levels and the root secret (owned by the caller).
func sealPath(members []domain.GroupMember, selfIdx int, leafSecret []byte) ([]domain.PathLevel, []byte, error) {
	cop := copathLeaves(len(members), selfIdx)
	secret := append([]byte(nil), leafSecret...)
	levels := make([]domain.PathLevel, 0, len(cop))
	for _, leafIdxs := range cop {
		next := crypto.HKDF(secret, nil, pathLabel, crypto.KeyBytes)
		memzero.Zero(secret)
		secret = next

		seals := make([]domain.SealedSecret, 0, len(leafIdxs))
		for _, li := range leafIdxs {
			ephPub, box, err := crypto.SealTo(members[li].LeafKey, secret)
			if err != nil {
				memzero.Zero(secret)
				return nil, nil, err
			}
			seals = append(seals, domain.SealedSecret{Recipient: members[li].ID, EphKey: ephPub, Box: box})
		}
		levels = append(levels, domain.PathLevel{Seals: seals})
	}
	return levels, secret, nil
}

// openPath locates the path secret sealed to us, opens it with our leaf
// key, and chains it up to the root secret.
func openPath(c domain.GroupCommit, selfID domain.MemberID, leafSecret []byte) ([]byte, error) {
	committerIdx, err := memberIndex(c.Members, c.Committer)
	if err != nil {
		return nil, err
	}
	// Path depth follows the committer's leaf, which may sit shallower or
	// deeper than ours in a left-balanced tree.
	if want := len(copathLeaves(len(c.Members), committerIdx)); len(c.Path) != want {
		return nil, fmt.Errorf("%w: commit path has %d levels, want %d", domain.ErrInvalidInput, len(c.Path), want)
	}
	if len(c.Path) == 0 {
		// Single-member group: the committer's leaf secret is the root.
		return nil, fmt.Errorf("%w: no path secret addressed to %s", domain.ErrInvalidInput, selfID)
	}
	leafPriv, err := crypto.PrivateFromSecret(leafSecret)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(leafPriv[:])

	for i, level := range c.Path {
		for _, seal := range level.Seals {
			if seal.Recipient != selfID {
				continue
			}
			secret, err := crypto.OpenFrom(leafPriv, seal.EphKey, seal.Box)
			if err != nil {
				return nil, err
			}
			for j := i + 1; j < len(c.Path); j++ {
				next := crypto.HKDF(secret, nil, pathLabel, crypto.KeyBytes)
				memzero.Zero(secret)
				secret = next
			}
			return secret, nil
		}
	}
	return nil, fmt.Errorf("%w: no path secret addressed to %s", domain.ErrInvalidInput, selfID)
}

func groupAD(h domain.GroupHeader) []byte {
	return wire.AppendGroupHeader(wire.GroupPrefix(), h)
}

// senderGen keys the skipped-key cache by group, epoch, and sender so keys
// from different chains can never collide.
func senderGen(h domain.GroupHeader) [32]byte {
	d := sha256.New()
	d.Write([]byte(h.Group))
	_ = binary.Write(d, binary.BigEndian, h.Epoch)
	d.Write([]byte(h.Sender))
	var gen [32]byte
	copy(gen[:], d.Sum(nil))
	return gen
}

func memberIndex(members []domain.GroupMember, id domain.MemberID) (int, error) {
	for i, m := range members {
		if m.ID == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: member %s not in group", domain.ErrInvalidInput, id)
}

func cloneMembers(members []domain.GroupMember) []domain.GroupMember {
	return append([]domain.GroupMember(nil), members...)
}

func newLeafSecret() ([]byte, error) {
	secret := make([]byte, crypto.KeyBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInternal, err)
	}
	return secret, nil
}

func leafPublic(secret []byte) (domain.X25519Public, error) {
	priv, err := crypto.PrivateFromSecret(secret)
	if err != nil {
		return domain.X25519Public{}, err
	}
	defer memzero.Zero(priv[:])
	return crypto.PublicKey(priv)
}
