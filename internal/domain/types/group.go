package types

// CommitOp says which membership-affecting operation produced a commit.
type CommitOp uint8

const (
	CommitCreate CommitOp = iota + 1
	CommitAdd
	CommitRemove
	CommitUpdate
)

// GroupMember is one entry of a group's ordered member list.
type GroupMember struct {
	ID      MemberID     `json:"id"`
	LeafKey X25519Public `json:"leaf_key"`
}

// SealedSecret is a 32-byte secret sealed to a recipient's public key with an
// ephemeral DH exchange plus AEAD.
type SealedSecret struct {
	Recipient MemberID     `json:"recipient"`
	EphKey    X25519Public `json:"eph_key"`
	Box       []byte       `json:"box"`
}

// PathLevel carries the sealed path secret for one tree level of a commit.
// The recipients are the leaves of the copath subtree at that level, so
// members closer to the committer in the tree learn deeper path secrets.
type PathLevel struct {
	Seals []SealedSecret `json:"seals"`
}

// GroupCommit is the out-of-band value distributed to all members after a
// membership change or self-update. Applying it advances the epoch.
type GroupCommit struct {
	Group     GroupID        `json:"group"`
	Epoch     uint64         `json:"epoch"`
	Op        CommitOp       `json:"op"`
	Committer MemberID       `json:"committer"`
	Members   []GroupMember  `json:"members"`
	Path      []PathLevel    `json:"path"`
	Welcome   []SealedSecret `json:"welcome,omitempty"`
}

// GroupHeader is bound to every group ciphertext as AEAD associated data.
type GroupHeader struct {
	Group        GroupID  `json:"group"`
	Epoch        uint64   `json:"epoch"`
	Sender       MemberID `json:"sender"`
	MessageIndex uint32   `json:"n"`
}

// GroupEnvelope is the decoded wire form of one group message.
type GroupEnvelope struct {
	Header GroupHeader `json:"header"`
	Cipher []byte      `json:"cipher"`
}
