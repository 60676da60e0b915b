package domain

import types "sml/internal/domain/types"

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	SessionID           = types.SessionID
	GroupID             = types.GroupID
	MemberID            = types.MemberID
	Fingerprint         = types.Fingerprint
	Identity            = types.Identity
	SignedPreKeyPair    = types.SignedPreKeyPair
	OneTimePreKeyPair   = types.OneTimePreKeyPair
	OneTimePreKeyPublic = types.OneTimePreKeyPublic
	PreKeyBundle        = types.PreKeyBundle
	PreKeyMessage       = types.PreKeyMessage
	RatchetHeader       = types.RatchetHeader
	Envelope            = types.Envelope
	CommitOp            = types.CommitOp
	GroupMember         = types.GroupMember
	SealedSecret        = types.SealedSecret
	PathLevel           = types.PathLevel
	GroupCommit         = types.GroupCommit
	GroupHeader         = types.GroupHeader
	GroupEnvelope       = types.GroupEnvelope
	X25519Public        = types.X25519Public
	X25519Private       = types.X25519Private
	Ed25519Public       = types.Ed25519Public
	Ed25519Private      = types.Ed25519Private
)

// NewSessionID returns a fresh random session handle.
func NewSessionID() SessionID { return types.NewSessionID() }

// NewGroupID returns a fresh random group handle.
func NewGroupID() GroupID { return types.NewGroupID() }

// NewMemberID returns a fresh random member identifier.
func NewMemberID() MemberID { return types.NewMemberID() }

// Commit operation constants re-exported alongside their type.
const (
	CommitCreate = types.CommitCreate
	CommitAdd    = types.CommitAdd
	CommitRemove = types.CommitRemove
	CommitUpdate = types.CommitUpdate
)
