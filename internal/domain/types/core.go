package types

import "github.com/google/uuid"

// SessionID is an opaque handle for a pairwise session.
type SessionID string

// String returns the string form of the handle.
func (id SessionID) String() string { return string(id) }

// GroupID is an opaque handle for a group session.
type GroupID string

// String returns the string form of the handle.
func (id GroupID) String() string { return string(id) }

// MemberID identifies a member inside a group.
type MemberID string

// String returns the string form of the identifier.
func (id MemberID) String() string { return string(id) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// NewSessionID returns a fresh random session handle.
func NewSessionID() SessionID { return SessionID(uuid.NewString()) }

// NewGroupID returns a fresh random group handle.
func NewGroupID() GroupID { return GroupID(uuid.NewString()) }

// NewMemberID returns a fresh random member identifier.
func NewMemberID() MemberID { return MemberID(uuid.NewString()) }
