package sml

import (
	"sml/internal/crypto"
	"sml/internal/domain"
	"sml/internal/services/group"
	"sml/internal/wire"
)

// Members are addressed by the fingerprint of their identity key, taken
// from the same pre-key bundles used for pairwise sessions. The bundle's
// identity key doubles as the init key a welcome is sealed to.

// CreateGroup forms a group with this client plus the owners of the given
// encoded pre-key bundles. It returns the group handle and the encoded
// create commit to distribute to every candidate.
func (c *Client) CreateGroup(bundles ...[]byte) (GroupID, []byte, error) {
	candidates := make([]group.Candidate, 0, len(bundles))
	for _, data := range bundles {
		b, err := wire.DecodeBundle(data)
		if err != nil {
			return "", nil, err
		}
		candidates = append(candidates, group.Candidate{
			ID:      domain.MemberID(crypto.Fingerprint(b.IdentityKey.Slice())),
			InitKey: b.IdentityKey,
		})
	}
	return c.groups.Create(candidates)
}

// JoinGroup enters a group from an encoded commit that welcomes this
// client. The welcome is sealed to our identity key.
func (c *Client) JoinGroup(commit []byte) (GroupID, error) {
	return c.groups.Join(c.prekeys.Identity().XPriv, commit)
}

// AddGroupMember admits the owner of the encoded pre-key bundle and
// returns the commit to distribute. Existing members apply it; the new
// member joins from it.
func (c *Client) AddGroupMember(id GroupID, bundle []byte) ([]byte, error) {
	b, err := wire.DecodeBundle(bundle)
	if err != nil {
		return nil, err
	}
	member := domain.MemberID(crypto.Fingerprint(b.IdentityKey.Slice()))
	return c.groups.Add(id, member, b.IdentityKey)
}

// RemoveGroupMember evicts a member and returns the commit to distribute.
// The new epoch's secrets are unreachable from the removed member's state.
func (c *Client) RemoveGroupMember(id GroupID, member MemberID) ([]byte, error) {
	return c.groups.Remove(id, member)
}

// UpdateGroup re-keys this client's leaf, advancing the epoch, and
// returns the commit to distribute.
func (c *Client) UpdateGroup(id GroupID) ([]byte, error) {
	return c.groups.Update(id)
}

// ApplyCommit advances a group to the epoch of a commit produced by
// another member. Commits must be applied in epoch order. A commit that
// removes this client wipes the group and retires the handle.
func (c *Client) ApplyCommit(id GroupID, commit []byte) error {
	return c.groups.Apply(id, commit)
}

// GroupEncrypt seals plaintext for every current member of the group.
func (c *Client) GroupEncrypt(id GroupID, plaintext []byte) ([]byte, error) {
	return c.groups.Encrypt(id, plaintext)
}

// GroupDecrypt opens a group envelope from another member. Envelopes from
// epochs older than the group's current epoch are rejected as stale.
func (c *Client) GroupDecrypt(id GroupID, envelope []byte) ([]byte, error) {
	return c.groups.Decrypt(id, envelope)
}

// GroupMembers lists the fingerprints of the group's current members.
func (c *Client) GroupMembers(id GroupID) ([]MemberID, error) {
	members, err := c.groups.Members(id)
	if err != nil {
		return nil, err
	}
	out := make([]MemberID, len(members))
	for i, m := range members {
		out[i] = m.ID
	}
	return out, nil
}

// LeaveGroup erases the group's secrets and retires the handle. Remaining
// members should remove us with RemoveGroupMember to rotate the epoch.
func (c *Client) LeaveGroup(id GroupID) {
	c.groups.Destroy(id)
}
