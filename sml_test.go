package sml_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sml"
)

func newClient(t *testing.T, opts ...sml.Option) *sml.Client {
	t.Helper()
	c, err := sml.NewClient(opts...)
	require.NoError(t, err)
	return c
}

// connect establishes a pairwise session between two fresh clients and
// returns both handles.
func connect(t *testing.T, alice, bob *sml.Client) (aID, bID sml.SessionID) {
	t.Helper()
	bundle, err := bob.PreKeyBundle()
	require.NoError(t, err)

	aID, err = alice.InitSession(bundle)
	require.NoError(t, err)
	env, err := alice.Encrypt(aID, []byte("hello"))
	require.NoError(t, err)

	bID, pt, err := bob.AcceptSession(env)
	require.NoError(t, err)
	require.Equal(t, "hello", string(pt))
	return aID, bID
}

func TestPairwise_EndToEnd(t *testing.T) {
	alice, bob := newClient(t), newClient(t)
	aID, bID := connect(t, alice, bob)

	for i := 0; i < 3; i++ {
		msg := fmt.Sprintf("ping %d", i)
		env, err := alice.Encrypt(aID, []byte(msg))
		require.NoError(t, err)
		pt, err := bob.Decrypt(bID, env)
		require.NoError(t, err)
		assert.Equal(t, msg, string(pt))

		msg = fmt.Sprintf("pong %d", i)
		env, err = bob.Encrypt(bID, []byte(msg))
		require.NoError(t, err)
		pt, err = alice.Decrypt(aID, env)
		require.NoError(t, err)
		assert.Equal(t, msg, string(pt))
	}
}

func TestPairwise_OutOfOrderDelivery(t *testing.T) {
	alice, bob := newClient(t), newClient(t)
	aID, bID := connect(t, alice, bob)

	envs := make([][]byte, 5)
	for i := range envs {
		env, err := alice.Encrypt(aID, []byte(fmt.Sprintf("msg %d", i)))
		require.NoError(t, err)
		envs[i] = env
	}
	for _, i := range []int{2, 0, 4, 1, 3} {
		pt, err := bob.Decrypt(bID, envs[i])
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("msg %d", i), string(pt))
	}

	_, err := bob.Decrypt(bID, envs[2])
	assert.Error(t, err, "replay must be rejected")
}

func TestPairwise_TamperDetection(t *testing.T) {
	alice, bob := newClient(t), newClient(t)
	aID, bID := connect(t, alice, bob)

	env, err := alice.Encrypt(aID, []byte("genuine"))
	require.NoError(t, err)

	for i := 0; i < len(env); i++ {
		tampered := append([]byte(nil), env...)
		tampered[i] ^= 1
		_, err := bob.Decrypt(bID, tampered)
		assert.Error(t, err, "flipped byte %d accepted", i)
	}

	// State survives every rejected forgery.
	pt, err := bob.Decrypt(bID, env)
	require.NoError(t, err)
	assert.Equal(t, "genuine", string(pt))
}

func TestDestroySession_Idempotent(t *testing.T) {
	alice, bob := newClient(t), newClient(t)
	aID, _ := connect(t, alice, bob)

	alice.DestroySession(aID)
	alice.DestroySession(aID)

	_, err := alice.Encrypt(aID, []byte("x"))
	assert.ErrorIs(t, err, sml.ErrSessionNotFound)
}

func TestPreKeyManagement(t *testing.T) {
	c := newClient(t, sml.WithOneTimePreKeyCount(4))
	assert.Equal(t, 4, c.OneTimePreKeyCount())
	assert.Len(t, string(c.Fingerprint()), 64)

	require.NoError(t, c.RotateSignedPreKey())
	require.NoError(t, c.ReplenishOneTimePreKeys())
	assert.Equal(t, 4, c.OneTimePreKeyCount())

	// A bundle decodes on the far side and opens a session.
	other := newClient(t)
	bundle, err := c.PreKeyBundle()
	require.NoError(t, err)
	_, err = other.InitSession(bundle)
	require.NoError(t, err)
}

func TestGroup_EndToEnd(t *testing.T) {
	alice, bob, carol := newClient(t), newClient(t), newClient(t)

	bobBundle, err := bob.PreKeyBundle()
	require.NoError(t, err)
	carolBundle, err := carol.PreKeyBundle()
	require.NoError(t, err)

	gid, commit, err := alice.CreateGroup(bobBundle, carolBundle)
	require.NoError(t, err)
	bgid, err := bob.JoinGroup(commit)
	require.NoError(t, err)
	require.Equal(t, gid, bgid)
	_, err = carol.JoinGroup(commit)
	require.NoError(t, err)

	members, err := alice.GroupMembers(gid)
	require.NoError(t, err)
	assert.Len(t, members, 3)

	env, err := alice.GroupEncrypt(gid, []byte("hello everyone"))
	require.NoError(t, err)
	for _, c := range []*sml.Client{bob, carol} {
		pt, err := c.GroupDecrypt(gid, env)
		require.NoError(t, err)
		assert.Equal(t, "hello everyone", string(pt))
	}

	// Bob talks back.
	env, err = bob.GroupEncrypt(gid, []byte("hi alice"))
	require.NoError(t, err)
	pt, err := alice.GroupDecrypt(gid, env)
	require.NoError(t, err)
	assert.Equal(t, "hi alice", string(pt))
}

func TestGroup_RemovalLocksOut(t *testing.T) {
	alice, bob, carol := newClient(t), newClient(t), newClient(t)

	bobBundle, err := bob.PreKeyBundle()
	require.NoError(t, err)
	carolBundle, err := carol.PreKeyBundle()
	require.NoError(t, err)

	gid, commit, err := alice.CreateGroup(bobBundle, carolBundle)
	require.NoError(t, err)
	_, err = bob.JoinGroup(commit)
	require.NoError(t, err)
	_, err = carol.JoinGroup(commit)
	require.NoError(t, err)

	removal, err := alice.RemoveGroupMember(gid, sml.MemberID(carol.Fingerprint()))
	require.NoError(t, err)
	require.NoError(t, bob.ApplyCommit(gid, removal))
	assert.ErrorIs(t, carol.ApplyCommit(gid, removal), sml.ErrGroupNotFound)

	env, err := alice.GroupEncrypt(gid, []byte("secret"))
	require.NoError(t, err)
	pt, err := bob.GroupDecrypt(gid, env)
	require.NoError(t, err)
	assert.Equal(t, "secret", string(pt))
	_, err = carol.GroupDecrypt(gid, env)
	assert.Error(t, err, "removed member must not decrypt")
}

func TestGroup_AddMemberAndUpdate(t *testing.T) {
	alice, bob, dave := newClient(t), newClient(t), newClient(t)

	bobBundle, err := bob.PreKeyBundle()
	require.NoError(t, err)
	gid, commit, err := alice.CreateGroup(bobBundle)
	require.NoError(t, err)
	_, err = bob.JoinGroup(commit)
	require.NoError(t, err)

	daveBundle, err := dave.PreKeyBundle()
	require.NoError(t, err)
	add, err := alice.AddGroupMember(gid, daveBundle)
	require.NoError(t, err)
	require.NoError(t, bob.ApplyCommit(gid, add))
	_, err = dave.JoinGroup(add)
	require.NoError(t, err)

	update, err := bob.UpdateGroup(gid)
	require.NoError(t, err)
	require.NoError(t, alice.ApplyCommit(gid, update))
	require.NoError(t, dave.ApplyCommit(gid, update))

	env, err := dave.GroupEncrypt(gid, []byte("all caught up"))
	require.NoError(t, err)
	for _, c := range []*sml.Client{alice, bob} {
		pt, err := c.GroupDecrypt(gid, env)
		require.NoError(t, err)
		assert.Equal(t, "all caught up", string(pt))
	}
}

func TestExportImport(t *testing.T) {
	alice, bob := newClient(t), newClient(t)
	aID, bID := connect(t, alice, bob)

	blob, err := alice.Export("passphrase")
	require.NoError(t, err)

	restored, err := sml.Import(blob, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, alice.Fingerprint(), restored.Fingerprint())

	// The restored client continues the pairwise session.
	env, err := restored.Encrypt(aID, []byte("back from disk"))
	require.NoError(t, err)
	pt, err := bob.Decrypt(bID, env)
	require.NoError(t, err)
	assert.Equal(t, "back from disk", string(pt))

	_, err = sml.Import(blob, "wrong")
	assert.ErrorIs(t, err, sml.ErrAuthenticationFailed)
}

func TestExportImport_Group(t *testing.T) {
	alice, bob := newClient(t), newClient(t)

	bobBundle, err := bob.PreKeyBundle()
	require.NoError(t, err)
	gid, commit, err := alice.CreateGroup(bobBundle)
	require.NoError(t, err)
	_, err = bob.JoinGroup(commit)
	require.NoError(t, err)

	blob, err := bob.Export("pw")
	require.NoError(t, err)
	restored, err := sml.Import(blob, "pw")
	require.NoError(t, err)

	env, err := alice.GroupEncrypt(gid, []byte("persistent"))
	require.NoError(t, err)
	pt, err := restored.GroupDecrypt(gid, env)
	require.NoError(t, err)
	assert.Equal(t, "persistent", string(pt))
}
