// Package sml is a secure-messaging core: asynchronous session
// establishment from published pre-key bundles, forward-secret pairwise
// channels with a double ratchet, and epoch-keyed groups with a tree key
// schedule. The package moves bytes, not messages; callers bring their
// own transport and delivery order, and every envelope is self-framing.
package sml

import (
	"sync"

	"github.com/sirupsen/logrus"

	"sml/internal/domain"
	"sml/internal/services/group"
	"sml/internal/services/prekey"
	"sml/internal/services/session"
	"sml/internal/store"
	"sml/internal/wire"
)

// SessionID identifies a pairwise session held by a client.
type SessionID = domain.SessionID

// GroupID identifies a group held by a client.
type GroupID = domain.GroupID

// MemberID identifies a member inside a group. This package uses the
// hex fingerprint of the member's identity key.
type MemberID = domain.MemberID

// Fingerprint is the hex digest a user compares out of band.
type Fingerprint = domain.Fingerprint

// Client owns one identity and every session and group built on it.
// All methods are safe for concurrent use.
type Client struct {
	mu sync.Mutex

	prekeys  *prekey.Service
	sessions *session.Service
	groups   *group.Service

	cfg Config
	log *logrus.Entry
}

// NewClient generates a fresh identity and an initial pre-key set.
func NewClient(opts ...Option) (*Client, error) {
	cfg := buildConfig(opts)
	log := logrus.NewEntry(cfg.Logger)

	pk, err := prekey.New(log, cfg.OneTimePreKeyCount)
	if err != nil {
		return nil, err
	}
	return newClient(cfg, log, pk), nil
}

func newClient(cfg Config, log *logrus.Entry, pk *prekey.Service) *Client {
	selfID := domain.MemberID(pk.Fingerprint())
	return &Client{
		prekeys:  pk,
		sessions: session.New(log, pk, cfg.MaxSkippedKeys),
		groups:   group.New(log, selfID, cfg.MaxSkippedKeys),
		cfg:      cfg,
		log:      log,
	}
}

// Fingerprint returns the hex digest of this client's X25519 identity
// key, for out-of-band verification. It matches the member id other
// clients see for this client in groups.
func (c *Client) Fingerprint() Fingerprint {
	return c.prekeys.Fingerprint()
}

// PreKeyBundle returns an encoded bundle to publish. Each call claims at
// most one one-time pre-key from the pool; when the pool runs dry it is
// replenished first.
func (c *Client) PreKeyBundle() ([]byte, error) {
	b, err := c.prekeys.Bundle()
	if err != nil {
		return nil, err
	}
	return wire.EncodeBundle(b)
}

// RotateSignedPreKey replaces the signed pre-key. The previous one keeps
// serving in-flight handshakes until the next rotation.
func (c *Client) RotateSignedPreKey() error {
	return c.prekeys.RotateSignedPreKey()
}

// ReplenishOneTimePreKeys tops the one-time pre-key pool back up to the
// configured size.
func (c *Client) ReplenishOneTimePreKeys() error {
	return c.prekeys.Replenish(c.cfg.OneTimePreKeyCount)
}

// OneTimePreKeyCount reports how many unclaimed one-time pre-keys remain.
func (c *Client) OneTimePreKeyCount() int {
	return c.prekeys.PoolSize()
}

// InitSession establishes a pairwise session toward the owner of an
// encoded pre-key bundle. Messages can be encrypted immediately; the
// handshake rides inside the first envelopes.
func (c *Client) InitSession(bundle []byte) (SessionID, error) {
	b, err := wire.DecodeBundle(bundle)
	if err != nil {
		return "", err
	}
	return c.sessions.Initiate(b)
}

// AcceptSession establishes a pairwise session from the first envelope of
// an unknown peer and returns the handle and the decrypted first message.
func (c *Client) AcceptSession(envelope []byte) (SessionID, []byte, error) {
	return c.sessions.Accept(envelope)
}

// Encrypt seals plaintext for a pairwise session into a wire envelope.
func (c *Client) Encrypt(id SessionID, plaintext []byte) ([]byte, error) {
	return c.sessions.Encrypt(id, plaintext)
}

// Decrypt opens a pairwise wire envelope. Envelopes may arrive out of
// order within the configured skipped-key bound; a failed authentication
// leaves the session exactly as it was.
func (c *Client) Decrypt(id SessionID, envelope []byte) ([]byte, error) {
	return c.sessions.Decrypt(id, envelope)
}

// DestroySession erases a pairwise session's secrets and retires the
// handle. Destroying an unknown or already-destroyed handle is a no-op.
func (c *Client) DestroySession(id SessionID) {
	c.sessions.Destroy(id)
}

// Close wipes every session, group, and pre-key the client holds.
func (c *Client) Close() {
	c.sessions.DestroyAll()
	c.groups.DestroyAll()
	c.prekeys.Wipe()
}

// Export serializes the client's complete state, encrypted under the
// passphrase. The client remains usable afterwards.
func (c *Client) Export(passphrase string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return store.Encode(store.Snapshot{
		PreKeys:  c.prekeys.Snapshot(),
		Sessions: c.sessions.Snapshot(),
		Groups:   c.groups.Snapshot(),
	}, passphrase)
}

// Import restores a client from a blob produced by Export. A wrong
// passphrase or tampered blob fails with ErrAuthenticationFailed.
func Import(data []byte, passphrase string, opts ...Option) (*Client, error) {
	snap, err := store.Decode(data, passphrase)
	if err != nil {
		return nil, err
	}
	cfg := buildConfig(opts)
	log := logrus.NewEntry(cfg.Logger)

	c := newClient(cfg, log, prekey.Restore(log, snap.PreKeys))
	c.sessions.Restore(snap.Sessions)
	c.groups.Restore(snap.Groups)
	return c, nil
}
