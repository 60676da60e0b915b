// Package group implements the epoch-based tree key schedule for group
// sessions.
//
// Each member holds a leaf secret; a commit re-keys the committer's leaf and
// chains a fresh path secret per tree level up to the root. The path secret
// of each level is sealed to the leaves of the copath subtree at that level,
// so every remaining member can recompute the new root secret from its
// lowest shared node while a removed member, absent from every copath,
// learns nothing. The root secret plus the epoch counter yields the epoch
// secret; per-sender message chains mirror the pairwise symmetric ratchet,
// with the tree update standing in for the DH step.
//
// Only the current epoch is retained: advancing wipes the previous epoch
// secret, sender chains, and skipped keys, so older ciphertext becomes
// undecryptable.
//
// Commits are distributed out of band by the caller and must be applied in
// epoch order. Session is NOT safe for concurrent use.
package group
