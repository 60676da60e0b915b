// Package session owns the lifecycle of pairwise Double Ratchet sessions
// behind opaque handles: X3DH bootstrap on both sides, per-handle
// serialization, envelope encode/decode, and destruction with key erasure.
package session
