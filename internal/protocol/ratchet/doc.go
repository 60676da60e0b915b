// Package ratchet implements the Double Ratchet algorithm following
// Signal's design.
//
// A session keeps a root key and two message chains (send and receive).
// Every message advances its chain by one HMAC step so keys are forward
// secure; whenever the peer presents a fresh ratchet public key, a DH step
// derives new chains from a new root, giving break-in recovery. Keys
// derived while skipping over lost or reordered messages are parked in a
// bounded SkippedKeys cache and consumed at most once.
//
// Decrypt stages all chain mutations and commits them only after the AEAD
// tag verifies, so a forged message cannot move the session state. The one
// sanctioned exception is the skipped-key cache, which may retain keys
// derived on the failed attempt.
//
// Concurrency: State is NOT safe for concurrent use. Callers must serialise
// access per session.
package ratchet
