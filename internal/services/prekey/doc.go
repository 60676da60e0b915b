// Package prekey manages the long-term identity, the rotating signed
// pre-key, and the one-time pre-key pool used for X3DH bootstrap.
//
// The superseded signed pre-key is retained through one rotation so
// in-flight handshakes still resolve, then erased. One-time pre-key
// consumption is atomic: two handshakes racing for the same id yield
// exactly one success.
package prekey
