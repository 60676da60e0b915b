// Package crypto wraps the primitive suite used by the protocol layer:
// X25519 Diffie-Hellman, HKDF-SHA256 and HMAC-SHA256 derivation,
// ChaCha20-Poly1305 AEAD, and Ed25519 signatures. All functions are pure;
// key lifecycle is the caller's concern.
//
// Derivation labels are fixed "sml/v1 ..." strings; interoperability depends
// on them bit-for-bit.
package crypto
