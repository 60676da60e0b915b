// Package wire serializes the fixed, versioned envelope and bundle formats.
//
// Envelope layout is a prefix (version, type, handshake block when present)
// followed by the ratchet or group header and the length-prefixed AEAD
// ciphertext. Every byte before the ciphertext length field is bound to the
// ciphertext as associated data, so a flip anywhere in the header surfaces
// as an authentication failure rather than a different plaintext.
package wire
