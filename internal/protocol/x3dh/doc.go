// Package x3dh implements the X3DH key agreement used to bootstrap a
// Double Ratchet session between two parties who need not be online at the
// same time.
//
// # Flows
//
// Initiator:
//  1. Verify the signed pre-key signature in the peer's bundle.
//  2. Generate an ephemeral X25519 key pair.
//  3. Compute DH(IKa, SPKb), DH(EKa, IKb), DH(EKa, SPKb) and, when the
//     bundle carries a one-time pre-key, DH(EKa, OPKb).
//  4. HKDF the concatenated transcript under "sml/v1 x3dh" into the
//     32-byte root key.
//
// Responder: receives the handshake block from the first envelope, looks up
// the referenced signed and one-time pre-key privates, and computes the
// mirrored DH set to the identical root key. A consumed one-time pre-key
// yields ErrPreKeyNotFound; initiators fall back to the three-DH variant.
//
// Only public material ever crosses the wire. One-time pre-keys are erased
// on first consumption.
package x3dh
