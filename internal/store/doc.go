// Package store serializes a client's full state for durable export and
// restores it on import. The snapshot is JSON encrypted under a
// passphrase-derived key with Argon2id and ChaCha20-Poly1305; the salt
// and nonce travel in the blob so import needs only the passphrase.
package store
