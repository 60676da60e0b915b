package domain

import "errors"

// Error taxonomy shared by all layers. Cryptographic verification failures
// are typed returns, never panics, and must leave committed session state
// unchanged.
var (
	// ErrInvalidInput marks malformed key, bundle, or envelope material.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidSignature marks a signed pre-key whose signature does not verify.
	ErrInvalidSignature = errors.New("invalid signed pre-key signature")

	// ErrPreKeyNotFound marks a referenced one-time pre-key that is absent or
	// already consumed.
	ErrPreKeyNotFound = errors.New("one-time pre-key not found")

	// ErrAuthenticationFailed marks an AEAD tag mismatch. Treated as untrusted
	// input, never as a fatal condition.
	ErrAuthenticationFailed = errors.New("message authentication failed")

	// ErrStaleOrReplayedMessage marks a counter or epoch below the retained
	// window.
	ErrStaleOrReplayedMessage = errors.New("stale or replayed message")

	// ErrResourceExhausted marks an exhausted skipped-key cache or pre-key pool.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrSessionNotFound marks use of a destroyed or unknown session handle.
	ErrSessionNotFound = errors.New("session not found")

	// ErrGroupNotFound marks use of a destroyed or unknown group handle.
	ErrGroupNotFound = errors.New("group not found")

	// ErrInternal marks a primitive adapter failure, fatal to the operation only.
	ErrInternal = errors.New("internal error")
)
