package sml

import "sml/internal/domain"

// Every failure returned by this package wraps exactly one of these
// sentinels; callers classify with errors.Is.
var (
	// ErrInvalidInput marks malformed or out-of-contract arguments.
	ErrInvalidInput = domain.ErrInvalidInput

	// ErrInvalidSignature marks a pre-key bundle whose signed pre-key
	// fails verification against the bundled identity key.
	ErrInvalidSignature = domain.ErrInvalidSignature

	// ErrPreKeyNotFound marks a handshake referencing an unknown or
	// already-consumed pre-key.
	ErrPreKeyNotFound = domain.ErrPreKeyNotFound

	// ErrAuthenticationFailed marks a ciphertext that failed
	// authentication. No state changes when it is returned.
	ErrAuthenticationFailed = domain.ErrAuthenticationFailed

	// ErrStaleOrReplayedMessage marks a message whose key was already
	// consumed, or a commit for a past epoch.
	ErrStaleOrReplayedMessage = domain.ErrStaleOrReplayedMessage

	// ErrResourceExhausted marks a message gap beyond the skipped-key
	// limit.
	ErrResourceExhausted = domain.ErrResourceExhausted

	// ErrSessionNotFound marks an unknown or destroyed session handle.
	ErrSessionNotFound = domain.ErrSessionNotFound

	// ErrGroupNotFound marks an unknown or destroyed group handle, or a
	// group we have been removed from.
	ErrGroupNotFound = domain.ErrGroupNotFound

	// ErrInternal marks failures of the underlying primitives or the
	// system RNG.
	ErrInternal = domain.ErrInternal
)
