package store

import (
	"encoding/json"
	"fmt"

	"sml/internal/crypto"
	"sml/internal/domain"
	"sml/internal/services/group"
	"sml/internal/services/prekey"
	"sml/internal/services/session"
	"sml/internal/util/memzero"
)

// snapshotVersion is bumped on any incompatible layout change.
const snapshotVersion = 1

// Snapshot is the complete serializable state of a client.
type Snapshot struct {
	Version  int             `json:"version"`
	PreKeys  prekey.State    `json:"prekeys"`
	Sessions []session.State `json:"sessions,omitempty"`
	Groups   []group.State   `json:"groups,omitempty"`
}

// Encode serializes and encrypts a snapshot under the passphrase. The
// output layout is salt || nonce || ciphertext.
func Encode(s Snapshot, passphrase string) ([]byte, error) {
	s.Version = snapshotVersion
	plain, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal snapshot: %v", domain.ErrInternal, err)
	}
	defer memzero.Zero(plain)

	salt, err := crypto.RandomBytes(crypto.SaltBytes)
	if err != nil {
		return nil, err
	}
	nonce, ct, err := crypto.EncryptSecret(passphrase, plain, salt)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(salt)+len(nonce)+len(ct))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ct...)
	return out, nil
}

// Decode decrypts and deserializes a snapshot produced by Encode. A wrong
// passphrase or any altered byte fails with ErrAuthenticationFailed.
func Decode(data []byte, passphrase string) (Snapshot, error) {
	if len(data) < crypto.SaltBytes+crypto.NonceBytes+crypto.TagBytes {
		return Snapshot{}, fmt.Errorf("%w: truncated snapshot", domain.ErrInvalidInput)
	}
	salt := data[:crypto.SaltBytes]
	nonce := data[crypto.SaltBytes : crypto.SaltBytes+crypto.NonceBytes]
	ct := data[crypto.SaltBytes+crypto.NonceBytes:]

	plain, err := crypto.DecryptSecret(passphrase, salt, nonce, ct)
	if err != nil {
		return Snapshot{}, err
	}
	defer memzero.Zero(plain)

	var s Snapshot
	if err := json.Unmarshal(plain, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: malformed snapshot", domain.ErrInvalidInput)
	}
	if s.Version != snapshotVersion {
		return Snapshot{}, fmt.Errorf("%w: unsupported snapshot version %d", domain.ErrInvalidInput, s.Version)
	}
	return s, nil
}
