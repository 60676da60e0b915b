package wire

import (
	"encoding/json"
	"fmt"

	"sml/internal/domain"
)

// Commits are control-plane values distributed out of band, so they use a
// versioned JSON encoding rather than the packed message format.
type commitWrapper struct {
	V      int                `json:"v"`
	Commit domain.GroupCommit `json:"commit"`
}

// EncodeCommit serializes a group commit.
func EncodeCommit(c domain.GroupCommit) ([]byte, error) {
	return json.Marshal(commitWrapper{V: Version, Commit: c})
}

// DecodeCommit parses a group commit produced by EncodeCommit. Identifiers
// longer than the packed header format can carry are rejected, so a commit
// can never install an id that the group header would encode lossily.
func DecodeCommit(data []byte) (domain.GroupCommit, error) {
	var w commitWrapper
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.GroupCommit{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if w.V != Version {
		return domain.GroupCommit{}, fmt.Errorf("%w: unsupported commit version %d", domain.ErrInvalidInput, w.V)
	}
	c := w.Commit
	if len(c.Group) > maxIDLen {
		return domain.GroupCommit{}, fmt.Errorf("%w: group id exceeds %d bytes", domain.ErrInvalidInput, maxIDLen)
	}
	if len(c.Committer) > maxIDLen {
		return domain.GroupCommit{}, fmt.Errorf("%w: committer id exceeds %d bytes", domain.ErrInvalidInput, maxIDLen)
	}
	for _, m := range c.Members {
		if len(m.ID) > maxIDLen {
			return domain.GroupCommit{}, fmt.Errorf("%w: member id exceeds %d bytes", domain.ErrInvalidInput, maxIDLen)
		}
	}
	return c, nil
}
