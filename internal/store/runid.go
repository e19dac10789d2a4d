package store

import "github.com/google/uuid"

// RunIDGenerator hands out run identifiers.
type RunIDGenerator interface {
	NewRunID() (string, error)
}

// UUIDv7 generates time-sortable UUIDv7 run identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so identifiers
// sort by creation time. The log orders by seq; the id is only a handle.
//
// UUIDv7 is stateless and safe for concurrent use.
type UUIDv7 struct{}

// NewRunID returns a new UUIDv7 as a hyphenated string, e.g.
// "01890a5d-ac96-774b-bcce-b302099a8057".
func (UUIDv7) NewRunID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
