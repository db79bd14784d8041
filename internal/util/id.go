package util

import "github.com/oklog/ulid/v2"

// NewRequestID returns a ULID for tagging a request in logs and responses.
// IDs from one process sort in creation order, even within a millisecond.
func NewRequestID() string {
	return ulid.Make().String()
}
