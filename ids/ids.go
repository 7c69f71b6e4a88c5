// Package ids generates identifiers for relay-owned rows.
package ids

import "github.com/google/uuid"

// New returns a time-ordered UUIDv7 string, so rows created later sort later
// on their identifier as well as on created_at. It falls back to a random
// UUIDv4 if the entropy source rejects the v7 draw.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
