// utils/ids.go
package utils

import "github.com/google/uuid"

// NewID returns an opaque identifier used for rooms, players, rounds and session tokens.
func NewID() string {
	return uuid.NewString()
}
