package app

import "github.com/google/uuid"

// newID produces an opaque identifier for a new entity.
// Isolated here so the ID strategy can evolve independently.
func newID() string {
	return uuid.NewString()
}
