package models

import "github.com/google/uuid"

// NewID returns a random identifier for materials, pickups and price records.
func NewID() string {
	return uuid.NewString()
}
