// Package uuidx generates time ordered identifiers.
package uuidx

import "github.com/google/uuid"

// NewString returns a version 7 UUID. Responses that arrive without an id get one of these.
func NewString() string {
	return uuid.Must(uuid.NewV7()).String()
}
