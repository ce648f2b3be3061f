// Package domain contains core concepts of the chat relay.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Participant is a currently-present member of the room, identified by
// its unique name. LastActivity moves forward on join and heartbeat only.
type Participant struct {
	Name         string
	LastActivity time.Time
}

// StaleAt reports whether the participant missed the activity window
// ending at cutoff and should be evicted.
func (p Participant) StaleAt(cutoff time.Time) bool {
	return p.LastActivity.Before(cutoff)
}
