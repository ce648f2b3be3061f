// Package domain contains core concepts of the chat relay.
// This file defines Message events and the per-requester visibility rule.
// Messages are immutable and the log they live in is append-only.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Broadcast is the distinguished recipient meaning "everyone in the room".
const Broadcast = "Todos"

// Category classifies a message on the wire.
type Category string

const (
	CategoryChat    Category = "message"
	CategoryPrivate Category = "private_message"
	CategoryStatus  Category = "status"
)

// Postable reports whether a user may post the category.
// Status notices are system-generated only.
func (c Category) Postable() bool {
	return c == CategoryChat || c == CategoryPrivate
}

// Message represents an immutable chat event.
type Message struct {
	ID        uuid.UUID // unique identifier
	From      string
	To        string // participant name or Broadcast
	Text      string
	Category  Category
	CreatedAt time.Time
}

func (m Message) IsBroadcast() bool {
	return m.To == Broadcast
}

// VisibleTo reports whether user is entitled to see the message:
// broadcasts are visible to everyone, private traffic only to its two
// endpoints. The user does not need to be currently registered.
func (m Message) VisibleTo(user string) bool {
	return m.IsBroadcast() || m.From == user || m.To == user
}
