// Package queue defines message payloads exchanged over the message broker.
package queue

// NoteExpiredEvent is published when the sweeper soft-deletes a note that
// passed its expiration timestamp. It carries enough information for
// downstream consumers to log or notify without querying the primary
// database.
type NoteExpiredEvent struct {
	UserID    uint64 `json:"user_id"`
	NoteID    uint64 `json:"note_id"`
	ExpiredAt string `json:"expired_at"`
}
