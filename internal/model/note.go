package model

import "time"

// Limits enforced on note fields at create/update time.
const (
	MaxTitleLen   = 120
	MaxContentLen = 255
)

// Note is one immutable version of a note as stored in the `notes`
// table. A logical note is the set of rows sharing an ID; each edit
// inserts a new row with the next version number and never touches
// existing rows. The composite key is (ID, Version).
//
// Fields:
//  ID        – logical note identifier, drawn from a sequence at creation
//              and constant across versions.
//  Version   – 1 for the initial insert, +1 per edit.
//  Title     – note title, at most MaxTitleLen characters.
//  Content   – note body, at most MaxContentLen characters.
//  CreatedAt – server-assigned insert timestamp (UTC); also the cursor
//              for paginated listings.
//  ExpiresAt – optional expiration; the sweeper soft-deletes notes past it.
type Note struct {
	ID        uint64     `json:"id"`
	Version   uint64     `json:"version"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"creation_date"`
	ExpiresAt *time.Time `json:"expiration_date,omitempty"`
}

// UserNote is the per-(user, note) ownership and activity pointer row in
// the `user_notes` table. ActiveVersion names the version currently
// considered current for the user; Deleted hides the note from active
// listings without touching version history.
type UserNote struct {
	UserID        uint64 `json:"user_id"`
	NoteID        uint64 `json:"note_id"`
	ActiveVersion uint64 `json:"active_version"`
	Deleted       bool   `json:"deleted"`
}
