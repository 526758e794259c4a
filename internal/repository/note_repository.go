package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ardato/secure-notes/internal/model"
)

// NoteRepo provides versioned note storage over three tables:
//
//	note_seq   – AUTO_INCREMENT source for logical note ids
//	notes      – append-only (id, version) rows, write-once
//	user_notes – per-(user, note) active-version pointer + deleted flag
//
// Every mutation that inserts a notes row also moves the user_notes
// pointer inside the same transaction, so a version and its pointer can
// never diverge. Reads join the two tables so results are always scoped
// to the calling user.
type NoteRepo struct {
	DB        *sql.DB
	PageLimit int // configured default and cap for list operations
}

func NewNoteRepo(db *sql.DB, pageLimit int) *NoteRepo {
	return &NoteRepo{DB: db, PageLimit: pageLimit}
}

// noteColumns is the select list shared by every query returning notes.
const noteColumns = "n.id, n.version, n.title, n.content, n.created_at, n.expires_at"

// Create validates the note, draws the next id from the sequence and
// inserts version 1 together with its user_notes pointer row. The two
// inserts commit atomically.
func (r *NoteRepo) Create(ctx context.Context, userID uint64, title, content string, expiresAt *time.Time) (model.Note, error) {
	if err := validateNote(title, content); err != nil {
		return model.Note{}, err
	}
	now := time.Now().UTC()
	if expiresAt != nil && expiresAt.Before(now) {
		return model.Note{}, fmt.Errorf("%w: Expiration date cannot be in the past", ErrInvalidNote)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Note{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "INSERT INTO note_seq () VALUES ()")
	if err != nil {
		return model.Note{}, err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return model.Note{}, err
	}
	noteID := uint64(seq)

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO notes (id, version, title, content, created_at, expires_at) VALUES (?,1,?,?,?,?)",
		noteID, title, content, now, expiresAt); err != nil {
		return model.Note{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_notes (user_id, note_id, active_version, deleted) VALUES (?,?,1,0)
		 ON DUPLICATE KEY UPDATE active_version=1, deleted=0`,
		userID, noteID); err != nil {
		return model.Note{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Note{}, err
	}
	return model.Note{ID: noteID, Version: 1, Title: title, Content: content, CreatedAt: now, ExpiresAt: expiresAt}, nil
}

// Update inserts the next version of a note and bumps the user's active
// pointer to it, clearing the deleted flag (editing undeletes). The
// pointer row is read FOR UPDATE so concurrent updates to the same
// (user, note) pair serialize; should another writer still slip in the
// same version, the write-once primary key turns it into ErrConflict
// instead of a duplicate version.
func (r *NoteRepo) Update(ctx context.Context, userID, noteID uint64, title, content string) (model.Note, error) {
	if err := validateNote(title, content); err != nil {
		return model.Note{}, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Note{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var active uint64
	err = tx.QueryRowContext(ctx,
		"SELECT active_version FROM user_notes WHERE user_id=? AND note_id=? FOR UPDATE",
		userID, noteID).Scan(&active)
	if err == sql.ErrNoRows {
		return model.Note{}, ErrNotFound
	}
	if err != nil {
		return model.Note{}, err
	}

	// Carry the expiration forward from the currently active version.
	var expiresAt sql.NullTime
	err = tx.QueryRowContext(ctx,
		"SELECT expires_at FROM notes WHERE id=? AND version=?",
		noteID, active).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return model.Note{}, ErrNotFound
	}
	if err != nil {
		return model.Note{}, err
	}

	next := active + 1
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO notes (id, version, title, content, created_at, expires_at) VALUES (?,?,?,?,?,?)",
		noteID, next, title, content, now, nullableTime(expiresAt)); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.Note{}, ErrConflict
		}
		return model.Note{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE user_notes SET active_version=?, deleted=0 WHERE user_id=? AND note_id=?",
		next, userID, noteID); err != nil {
		return model.Note{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Note{}, err
	}
	return model.Note{ID: noteID, Version: next, Title: title, Content: content, CreatedAt: now, ExpiresAt: nullableTime(expiresAt)}, nil
}

// Delete soft-deletes the note for this user by flipping the pointer's
// deleted flag. Historical versions stay untouched and deleting an
// already-deleted note is a no-op.
func (r *NoteRepo) Delete(ctx context.Context, userID, noteID uint64) error {
	var deleted bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT deleted FROM user_notes WHERE user_id=? AND note_id=? LIMIT 1",
		userID, noteID).Scan(&deleted)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if deleted {
		return nil
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE user_notes SET deleted=1 WHERE user_id=? AND note_id=?",
		userID, noteID)
	return err
}

// Get returns the note at the user's active version regardless of the
// deleted flag.
func (r *NoteRepo) Get(ctx context.Context, userID, noteID uint64) (model.Note, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+noteColumns+` FROM notes n
		 JOIN user_notes un ON un.note_id=n.id AND un.active_version=n.version
		 WHERE un.user_id=? AND n.id=? LIMIT 1`,
		userID, noteID)
	return scanNote(row)
}

// GetVersion returns one historical version of a note owned by the user.
func (r *NoteRepo) GetVersion(ctx context.Context, userID, noteID, version uint64) (model.Note, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+noteColumns+` FROM notes n
		 JOIN user_notes un ON un.note_id=n.id
		 WHERE un.user_id=? AND n.id=? AND n.version=? LIMIT 1`,
		userID, noteID, version)
	return scanNote(row)
}

// ListActive returns non-deleted notes at their active version, newest
// first, strictly older than cursor.
func (r *NoteRepo) ListActive(ctx context.Context, userID uint64, cursor *time.Time, limit *int) ([]model.Note, error) {
	return r.listByDeleted(ctx, userID, cursor, limit, "un.deleted=0")
}

// ListDeleted returns soft-deleted notes at their active version.
func (r *NoteRepo) ListDeleted(ctx context.Context, userID uint64, cursor *time.Time, limit *int) ([]model.Note, error) {
	return r.listByDeleted(ctx, userID, cursor, limit, "un.deleted=1")
}

// ListAll returns both active and deleted notes at their active version.
func (r *NoteRepo) ListAll(ctx context.Context, userID uint64, cursor *time.Time, limit *int) ([]model.Note, error) {
	return r.listByDeleted(ctx, userID, cursor, limit, "1=1")
}

func (r *NoteRepo) listByDeleted(ctx context.Context, userID uint64, cursor *time.Time, limit *int, cond string) ([]model.Note, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+noteColumns+` FROM notes n
		 JOIN user_notes un ON un.note_id=n.id AND un.active_version=n.version
		 WHERE un.user_id=? AND `+cond+` AND n.created_at < ?
		 ORDER BY n.created_at DESC LIMIT ?`,
		userID, r.cursorOrNow(cursor), r.effectiveLimit(limit))
	if err != nil {
		return nil, err
	}
	return scanNotes(rows)
}

// ListVersions returns every historical version of one note, newest
// first, with the same cursor convention as the other listings.
func (r *NoteRepo) ListVersions(ctx context.Context, userID, noteID uint64, cursor *time.Time, limit *int) ([]model.Note, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+noteColumns+` FROM notes n
		 JOIN user_notes un ON un.note_id=n.id
		 WHERE un.user_id=? AND n.id=? AND n.created_at < ?
		 ORDER BY n.created_at DESC LIMIT ?`,
		userID, noteID, r.cursorOrNow(cursor), r.effectiveLimit(limit))
	if err != nil {
		return nil, err
	}
	return scanNotes(rows)
}

// ExpiredNote identifies one (user, note) pair whose active version has
// passed its expiration. The sweeper feeds these back into Delete.
type ExpiredNote struct {
	UserID uint64
	NoteID uint64
}

// FindExpired returns up to limit non-deleted notes whose expiration
// timestamp is before now. Sweeps pass a fixed "now" so repeated pages
// within one run cover a bounded set.
func (r *NoteRepo) FindExpired(ctx context.Context, now time.Time, limit int) ([]ExpiredNote, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT un.user_id, n.id FROM notes n
		 JOIN user_notes un ON un.note_id=n.id AND un.active_version=n.version
		 WHERE un.deleted=0 AND n.expires_at IS NOT NULL AND n.expires_at < ?
		 LIMIT ?`,
		now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExpiredNote
	for rows.Next() {
		var e ExpiredNote
		if err := rows.Scan(&e.UserID, &e.NoteID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// effectiveLimit clamps a requested page size to the configured cap; a
// client can ask for fewer rows, never more.
func (r *NoteRepo) effectiveLimit(limit *int) int {
	if limit == nil || *limit > r.PageLimit || *limit < 1 {
		return r.PageLimit
	}
	return *limit
}

func (r *NoteRepo) cursorOrNow(cursor *time.Time) time.Time {
	if cursor == nil {
		return time.Now().UTC()
	}
	return cursor.UTC()
}

// validateNote enforces the field limits in characters, not bytes, so
// multibyte text gets the same budget as ASCII.
func validateNote(title, content string) error {
	if utf8.RuneCountInString(title) > model.MaxTitleLen {
		return fmt.Errorf("%w: Note title cannot exceed %d characters", ErrInvalidNote, model.MaxTitleLen)
	}
	if utf8.RuneCountInString(content) > model.MaxContentLen {
		return fmt.Errorf("%w: Note content cannot exceed %d characters", ErrInvalidNote, model.MaxContentLen)
	}
	return nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (model.Note, error) {
	var n model.Note
	var expiresAt sql.NullTime
	err := row.Scan(&n.ID, &n.Version, &n.Title, &n.Content, &n.CreatedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return model.Note{}, ErrNotFound
	}
	if err != nil {
		return model.Note{}, err
	}
	n.ExpiresAt = nullableTime(expiresAt)
	return n, nil
}

func scanNotes(rows *sql.Rows) ([]model.Note, error) {
	defer rows.Close()
	var out []model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
