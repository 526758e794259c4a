package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNoteRepo(t *testing.T) (*NoteRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewNoteRepo(db, 1000), mock
}

func TestCreateInsertsVersionOneAtomically(t *testing.T) {
	repo, mock := newNoteRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO note_seq").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO notes").
		WithArgs(uint64(7), "t", "c", sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_notes").
		WithArgs(uint64(3), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := repo.Create(context.Background(), 3, "t", "c", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n.ID)
	assert.Equal(t, uint64(1), n.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsOversizedFields(t *testing.T) {
	repo, _ := newNoteRepo(t)

	long := make([]byte, 121)
	for i := range long {
		long[i] = 'x'
	}
	_, err := repo.Create(context.Background(), 3, string(long), "c", nil)
	assert.ErrorIs(t, err, ErrInvalidNote)

	long = make([]byte, 256)
	for i := range long {
		long[i] = 'x'
	}
	_, err = repo.Create(context.Background(), 3, "t", string(long), nil)
	assert.ErrorIs(t, err, ErrInvalidNote)
}

func TestCreateCountsCharactersNotBytes(t *testing.T) {
	repo, mock := newNoteRepo(t)

	// Exactly at the limits in characters, twice that in bytes.
	title := strings.Repeat("é", 120)
	content := strings.Repeat("ü", 255)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO note_seq").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO notes").
		WithArgs(uint64(7), title, content, sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_notes").
		WithArgs(uint64(3), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := repo.Create(context.Background(), 3, title, content, nil)
	require.NoError(t, err)

	// One character over is still rejected, multibyte or not.
	_, err = repo.Create(context.Background(), 3, strings.Repeat("é", 121), "c", nil)
	assert.ErrorIs(t, err, ErrInvalidNote)
	_, err = repo.Create(context.Background(), 3, "t", strings.Repeat("ü", 256), nil)
	assert.ErrorIs(t, err, ErrInvalidNote)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsPastExpiration(t *testing.T) {
	repo, _ := newNoteRepo(t)

	past := time.Now().UTC().Add(-time.Hour)
	_, err := repo.Create(context.Background(), 3, "t", "c", &past)
	assert.ErrorIs(t, err, ErrInvalidNote)
	assert.Contains(t, err.Error(), "Expiration date cannot be in the past")
}

func TestUpdateBumpsVersionAndRestores(t *testing.T) {
	repo, mock := newNoteRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT active_version FROM user_notes").
		WithArgs(uint64(3), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"active_version"}).AddRow(2))
	mock.ExpectQuery("SELECT expires_at FROM notes").
		WithArgs(uint64(7), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"expires_at"}).AddRow(nil))
	mock.ExpectExec("INSERT INTO notes").
		WithArgs(uint64(7), uint64(3), "t2", "c2", sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE user_notes SET active_version").
		WithArgs(uint64(3), uint64(3), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := repo.Update(context.Background(), 3, 7, "t2", "c2")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n.ID)
	assert.Equal(t, uint64(3), n.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUnknownNoteIsNotFound(t *testing.T) {
	repo, mock := newNoteRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT active_version FROM user_notes").
		WithArgs(uint64(3), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"active_version"}))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), 3, 7, "t", "c")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateDuplicateVersionIsConflict(t *testing.T) {
	repo, mock := newNoteRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT active_version FROM user_notes").
		WithArgs(uint64(3), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"active_version"}).AddRow(1))
	mock.ExpectQuery("SELECT expires_at FROM notes").
		WithArgs(uint64(7), uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"expires_at"}).AddRow(nil))
	mock.ExpectExec("INSERT INTO notes").
		WillReturnError(errMySQLDuplicate)
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), 3, 7, "t", "c")
	assert.ErrorIs(t, err, ErrConflict)
}

type mysqlDupErr struct{}

func (mysqlDupErr) Error() string { return "Error 1062 (23000): Duplicate entry '7-2'" }

var errMySQLDuplicate error = mysqlDupErr{}

func TestDeleteIsIdempotent(t *testing.T) {
	repo, mock := newNoteRepo(t)

	// First delete flips the flag.
	mock.ExpectQuery("SELECT deleted FROM user_notes").
		WithArgs(uint64(3), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"deleted"}).AddRow(false))
	mock.ExpectExec("UPDATE user_notes SET deleted=1").
		WithArgs(uint64(3), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 3, 7))

	// Second delete sees deleted=1 and does nothing.
	mock.ExpectQuery("SELECT deleted FROM user_notes").
		WithArgs(uint64(3), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"deleted"}).AddRow(true))

	require.NoError(t, repo.Delete(context.Background(), 3, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUnknownNoteIsNotFound(t *testing.T) {
	repo, mock := newNoteRepo(t)

	mock.ExpectQuery("SELECT deleted FROM user_notes").
		WithArgs(uint64(3), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"deleted"}))

	assert.ErrorIs(t, repo.Delete(context.Background(), 3, 7), ErrNotFound)
}

func TestListActiveClampsLimit(t *testing.T) {
	repo, mock := newNoteRepo(t)
	repo.PageLimit = 50

	over := 500
	mock.ExpectQuery("SELECT n.id, n.version").
		WithArgs(uint64(3), sqlmock.AnyArg(), 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "title", "content", "created_at", "expires_at"}))

	_, err := repo.ListActive(context.Background(), 3, nil, &over)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActivePassesCursorThrough(t *testing.T) {
	repo, mock := newNoteRepo(t)

	cursor := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	// The comparison must stay strictly-less-than: pages never repeat the
	// row the cursor was taken from.
	mock.ExpectQuery(`n\.created_at < \?`).
		WithArgs(uint64(3), cursor, 1000).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "title", "content", "created_at", "expires_at"}))

	_, err := repo.ListActive(context.Background(), 3, &cursor, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListVersionsPassesCursorThrough(t *testing.T) {
	repo, mock := newNoteRepo(t)

	cursor := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	mock.ExpectQuery(`n\.created_at < \?`).
		WithArgs(uint64(3), uint64(7), cursor, 1000).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "title", "content", "created_at", "expires_at"}))

	_, err := repo.ListVersions(context.Background(), 3, 7, &cursor, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReturnsActiveVersion(t *testing.T) {
	repo, mock := newNoteRepo(t)

	created := time.Now().UTC().Add(-time.Hour)
	mock.ExpectQuery("SELECT n.id, n.version").
		WithArgs(uint64(3), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "title", "content", "created_at", "expires_at"}).
			AddRow(7, 2, "t", "c", created, nil))

	n, err := repo.Get(context.Background(), 3, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n.Version)
	assert.Nil(t, n.ExpiresAt)
}

func TestGetUnknownNoteIsNotFound(t *testing.T) {
	repo, mock := newNoteRepo(t)

	mock.ExpectQuery("SELECT n.id, n.version").
		WithArgs(uint64(3), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "title", "content", "created_at", "expires_at"}))

	_, err := repo.Get(context.Background(), 3, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindExpired(t *testing.T) {
	repo, mock := newNoteRepo(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT un.user_id, n.id FROM notes").
		WithArgs(now, 100).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "id"}).AddRow(3, 7).AddRow(4, 9))

	expired, err := repo.FindExpired(context.Background(), now, 100)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	assert.Equal(t, ExpiredNote{UserID: 3, NoteID: 7}, expired[0])
}
