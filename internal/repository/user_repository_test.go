package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardato/secure-notes/internal/model"
)

func newUserRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(db), mock
}

func userRows(id uint64, username string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "created_at"}).
		AddRow(id, username, "$2a$10$hash", model.RoleUser, time.Now().UTC())
}

func TestCreateNormalizesUsername(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("alice@example.com", "$2a$10$hash", model.RoleUser).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery("SELECT id,username,password_hash,role,created_at FROM users WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(userRows(5, "alice@example.com"))

	u, err := repo.Create(context.Background(), "  Alice@Example.COM ", "$2a$10$hash", model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), u.ID)
	assert.Equal(t, "alice@example.com", u.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateUsername(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errMySQLDuplicate)

	_, err := repo.Create(context.Background(), "alice@example.com", "$2a$10$hash", model.RoleUser)
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestGetByUsernameAbsent(t *testing.T) {
	repo, mock := newUserRepo(t)

	mock.ExpectQuery("SELECT id,username,password_hash,role,created_at FROM users WHERE username=").
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "created_at"}))

	_, err := repo.GetByUsername(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
