package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/errors"
)

func TestTransactionManager_Commit(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(sqlPrefix(`INSERT INTO "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectCommit()

	user := &entity.User{Username: "alice", Email: "a@x.com", PasswordHash: "h"}
	err := NewTransactionManager(db).Execute(context.Background(), func(f repository.RepositoryFactory) error {
		return f.UserRepo().Create(context.Background(), user)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.ID)
}

func TestTransactionManager_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := NewTransactionManager(db).Execute(context.Background(), func(repository.RepositoryFactory) error {
		return domainerrors.ErrDuplicateUsername
	})
	assert.ErrorIs(t, err, domainerrors.ErrDuplicateUsername)
}

func TestTransactionManager_RollbackFailureKeepsCause(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("connection lost"))

	err := NewTransactionManager(db).Execute(context.Background(), func(repository.RepositoryFactory) error {
		return domainerrors.ErrDuplicateEmail
	})
	assert.ErrorIs(t, err, domainerrors.ErrDuplicateEmail)
	assert.Contains(t, err.Error(), "connection lost")
}

func TestTransactionManager_RollbackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = NewTransactionManager(db).Execute(context.Background(), func(repository.RepositoryFactory) error {
			panic("boom")
		})
	})
}

func TestTransactionManager_BeginFailure(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin().WillReturnError(errors.New("no connection"))

	called := false
	err := NewTransactionManager(db).Execute(context.Background(), func(repository.RepositoryFactory) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestTransactionManager_CommitFailure(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := NewTransactionManager(db).Execute(context.Background(), func(repository.RepositoryFactory) error {
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
}
