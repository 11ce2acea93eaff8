package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestDomainHealthStoreRecordFailure(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewDomainHealthStore(db)

	mock.ExpectQuery(`INSERT INTO domain_health`).
		WithArgs("slowsite.com", "timeout").
		WillReturnRows(sqlmock.NewRows([]string{"consecutive_failure_count"}).AddRow(4))

	count, err := store.RecordFailure(context.Background(), "slowsite.com", "timeout")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDomainHealthStoreRecordSuccessResetsCounter(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewDomainHealthStore(db)

	mock.ExpectExec(`INSERT INTO domain_health`).
		WithArgs("goodsite.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.RecordSuccess(context.Background(), "goodsite.com"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDomainHealthStoreIsBlacklisted(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewDomainHealthStore(db)

	mock.ExpectQuery(`SELECT auto_blacklisted FROM domain_health`).
		WithArgs("badsite.com").
		WillReturnRows(sqlmock.NewRows([]string{"auto_blacklisted"}).AddRow(true))

	blacklisted, err := store.IsBlacklisted(context.Background(), "badsite.com")
	require.NoError(t, err)
	assert.True(t, blacklisted)

	// Unknown domains are not blacklisted.
	mock.ExpectQuery(`SELECT auto_blacklisted FROM domain_health`).
		WithArgs("newsite.com").
		WillReturnRows(sqlmock.NewRows([]string{"auto_blacklisted"}))

	blacklisted, err = store.IsBlacklisted(context.Background(), "newsite.com")
	require.NoError(t, err)
	assert.False(t, blacklisted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
