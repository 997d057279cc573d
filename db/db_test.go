package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_RetriesUntilPingSucceeds(t *testing.T) {
	dsn := "db-open-retry"
	mockDB, mock, err := sqlmock.NewWithDSN(dsn, sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectPing().WillReturnError(errors.New("the database system is starting up"))
	mock.ExpectPing()

	conn, err := Open(context.Background(), dsn, PoolOptions{
		Driver:       "sqlmock",
		PingAttempts: 3,
		PingBackoff:  time.Millisecond,
	})
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, 10, conn.Stats().MaxOpenConnections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_GivesUpAfterAttempts(t *testing.T) {
	dsn := "db-open-give-up"
	mockDB, mock, err := sqlmock.NewWithDSN(dsn, sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	_, err = Open(context.Background(), dsn, PoolOptions{
		Driver:       "sqlmock",
		MaxOpenConns: 4,
		PingAttempts: 2,
		PingBackoff:  time.Millisecond,
	})
	assert.ErrorContains(t, err, "after 2 attempt(s)")
	assert.ErrorContains(t, err, "connection refused")
}

func TestOpen_StopsWhenContextEnds(t *testing.T) {
	dsn := "db-open-cancelled"
	mockDB, mock, err := sqlmock.NewWithDSN(dsn, sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = Open(ctx, dsn, PoolOptions{
		Driver:       "sqlmock",
		PingAttempts: 5,
		PingBackoff:  time.Hour,
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPoolOptions_Defaults(t *testing.T) {
	opts := PoolOptions{MaxOpenConns: 4, MaxIdleConns: 9}.withDefaults()
	assert.Equal(t, "postgres", opts.Driver)
	assert.Equal(t, 4, opts.MaxIdleConns, "idle connections never exceed the open limit")
	assert.Equal(t, 1, opts.PingAttempts)
	assert.NotNil(t, opts.Logger)
}
