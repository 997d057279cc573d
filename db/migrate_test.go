package db

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_AppliesSchema(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS profiles")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), conn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_Error(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	err = Migrate(context.Background(), conn)
	assert.ErrorContains(t, err, "failed to apply schema")
}

func TestSchema_DeclaresUniqueness(t *testing.T) {
	for _, constraint := range []string{
		"pools_password_key",
		"pool_participants_pool_id_user_id_key",
		"matches_pool_id_home_team_away_team_key",
		"predictions_match_id_user_id_key",
	} {
		assert.Contains(t, schemaSQL, constraint)
	}
}
