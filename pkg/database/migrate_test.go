package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLoadMigrations_Ordering(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_tenancies.sql": {Data: []byte("CREATE TABLE b ();")},
		"m/001_init.sql":      {Data: []byte("CREATE TABLE a ();")},
		"m/README.md":         {Data: []byte("ignored")},
	}
	migrations, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, Migration{Version: "001", Name: "init", SQL: "CREATE TABLE a ();"}, migrations[0])
	assert.Equal(t, "tenancies", migrations[1].Name)
}

func TestLoadMigrations_BadName(t *testing.T) {
	_, err := loadMigrations(fstest.MapFS{"m/init.sql": {Data: []byte("")}}, "m")
	assert.Error(t, err)
}

func TestLoadMigrations_Embedded(t *testing.T) {
	migrations, err := LoadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS memberships")
}

func TestApply(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	migrations := []Migration{
		{Version: "001", Name: "init", SQL: "CREATE TABLE a ()"},
		{Version: "002", Name: "more", SQL: "CREATE TABLE b ()"},
	}

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM schema_migrations")).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow("001"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b ()")).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations")).
		WithArgs("002", "more").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := apply(context.Background(), mock, migrations, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_FailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM schema_migrations")).
		WillReturnRows(pgxmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE broken")).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	n, err := apply(context.Background(), mock, []Migration{{Version: "001", Name: "broken", SQL: "CREATE TABLE broken"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_broken")
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPool_RequiresConnString(t *testing.T) {
	_, err := NewPool(context.Background(), PoolConfig{}, nil)
	assert.Error(t, err)
}
