package database

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/toll-settlement/internal/config"
)

func TestStatements(t *testing.T) {
	stmts := Statements()
	require.Len(t, stmts, 6)
	for _, s := range stmts {
		assert.True(t, strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS"), s)
	}
	assert.Contains(t, stmts[3], "ENUM('home','visitor')")
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range Statements() {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS")).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("boom"))

	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate statement 2")
}

func TestDSN(t *testing.T) {
	cfg := config.Config{DBUser: "toll", DBHost: "db", DBPort: "3306", DBName: "settlement"}
	assert.Equal(t, "toll@tcp(db:3306)/settlement?charset=utf8mb4&parseTime=true&loc=UTC", DSN(cfg))

	cfg.DBPass = "secret"
	assert.Equal(t, "toll:secret@tcp(db:3306)/settlement?charset=utf8mb4&parseTime=true&loc=UTC", DSN(cfg))
}

func TestDescribeOmitsPassword(t *testing.T) {
	cfg := config.Config{DBUser: "toll", DBPass: "secret", DBHost: "db", DBPort: "3306", DBName: "settlement"}
	assert.Equal(t, "mysql://toll@db:3306/settlement", Describe(cfg))
}
