package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenDefaultsToSQLite(t *testing.T) {
	db, err := Open(Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	require.True(t, db.Migrator().HasTable("hadbit_items"))
	require.True(t, db.Migrator().HasTable("hadbit_trees"))
	require.True(t, db.Migrator().HasTable("hadbit_logs"))
	require.True(t, db.Migrator().HasTable("mail_to_id"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		Driver:   "postgres",
		Host:     "db.internal",
		Port:     5433,
		Name:     "hadbit",
		User:     "hadbit",
		Password: "secret",
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=db.internal")
	require.Contains(t, dsn, "port=5433")
	require.Contains(t, dsn, "sslmode=disable")
}

func TestBuildMySQLDSNRequiresCredentials(t *testing.T) {
	_, err := buildMySQLDSN(Config{Driver: "mysql"})
	require.Error(t, err)

	dsn, err := buildMySQLDSN(Config{Driver: "mysql", Name: "hadbit", User: "root"})
	require.NoError(t, err)
	require.Contains(t, dsn, "root@tcp(127.0.0.1:3306)/hadbit")
	require.Contains(t, dsn, "parseTime=True")
}
