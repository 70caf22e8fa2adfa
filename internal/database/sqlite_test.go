package database

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestConn(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "tx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)")
	require.NoError(t, err)
	return conn
}

func TestTransactionCommits(t *testing.T) {
	conn := openTestConn(t)

	err := Transaction(conn, func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO notes (body) VALUES ('hello')")
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM notes").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	conn := openTestConn(t)

	err := Transaction(conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO notes (body) VALUES ('doomed')"); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM notes").Scan(&count))
	assert.Zero(t, count)
}
