package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := `SELECT * FROM movies WHERE genre LIKE ? AND year = ? LIMIT ?`

	assert.Equal(t, q, Wrap(nil, DriverSQLite).Rebind(q))
	assert.Equal(t,
		`SELECT * FROM movies WHERE genre LIKE $1 AND year = $2 LIMIT $3`,
		Wrap(nil, DriverPostgres).Rebind(q))
}

func TestOpen_SQLiteMigratesIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.db")
	db, err := Open(DriverSQLite, path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate(context.Background()))

	for _, table := range []string{"users", "movies", "reviews", "favorites", "watchlist", "watch_progress"} {
		var n int
		err := db.QueryRowContext(context.Background(),
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "x")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.True(t, IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)")))
	assert.False(t, IsUniqueViolation(errors.New("disk I/O error")))
}

func TestNow_MicrosecondUTC(t *testing.T) {
	n := Now()
	assert.Equal(t, 0, n.Nanosecond()%1000)
	assert.Equal(t, "UTC", n.Location().String())
}
