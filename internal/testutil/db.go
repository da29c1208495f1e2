// Package testutil provides test infrastructure shared by the service packages:
// throwaway SQLite databases, seed fixtures and HTTP helpers.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/cinestream/cinestream/pkg/database"
	"github.com/cinestream/cinestream/pkg/logger"
	"github.com/gin-gonic/gin"
)

// NewDB opens a migrated SQLite database in a temp dir. It is closed when the
// test ends.
func NewDB(t *testing.T) *database.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Init(logger.ERROR, false, nil)

	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
