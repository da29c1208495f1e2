package database

import (
	"context"
	"fmt"
	"strings"
)

// Migrate creates every table and index if missing. Safe to run on each start.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range db.schema() {
		if _, err := db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func (db *DB) schema() []string {
	idCol := "INTEGER PRIMARY KEY AUTOINCREMENT"
	ts := "TIMESTAMP"
	if db.driver == DriverPostgres {
		idCol = "BIGSERIAL PRIMARY KEY"
		ts = "TIMESTAMPTZ"
	}
	r := strings.NewReplacer("{{id}}", idCol, "{{ts}}", ts)

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
        id {{id}},
        username TEXT UNIQUE NOT NULL,
        email TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        is_admin BOOLEAN NOT NULL DEFAULT FALSE,
        created_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
        updated_at {{ts}} DEFAULT CURRENT_TIMESTAMP
    )`,
		`CREATE TABLE IF NOT EXISTS movies (
        id {{id}},
        title TEXT NOT NULL,
        description TEXT,
        year INTEGER,
        genre TEXT NOT NULL,
        duration INTEGER,
        director TEXT,
        cast_members TEXT,
        video_path TEXT NOT NULL,
        thumbnail_path TEXT NOT NULL,
        created_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
        updated_at {{ts}} DEFAULT CURRENT_TIMESTAMP
    )`,
		`CREATE TABLE IF NOT EXISTS reviews (
        id {{id}},
        user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        movie_id BIGINT NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
        rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
        comment TEXT,
        created_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
        updated_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
        UNIQUE (user_id, movie_id)
    )`,
		`CREATE TABLE IF NOT EXISTS favorites (
        user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        movie_id BIGINT NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
        added_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (user_id, movie_id)
    )`,
		`CREATE TABLE IF NOT EXISTS watchlist (
        user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        movie_id BIGINT NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
        added_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (user_id, movie_id)
    )`,
		`CREATE TABLE IF NOT EXISTS watch_progress (
        user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
        movie_id BIGINT NOT NULL REFERENCES movies(id) ON DELETE CASCADE,
        progress DOUBLE PRECISION NOT NULL DEFAULT 0,
        duration DOUBLE PRECISION NOT NULL DEFAULT 0,
        completed BOOLEAN NOT NULL DEFAULT FALSE,
        last_watched {{ts}} DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (user_id, movie_id)
    )`,
		`CREATE INDEX IF NOT EXISTS idx_movies_title ON movies(title)`,
		`CREATE INDEX IF NOT EXISTS idx_movies_year ON movies(year)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_movie ON reviews(movie_id)`,
		`CREATE INDEX IF NOT EXISTS idx_favorites_movie ON favorites(movie_id)`,
		`CREATE INDEX IF NOT EXISTS idx_watch_progress_recent ON watch_progress(user_id, last_watched)`,
	}

	for i, s := range stmts {
		stmts[i] = r.Replace(s)
	}
	return stmts
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i > 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
