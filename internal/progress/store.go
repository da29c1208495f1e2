package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cinestream/cinestream/internal/catalog"
	"github.com/cinestream/cinestream/pkg/database"
	"github.com/cinestream/cinestream/pkg/models"
)

const (
	ContinueLimit       = 10
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Store keeps one watch_progress row per (user, movie).
type Store struct {
	db     *database.DB
	movies *catalog.Store
}

func NewStore(db *database.DB, movies *catalog.Store) *Store {
	return &Store{db: db, movies: movies}
}

// Update overwrites progress, duration and completed and stamps last_watched.
func (s *Store) Update(ctx context.Context, userID, movieID int64, progress, duration float64, completed bool) (*models.WatchProgress, error) {
	ok, err := s.movies.Exists(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, catalog.ErrMovieNotFound
	}

	p := &models.WatchProgress{
		UserID:      userID,
		MovieID:     movieID,
		Progress:    progress,
		Duration:    duration,
		Completed:   completed,
		LastWatched: database.Now(),
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO watch_progress (user_id, movie_id, progress, duration, completed, last_watched)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (user_id, movie_id) DO UPDATE SET
            progress = excluded.progress,
            duration = excluded.duration,
            completed = excluded.completed,
            last_watched = excluded.last_watched`,
		p.UserID, p.MovieID, p.Progress, p.Duration, p.Completed, p.LastWatched)
	if err != nil {
		return nil, fmt.Errorf("upsert progress: %w", err)
	}
	return p, nil
}

// Touch records that the user is watching the movie without changing the
// position. A missing row is created at zero.
func (s *Store) Touch(ctx context.Context, userID, movieID int64) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO watch_progress (user_id, movie_id, progress, duration, completed, last_watched)
        VALUES (?, ?, 0, 0, FALSE, ?)
        ON CONFLICT (user_id, movie_id) DO UPDATE SET last_watched = excluded.last_watched`,
		userID, movieID, database.Now())
	if err != nil {
		return fmt.Errorf("touch progress: %w", err)
	}
	return nil
}

// Get returns the stored row, or zeros when the user never watched the movie.
func (s *Store) Get(ctx context.Context, userID, movieID int64) (models.ProgressView, error) {
	var v models.ProgressView
	err := s.db.QueryRowContext(ctx,
		`SELECT progress, duration, completed FROM watch_progress WHERE user_id = ? AND movie_id = ?`,
		userID, movieID).Scan(&v.Progress, &v.Duration, &v.Completed)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProgressView{}, nil
	}
	if err != nil {
		return models.ProgressView{}, fmt.Errorf("get progress: %w", err)
	}
	return v, nil
}

// ContinueWatching lists unfinished movies, most recently watched first.
func (s *Store) ContinueWatching(ctx context.Context, userID int64) ([]models.WatchedMovie, error) {
	movies, err := s.watched(ctx, ` AND wp.completed = FALSE`, userID, ContinueLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("continue watching: %w", err)
	}
	return movies, nil
}

// History lists every watched movie, most recent first.
func (s *Store) History(ctx context.Context, userID int64, page, limit int) ([]models.WatchedMovie, error) {
	page, limit = normalizePage(page, limit)
	movies, err := s.watched(ctx, "", userID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("watch history: %w", err)
	}
	return movies, nil
}

func (s *Store) watched(ctx context.Context, filter string, userID int64, limit, offset int) ([]models.WatchedMovie, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+catalog.MovieFields+`, wp.progress, wp.duration, wp.completed, wp.last_watched
        FROM movies m
        JOIN watch_progress wp ON wp.movie_id = m.id
        WHERE wp.user_id = ?`+filter+`
        ORDER BY wp.last_watched DESC, m.id DESC
        LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.WatchedMovie{}
	for rows.Next() {
		var w models.WatchedMovie
		m, err := catalog.ScanMovie(rows, &w.Progress, &w.Duration, &w.Completed, &w.LastWatched)
		if err != nil {
			return nil, err
		}
		w.Movie = *m
		out = append(out, w)
	}
	return out, rows.Err()
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return catalog.ClampPage(page, limit), limit
}
