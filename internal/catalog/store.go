package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cinestream/cinestream/pkg/database"
	"github.com/cinestream/cinestream/pkg/models"
)

var ErrMovieNotFound = errors.New("movie not found")

const (
	FeaturedLimit    = 10
	GenreLimit       = 20
	RecommendedLimit = 10
	DetailReviews    = 20
)

// Collection is one of the per-user movie lists.
type Collection string

const (
	Favorites Collection = "favorites"
	Watchlist Collection = "watchlist"
)

const movieColumns = `m.id, m.title, m.description, m.year, m.genre, m.duration, m.director,
    m.cast_members, m.video_path, m.thumbnail_path, m.created_at, m.updated_at`

// MovieFields is the select list read by ScanMovie; the movies table must be aliased m.
const MovieFields = movieColumns + `,
    (SELECT AVG(r.rating) FROM reviews r WHERE r.movie_id = m.id) AS average_rating,
    (SELECT COUNT(*) FROM favorites fc WHERE fc.movie_id = m.id) AS favorite_count`

const MovieSelect = `SELECT ` + MovieFields + ` FROM movies m`

const byRating = ` ORDER BY average_rating DESC NULLS LAST, m.id DESC`

type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...interface{}) error
}

// ScanMovie reads MovieFields followed by any extra destinations.
func ScanMovie(row Scanner, extra ...interface{}) (*models.Movie, error) {
	var m models.Movie
	var avg sql.NullFloat64
	var favorites int64
	dest := []interface{}{
		&m.ID, &m.Title, &m.Description, &m.Year, &m.Genre, &m.Duration, &m.Director,
		&m.Cast, &m.VideoPath, &m.ThumbnailPath, &m.CreatedAt, &m.UpdatedAt,
		&avg, &favorites,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if avg.Valid {
		v := avg.Float64
		m.AverageRating = &v
	}
	m.FavoriteCount = &favorites
	m.Decorate()
	return &m, nil
}

func (s *Store) queryMovies(ctx context.Context, query string, args ...interface{}) ([]models.Movie, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := []models.Movie{}
	for rows.Next() {
		m, err := ScanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, *m)
	}
	return movies, rows.Err()
}

// List returns one page of movies matching q plus the total match count.
func (s *Store) List(ctx context.Context, q ListQuery) (*models.MovieList, error) {
	where, args := q.whereClause()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies m`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count movies: %w", err)
	}

	pageArgs := append(append([]interface{}{}, args...), q.Limit, q.Offset())
	movies, err := s.queryMovies(ctx, MovieSelect+where+q.orderClause()+` LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}

	return &models.MovieList{
		Movies: movies,
		Pagination: models.Pagination{
			Page:  q.Page,
			Limit: q.Limit,
			Total: total,
			Pages: Pages(total, q.Limit),
		},
	}, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*models.Movie, error) {
	m, err := ScanMovie(s.db.QueryRowContext(ctx, MovieSelect+` WHERE m.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	return m, nil
}

func (s *Store) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM movies WHERE id = ?)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check movie %d: %w", id, err)
	}
	return exists, nil
}

// Detail loads a movie as seen by userID; 0 means anonymous.
func (s *Store) Detail(ctx context.Context, id, userID int64) (*models.MovieDetail, error) {
	var progress, duration sql.NullFloat64
	var isFavorite, inWatchlist bool
	row := s.db.QueryRowContext(ctx, `SELECT `+MovieFields+`,
            wp.progress, wp.duration,
            EXISTS(SELECT 1 FROM favorites f WHERE f.movie_id = m.id AND f.user_id = ?) AS is_favorite,
            EXISTS(SELECT 1 FROM watchlist w WHERE w.movie_id = m.id AND w.user_id = ?) AS in_watchlist
        FROM movies m
        LEFT JOIN watch_progress wp ON wp.movie_id = m.id AND wp.user_id = ?
        WHERE m.id = ?`,
		userID, userID, userID, id)
	m, err := ScanMovie(row, &progress, &duration, &isFavorite, &inWatchlist)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get movie detail %d: %w", id, err)
	}

	detail := &models.MovieDetail{
		Movie:       *m,
		IsFavorite:  isFavorite,
		InWatchlist: inWatchlist,
	}
	if progress.Valid {
		detail.UserProgress = &progress.Float64
	}
	if duration.Valid {
		detail.TotalDuration = &duration.Float64
	}

	detail.Reviews, err = s.Reviews(ctx, id, DetailReviews)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// Reviews returns the newest reviews of a movie with their authors' usernames.
func (s *Store) Reviews(ctx context.Context, movieID int64, limit int) ([]models.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT r.id, r.user_id, r.movie_id, u.username, r.rating, r.comment, r.created_at, r.updated_at
        FROM reviews r
        JOIN users u ON u.id = r.user_id
        WHERE r.movie_id = ?
        ORDER BY r.created_at DESC, r.id DESC
        LIMIT ?`, movieID, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.UserID, &r.MovieID, &r.Username, &r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (s *Store) Featured(ctx context.Context) ([]models.Movie, error) {
	movies, err := s.queryMovies(ctx, MovieSelect+byRating+` LIMIT ?`, FeaturedLimit)
	if err != nil {
		return nil, fmt.Errorf("featured movies: %w", err)
	}
	return movies, nil
}

func (s *Store) ByGenre(ctx context.Context, genre string) ([]models.Movie, error) {
	movies, err := s.queryMovies(ctx,
		MovieSelect+` WHERE LOWER(m.genre) LIKE ? ESCAPE '\'`+byRating+` LIMIT ?`,
		likePattern(genre), GenreLimit)
	if err != nil {
		return nil, fmt.Errorf("movies by genre: %w", err)
	}
	return movies, nil
}

// Recommended returns other movies sharing the first genre tag of id.
func (s *Store) Recommended(ctx context.Context, id int64) ([]models.Movie, error) {
	var genre string
	err := s.db.QueryRowContext(ctx, `SELECT genre FROM movies WHERE id = ?`, id).Scan(&genre)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get movie genre: %w", err)
	}

	tag := strings.TrimSpace(strings.Split(genre, ",")[0])
	if tag == "" {
		return []models.Movie{}, nil
	}
	movies, err := s.queryMovies(ctx,
		MovieSelect+` WHERE m.id <> ? AND LOWER(m.genre) LIKE ? ESCAPE '\'`+byRating+` LIMIT ?`,
		id, likePattern(tag), RecommendedLimit)
	if err != nil {
		return nil, fmt.Errorf("recommended movies: %w", err)
	}
	return movies, nil
}

// Add puts a movie on a user's list. Adding twice is a no-op.
func (s *Store) Add(ctx context.Context, c Collection, userID, movieID int64) error {
	if err := s.requireMovie(ctx, movieID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+string(c)+` (user_id, movie_id, added_at) VALUES (?, ?, ?)
         ON CONFLICT (user_id, movie_id) DO NOTHING`,
		userID, movieID, database.Now())
	if err != nil {
		return fmt.Errorf("add to %s: %w", c, err)
	}
	return nil
}

// Remove takes a movie off a user's list. Removing an absent entry is a no-op.
func (s *Store) Remove(ctx context.Context, c Collection, userID, movieID int64) error {
	if err := s.requireMovie(ctx, movieID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM `+string(c)+` WHERE user_id = ? AND movie_id = ?`, userID, movieID)
	if err != nil {
		return fmt.Errorf("remove from %s: %w", c, err)
	}
	return nil
}

// ListCollection returns a user's list, most recently added first.
func (s *Store) ListCollection(ctx context.Context, c Collection, userID int64) ([]models.Movie, error) {
	movies, err := s.queryMovies(ctx,
		MovieSelect+` JOIN `+string(c)+` c ON c.movie_id = m.id
        WHERE c.user_id = ?
        ORDER BY c.added_at DESC, m.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c, err)
	}
	return movies, nil
}

// UpsertReview writes the single review a user keeps per movie.
func (s *Store) UpsertReview(ctx context.Context, userID, movieID int64, rating int, comment *string) (*models.Review, error) {
	if err := s.requireMovie(ctx, movieID); err != nil {
		return nil, err
	}
	now := database.Now()
	var id int64
	err := s.db.QueryRowContext(ctx, `
        INSERT INTO reviews (user_id, movie_id, rating, comment, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (user_id, movie_id) DO UPDATE
        SET rating = excluded.rating, comment = excluded.comment, updated_at = excluded.updated_at
        RETURNING id`,
		userID, movieID, rating, comment, now, now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("upsert review: %w", err)
	}

	var r models.Review
	err = s.db.QueryRowContext(ctx, `
        SELECT r.id, r.user_id, r.movie_id, u.username, r.rating, r.comment, r.created_at, r.updated_at
        FROM reviews r JOIN users u ON u.id = r.user_id
        WHERE r.id = ?`, id).
		Scan(&r.ID, &r.UserID, &r.MovieID, &r.Username, &r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("load review: %w", err)
	}
	return &r, nil
}

// Insert stores a new movie row and sets its id and timestamps.
func (s *Store) Insert(ctx context.Context, m *models.Movie) error {
	now := database.Now()
	err := s.db.QueryRowContext(ctx, `
        INSERT INTO movies (title, description, year, genre, duration, director, cast_members,
            video_path, thumbnail_path, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id`,
		m.Title, m.Description, m.Year, m.Genre, m.Duration, m.Director, m.Cast,
		m.VideoPath, m.ThumbnailPath, now, now).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert movie: %w", err)
	}
	m.CreatedAt, m.UpdatedAt = now, now
	m.Decorate()
	return nil
}

// Update applies the non-nil fields of in.
func (s *Store) Update(ctx context.Context, id int64, in models.MovieInput) (*models.Movie, error) {
	var sets []string
	var args []interface{}
	set := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if in.Title != nil {
		set("title", *in.Title)
	}
	if in.Description != nil {
		set("description", *in.Description)
	}
	if in.Year != nil {
		set("year", *in.Year)
	}
	if in.Genre != nil {
		set("genre", *in.Genre)
	}
	if in.Duration != nil {
		set("duration", *in.Duration)
	}
	if in.Director != nil {
		set("director", *in.Director)
	}
	if in.Cast != nil {
		set("cast_members", *in.Cast)
	}
	set("updated_at", database.Now())

	res, err := s.db.ExecContext(ctx,
		`UPDATE movies SET `+strings.Join(sets, ", ")+` WHERE id = ?`, append(args, id)...)
	if err != nil {
		return nil, fmt.Errorf("update movie %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update movie %d: %w", id, err)
	} else if n == 0 {
		return nil, ErrMovieNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes the row; child rows go with it through ON DELETE CASCADE.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete movie %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete movie %d: %w", id, err)
	}
	if n == 0 {
		return ErrMovieNotFound
	}
	return nil
}

func (s *Store) requireMovie(ctx context.Context, id int64) error {
	ok, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMovieNotFound
	}
	return nil
}
