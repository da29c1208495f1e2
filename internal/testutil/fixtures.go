package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cinestream/cinestream/pkg/database"
	"github.com/cinestream/cinestream/pkg/models"
	"github.com/cinestream/cinestream/pkg/utils"
)

// Secret signs every token minted by fixtures.
const Secret = "test-secret"

// Password is the plain-text password of every seeded user.
const Password = "secret123"

var seq atomic.Int64

// passwordHash is computed once; bcrypt is slow enough to matter across a suite.
var passwordHash = func() string {
	h, err := utils.HashPassword(Password)
	if err != nil {
		panic(err)
	}
	return h
}()

// CreateUser seeds a regular user with a unique name and email.
func CreateUser(t *testing.T, db *database.DB) *models.User {
	t.Helper()
	return seedUser(t, db, false)
}

func CreateAdmin(t *testing.T, db *database.DB) *models.User {
	t.Helper()
	return seedUser(t, db, true)
}

func seedUser(t *testing.T, db *database.DB, admin bool) *models.User {
	t.Helper()
	n := seq.Add(1)
	u := &models.User{
		Username:     fmt.Sprintf("user%d", n),
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: passwordHash,
		IsAdmin:      admin,
		CreatedAt:    database.Now(),
	}
	err := db.QueryRowContext(context.Background(), `
		INSERT INTO users (username, email, password_hash, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, u.Username, u.Email, u.PasswordHash, u.IsAdmin, u.CreatedAt, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// Token mints a valid bearer token for user.
func Token(t *testing.T, user *models.User) string {
	t.Helper()
	token, _, err := utils.GenerateJWT(user.ID, Secret, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

// MovieSeed describes a movie fixture. Zero fields get defaults.
type MovieSeed struct {
	Title     string
	Genre     string
	Year      int
	Duration  int
	Director  string
	VideoPath string
	// VideoBytes, when VideoPath is empty, is written to a temp file that
	// becomes the movie's video.
	VideoBytes []byte
	CreatedAt  time.Time
}

// CreateMovie seeds a movie row. Unless a path is given the video file is
// created in a temp dir; the thumbnail path is never created on disk.
func CreateMovie(t *testing.T, db *database.DB, seed MovieSeed) *models.Movie {
	t.Helper()
	n := seq.Add(1)
	if seed.Title == "" {
		seed.Title = fmt.Sprintf("Movie %d", n)
	}
	if seed.Genre == "" {
		seed.Genre = "Drama"
	}
	if seed.CreatedAt.IsZero() {
		seed.CreatedAt = database.Now()
	}
	dir := t.TempDir()
	if seed.VideoPath == "" {
		seed.VideoPath = filepath.Join(dir, fmt.Sprintf("video%d.mp4", n))
		if err := os.WriteFile(seed.VideoPath, seed.VideoBytes, 0o644); err != nil {
			t.Fatalf("write video fixture: %v", err)
		}
	}

	m := &models.Movie{
		Title:         seed.Title,
		Genre:         seed.Genre,
		VideoPath:     seed.VideoPath,
		ThumbnailPath: filepath.Join(dir, fmt.Sprintf("thumb%d.jpg", n)),
		CreatedAt:     seed.CreatedAt,
		UpdatedAt:     seed.CreatedAt,
	}
	if seed.Year != 0 {
		m.Year = &seed.Year
	}
	if seed.Duration != 0 {
		m.Duration = &seed.Duration
	}
	if seed.Director != "" {
		m.Director = &seed.Director
	}
	err := db.QueryRowContext(context.Background(), `
		INSERT INTO movies (title, year, genre, duration, director, video_path, thumbnail_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, m.Title, m.Year, m.Genre, m.Duration, m.Director, m.VideoPath, m.ThumbnailPath, m.CreatedAt, m.UpdatedAt).Scan(&m.ID)
	if err != nil {
		t.Fatalf("seed movie: %v", err)
	}
	m.Decorate()
	return m
}

// CreateReview seeds a review by user for movie.
func CreateReview(t *testing.T, db *database.DB, userID, movieID int64, rating int) {
	t.Helper()
	now := database.Now()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO reviews (user_id, movie_id, rating, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, userID, movieID, rating, now, now)
	if err != nil {
		t.Fatalf("seed review: %v", err)
	}
}
