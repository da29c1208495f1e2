package models

import (
	"path/filepath"
	"strconv"
	"time"
)

type Movie struct {
	ID            int64     `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Description   *string   `json:"description" db:"description"`
	Year          *int      `json:"year" db:"year"`
	Genre         string    `json:"genre" db:"genre"`
	Duration      *int      `json:"duration" db:"duration"`
	Director      *string   `json:"director" db:"director"`
	Cast          *string   `json:"cast" db:"cast_members"`
	VideoPath     string    `json:"-" db:"video_path"`
	ThumbnailPath string    `json:"-" db:"thumbnail_path"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`

	// Derived; average_rating is null when the movie has no reviews.
	AverageRating *float64 `json:"average_rating"`
	FavoriteCount *int64   `json:"favorite_count,omitempty"`
	ThumbnailURL  string   `json:"thumbnail_url"`
	StreamURL     string   `json:"stream_url"`
}

// Decorate fills the URL fields derived from the stored paths.
func (m *Movie) Decorate() {
	if m.ThumbnailPath != "" {
		m.ThumbnailURL = "/media/thumbnails/" + filepath.Base(m.ThumbnailPath)
	}
	m.StreamURL = "/api/stream/" + strconv.FormatInt(m.ID, 10)
}

// MovieDetail is a movie as seen by one (possibly anonymous) viewer.
type MovieDetail struct {
	Movie
	UserProgress  *float64 `json:"user_progress"`
	TotalDuration *float64 `json:"total_duration"`
	IsFavorite    bool     `json:"is_favorite"`
	InWatchlist   bool     `json:"in_watchlist"`
	Reviews       []Review `json:"reviews"`
}

// StreamInfo backs the player page.
type StreamInfo struct {
	Movie
	Progress      *float64 `json:"progress"`
	TotalDuration *float64 `json:"total_duration"`
	VideoSize     int64    `json:"video_size"`
	StreamingURL  string   `json:"streaming_url"`
}

// MovieInput carries metadata for create and update. Nil fields are left unchanged on update.
type MovieInput struct {
	Title       *string `json:"title" form:"title"`
	Description *string `json:"description" form:"description"`
	Year        *int    `json:"year" form:"year"`
	Genre       *string `json:"genre" form:"genre"`
	Duration    *int    `json:"duration" form:"duration"`
	Director    *string `json:"director" form:"director"`
	Cast        *string `json:"cast" form:"cast"`
}

type MovieListQuery struct {
	Genre  string `form:"genre"`
	Year   string `form:"year"`
	Search string `form:"search"`
	Sort   string `form:"sort"`
	Order  string `form:"order"`
	Page   string `form:"page"`
	Limit  string `form:"limit"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type MovieList struct {
	Movies     []Movie    `json:"movies"`
	Pagination Pagination `json:"pagination"`
}

// UploadResponse exposes public URLs only; storage paths stay server-side.
type UploadResponse struct {
	Message      string `json:"message"`
	MovieID      int64  `json:"movieId"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	StreamURL    string `json:"stream_url"`
}
