package models

import "time"

type WatchProgress struct {
	UserID      int64     `json:"-" db:"user_id"`
	MovieID     int64     `json:"movie_id" db:"movie_id"`
	Progress    float64   `json:"progress" db:"progress"`
	Duration    float64   `json:"duration" db:"duration"`
	Completed   bool      `json:"completed" db:"completed"`
	LastWatched time.Time `json:"last_watched,omitempty" db:"last_watched"`
}

type UpdateProgressRequest struct {
	Progress  *float64 `json:"progress"`
	Duration  *float64 `json:"duration"`
	Completed *bool    `json:"completed"`
}

// ProgressView is what a viewer gets back for one movie. An absent row and a
// row at zero seconds look the same.
type ProgressView struct {
	Progress  float64 `json:"progress"`
	Duration  float64 `json:"duration"`
	Completed bool    `json:"completed"`
}

// WatchedMovie is a movie joined with the caller's progress row.
type WatchedMovie struct {
	Movie
	Progress    float64   `json:"progress"`
	Duration    float64   `json:"duration"`
	Completed   bool      `json:"completed"`
	LastWatched time.Time `json:"last_watched"`
}
