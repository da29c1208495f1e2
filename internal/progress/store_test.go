package progress_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cinestream/cinestream/internal/catalog"
	"github.com/cinestream/cinestream/internal/progress"
	"github.com/cinestream/cinestream/internal/testutil"
	"github.com/cinestream/cinestream/pkg/database"
	"github.com/cinestream/cinestream/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*progress.Store, *database.DB) {
	db := testutil.NewDB(t)
	return progress.NewStore(db, catalog.NewStore(db)), db
}

func TestUpdate_LastWriteWins(t *testing.T) {
	store, db := newStore(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db)
	movie := testutil.CreateMovie(t, db, testutil.MovieSeed{})

	_, err := store.Update(ctx, user.ID, movie.ID, 120, 5400, false)
	require.NoError(t, err)
	_, err = store.Update(ctx, user.ID, movie.ID, 5400, 5400, true)
	require.NoError(t, err)

	v, err := store.Get(ctx, user.ID, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressView{Progress: 5400, Duration: 5400, Completed: true}, v)

	var rows int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM watch_progress`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestUpdate_UnknownMovie(t *testing.T) {
	store, db := newStore(t)
	user := testutil.CreateUser(t, db)

	_, err := store.Update(context.Background(), user.ID, 9999, 1, 1, false)
	assert.True(t, errors.Is(err, catalog.ErrMovieNotFound))
}

func TestGet_DefaultsWhenAbsent(t *testing.T) {
	store, db := newStore(t)
	user := testutil.CreateUser(t, db)

	v, err := store.Get(context.Background(), user.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressView{}, v)
}

func TestTouch_KeepsPosition(t *testing.T) {
	store, db := newStore(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db)
	movie := testutil.CreateMovie(t, db, testutil.MovieSeed{})

	require.NoError(t, store.Touch(ctx, user.ID, movie.ID))
	v, err := store.Get(ctx, user.ID, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressView{}, v)

	_, err = store.Update(ctx, user.ID, movie.ID, 300, 600, false)
	require.NoError(t, err)
	require.NoError(t, store.Touch(ctx, user.ID, movie.ID))

	v, err = store.Get(ctx, user.ID, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, 300.0, v.Progress)
	assert.Equal(t, 600.0, v.Duration)
}

func TestContinueWatching_ExcludesCompleted(t *testing.T) {
	store, db := newStore(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db)
	older := testutil.CreateMovie(t, db, testutil.MovieSeed{Title: "Older"})
	newer := testutil.CreateMovie(t, db, testutil.MovieSeed{Title: "Newer"})
	done := testutil.CreateMovie(t, db, testutil.MovieSeed{Title: "Done"})

	_, err := store.Update(ctx, user.ID, older.ID, 10, 100, false)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = store.Update(ctx, user.ID, done.ID, 100, 100, true)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = store.Update(ctx, user.ID, newer.ID, 20, 100, false)
	require.NoError(t, err)

	movies, err := store.ContinueWatching(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "Newer", movies[0].Title)
	assert.Equal(t, 20.0, movies[0].Progress)
	assert.Equal(t, "Older", movies[1].Title)

	history, err := store.History(ctx, user.ID, 1, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Newer", history[0].Title)
	assert.Equal(t, "Done", history[1].Title)
	assert.True(t, history[1].Completed)

	history, err = store.History(ctx, user.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Older", history[0].Title)

	for _, limit := range []int{1, 2, progress.MaxHistoryLimit} {
		history, err = store.History(ctx, user.ID, math.MaxInt, limit)
		require.NoError(t, err, "limit %d", limit)
		assert.Empty(t, history, "limit %d", limit)
	}
}

func TestContinueWatching_Limit(t *testing.T) {
	store, db := newStore(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db)
	for i := 0; i < progress.ContinueLimit+3; i++ {
		m := testutil.CreateMovie(t, db, testutil.MovieSeed{})
		require.NoError(t, store.Touch(ctx, user.ID, m.ID))
	}

	movies, err := store.ContinueWatching(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, movies, progress.ContinueLimit)
}
