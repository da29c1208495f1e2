package catalog

import (
	"math"
	"strconv"
	"testing"

	"github.com/cinestream/cinestream/pkg/apperr"
	"github.com/cinestream/cinestream/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListQuery_Defaults(t *testing.T) {
	q, err := ParseListQuery(models.MovieListQuery{})
	require.NoError(t, err)

	assert.Equal(t, DefaultPage, q.Page)
	assert.Equal(t, DefaultLimit, q.Limit)
	assert.Equal(t, "rating", q.Sort)
	assert.Equal(t, "DESC", q.Order)
	assert.Nil(t, q.Year)
	assert.Equal(t, 0, q.Offset())
}

func TestParseListQuery_SortAllowList(t *testing.T) {
	tests := []struct {
		sort, order string
		wantSort    string
		wantOrder   string
	}{
		{"title", "asc", "title", "ASC"},
		{"year", "ASC", "year", "ASC"},
		{"created_at", "desc", "created_at", "DESC"},
		{"title; DROP TABLE movies", "ASC", "rating", "ASC"},
		{"", "sideways", "rating", "DESC"},
	}
	for _, tt := range tests {
		q, err := ParseListQuery(models.MovieListQuery{Sort: tt.sort, Order: tt.order})
		require.NoError(t, err)
		assert.Equal(t, tt.wantSort, q.Sort, "sort %q", tt.sort)
		assert.Equal(t, tt.wantOrder, q.Order, "order %q", tt.order)
		assert.NotContains(t, q.orderClause(), "DROP")
	}
}

func TestParseListQuery_Paging(t *testing.T) {
	q, err := ParseListQuery(models.MovieListQuery{Page: "3", Limit: "500"})
	require.NoError(t, err)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, MaxLimit, q.Limit)
	assert.Equal(t, 200, q.Offset())

	q, err = ParseListQuery(models.MovieListQuery{Page: "-1", Limit: "abc"})
	require.NoError(t, err)
	assert.Equal(t, DefaultPage, q.Page)
	assert.Equal(t, DefaultLimit, q.Limit)

	q, err = ParseListQuery(models.MovieListQuery{Page: strconv.Itoa(math.MaxInt), Limit: "100"})
	require.NoError(t, err)
	assert.Less(t, q.Page, math.MaxInt)
	assert.Positive(t, q.Offset())
	assert.Greater(t, q.Offset(), math.MaxInt-2*MaxLimit)
}

func TestClampPage(t *testing.T) {
	assert.Equal(t, 7, ClampPage(7, 20))
	for _, limit := range []int{1, 3, 20, MaxLimit} {
		page := ClampPage(math.MaxInt, limit)
		offset := (page - 1) * limit
		assert.GreaterOrEqual(t, offset, 0, "limit %d", limit)
		assert.Greater(t, offset, math.MaxInt-2*limit, "limit %d", limit)
	}
}

func TestParseListQuery_BadYear(t *testing.T) {
	_, err := ParseListQuery(models.MovieListQuery{Year: "nineteen"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestWhereClause_BindsEveryFilter(t *testing.T) {
	q, err := ParseListQuery(models.MovieListQuery{Genre: "Drama", Year: "1999", Search: "50%_Off"})
	require.NoError(t, err)

	where, args := q.whereClause()
	assert.Contains(t, where, "LOWER(m.genre) LIKE ?")
	assert.Contains(t, where, "m.year = ?")
	assert.Len(t, args, 6)
	assert.Equal(t, "%drama%", args[0])
	assert.Equal(t, 1999, args[1])
	assert.Equal(t, `%50\%\_off%`, args[2])
	assert.NotContains(t, where, "Drama")
}

func TestWhereClause_Empty(t *testing.T) {
	where, args := ListQuery{}.whereClause()
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestPages(t *testing.T) {
	assert.Equal(t, 0, Pages(0, 20))
	assert.Equal(t, 1, Pages(1, 20))
	assert.Equal(t, 1, Pages(20, 20))
	assert.Equal(t, 2, Pages(21, 20))
	assert.Equal(t, 0, Pages(5, 0))
}
