package catalog

import (
	"math"
	"strconv"
	"strings"

	"github.com/cinestream/cinestream/pkg/apperr"
	"github.com/cinestream/cinestream/pkg/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	DefaultSort  = "rating"
)

// sortColumns maps the public sort keys onto fixed SQL expressions. Anything
// else falls back to DefaultSort.
var sortColumns = map[string]string{
	"title":      "m.title",
	"year":       "m.year",
	"rating":     "average_rating",
	"created_at": "m.created_at",
}

// ListQuery is a validated catalog listing request.
type ListQuery struct {
	Genre  string
	Year   *int
	Search string
	Sort   string
	Order  string
	Page   int
	Limit  int
}

// ParseListQuery normalizes raw query parameters. Only a malformed year is an
// error; bad paging and sort values fall back to defaults.
func ParseListQuery(raw models.MovieListQuery) (ListQuery, error) {
	q := ListQuery{
		Genre:  strings.TrimSpace(raw.Genre),
		Search: strings.TrimSpace(raw.Search),
		Sort:   DefaultSort,
		Order:  "DESC",
		Page:   DefaultPage,
		Limit:  DefaultLimit,
	}
	if y := strings.TrimSpace(raw.Year); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return ListQuery{}, apperr.Validation("year must be a number")
		}
		q.Year = &year
	}
	if _, ok := sortColumns[raw.Sort]; ok {
		q.Sort = raw.Sort
	}
	if strings.EqualFold(strings.TrimSpace(raw.Order), "ASC") {
		q.Order = "ASC"
	}
	if p, err := strconv.Atoi(raw.Page); err == nil && p > 0 {
		q.Page = p
	}
	if l, err := strconv.Atoi(raw.Limit); err == nil && l > 0 {
		q.Limit = l
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	q.Page = ClampPage(q.Page, q.Limit)
	return q, nil
}

// ClampPage caps page so that (page-1)*limit cannot overflow. limit must be
// positive.
func ClampPage(page, limit int) int {
	if maxPage := math.MaxInt / limit; page > maxPage {
		return maxPage
	}
	return page
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// whereClause renders the filter predicate with '?' placeholders. The same
// clause backs both the page query and the total count.
func (q ListQuery) whereClause() (string, []interface{}) {
	var conds []string
	var args []interface{}

	if q.Genre != "" {
		conds = append(conds, `LOWER(m.genre) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(q.Genre))
	}
	if q.Year != nil {
		conds = append(conds, "m.year = ?")
		args = append(args, *q.Year)
	}
	if q.Search != "" {
		p := likePattern(q.Search)
		conds = append(conds, `(LOWER(m.title) LIKE ? ESCAPE '\'
            OR LOWER(COALESCE(m.description, '')) LIKE ? ESCAPE '\'
            OR LOWER(COALESCE(m.director, '')) LIKE ? ESCAPE '\'
            OR LOWER(COALESCE(m.cast_members, '')) LIKE ? ESCAPE '\')`)
		args = append(args, p, p, p, p)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (q ListQuery) orderClause() string {
	col, ok := sortColumns[q.Sort]
	if !ok {
		col = sortColumns[DefaultSort]
	}
	dir := "DESC"
	if q.Order == "ASC" {
		dir = "ASC"
	}
	return " ORDER BY " + col + " " + dir + " NULLS LAST, m.id " + dir
}

// Pages is ceil(total/limit).
func Pages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a case-insensitive substring pattern with LIKE
// metacharacters in s matched literally.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
