package upload

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/cinestream/cinestream/internal/auth"
	"github.com/cinestream/cinestream/internal/testutil"
	"github.com/cinestream/cinestream/pkg/database"
	"github.com/cinestream/cinestream/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAdminRouter(t *testing.T, limit int64) (*gin.Engine, *database.DB) {
	p, db, _ := newPipeline(t, &stubMedia{}, limit)
	h := NewHandler(p)

	router := gin.New()
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware(auth.NewStore(db), testutil.Secret), auth.AdminMiddleware())
	admin.POST("/movies", h.UploadMovie)
	admin.PUT("/movies/:id", h.UpdateMovie)
	admin.DELETE("/movies/:id", h.DeleteMovie)
	return router, db
}

func multipartUpload(t *testing.T, fields map[string]string, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="video"; filename=%q`, filename))
		hdr.Set("Content-Type", contentType)
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func postUpload(router http.Handler, body *bytes.Buffer, contentType, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/movies", body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestUploadMovie_AccessControl(t *testing.T) {
	router, db := setupAdminRouter(t, 1<<20)
	user := testutil.CreateUser(t, db)

	body, ct := multipartUpload(t, map[string]string{"title": "T", "genre": "G"}, "a.mp4", "video/mp4", fakeVideo(512))
	resp := postUpload(router, body, ct, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	body, ct = multipartUpload(t, map[string]string{"title": "T", "genre": "G"}, "a.mp4", "video/mp4", fakeVideo(512))
	resp = postUpload(router, body, ct, testutil.Token(t, user))
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.JSONEq(t, `{"error":"Admin access required"}`, resp.Body.String())
}

func TestUploadMovie_Created(t *testing.T) {
	router, db := setupAdminRouter(t, 1<<20)
	admin := testutil.CreateAdmin(t, db)
	token := testutil.Token(t, admin)

	body, ct := multipartUpload(t, map[string]string{
		"title": "Night Train", "genre": "Drama", "year": "2021", "description": "", "cast": "A, B",
	}, "night.mp4", "video/mp4", fakeVideo(2048))
	resp := postUpload(router, body, ct, token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var out models.UploadResponse
	testutil.DecodeJSON(t, resp, &out)
	assert.Equal(t, "Movie uploaded successfully", out.Message)
	assert.NotZero(t, out.MovieID)
	assert.Equal(t, fmt.Sprintf("/api/stream/%d", out.MovieID), out.StreamURL)
	assert.True(t, strings.HasPrefix(out.ThumbnailURL, "/media/thumbnails/"), out.ThumbnailURL)
	assert.NotContains(t, resp.Body.String(), "videoPath")
	assert.NotContains(t, resp.Body.String(), "thumbnailPath")

	var videoPath string
	require.NoError(t, db.QueryRowContext(t.Context(), `SELECT video_path FROM movies WHERE id = ?`, out.MovieID).Scan(&videoPath))
	assert.FileExists(t, videoPath)
	assert.NotContains(t, resp.Body.String(), videoPath)

	detail := testutil.Do(t, router, http.MethodPut, fmt.Sprintf("/api/admin/movies/%d", out.MovieID), token,
		gin.H{"director": "Somebody"})
	require.Equal(t, http.StatusOK, detail.Code, detail.Body.String())

	var stored struct {
		Year        *int    `json:"year"`
		Description *string `json:"description"`
		Cast        *string `json:"cast"`
		Director    *string `json:"director"`
	}
	require.NoError(t, db.QueryRowContext(t.Context(), `SELECT year, description, cast_members, director FROM movies WHERE id = ?`, out.MovieID).
		Scan(&stored.Year, &stored.Description, &stored.Cast, &stored.Director))
	require.NotNil(t, stored.Year)
	assert.Equal(t, 2021, *stored.Year)
	assert.Nil(t, stored.Description)
	require.NotNil(t, stored.Cast)
	assert.Equal(t, "A, B", *stored.Cast)
	require.NotNil(t, stored.Director)
	assert.Equal(t, "Somebody", *stored.Director)

	resp = testutil.Do(t, router, http.MethodDelete, fmt.Sprintf("/api/admin/movies/%d", out.MovieID), token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NoFileExists(t, videoPath)

	resp = testutil.Do(t, router, http.MethodDelete, fmt.Sprintf("/api/admin/movies/%d", out.MovieID), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUploadMovie_BadRequests(t *testing.T) {
	router, db := setupAdminRouter(t, 4096)
	token := testutil.Token(t, testutil.CreateAdmin(t, db))

	cases := []struct {
		name     string
		fields   map[string]string
		filename string
		ctype    string
		content  []byte
	}{
		{"no file", map[string]string{"title": "T", "genre": "G"}, "", "", nil},
		{"no title", map[string]string{"genre": "G"}, "a.mp4", "video/mp4", fakeVideo(512)},
		{"wrong extension", map[string]string{"title": "T", "genre": "G"}, "a.txt", "text/plain", []byte("hello")},
		{"text content", map[string]string{"title": "T", "genre": "G"}, "a.mp4", "video/mp4", bytes.Repeat([]byte("plain text "), 50)},
		{"too large", map[string]string{"title": "T", "genre": "G"}, "a.mp4", "video/mp4", fakeVideo(8192)},
		{"bad year", map[string]string{"title": "T", "genre": "G", "year": "soon"}, "a.mp4", "video/mp4", fakeVideo(512)},
	}
	for _, tc := range cases {
		body, ct := multipartUpload(t, tc.fields, tc.filename, tc.ctype, tc.content)
		resp := postUpload(router, body, ct, token)
		assert.Equal(t, http.StatusBadRequest, resp.Code, "%s: %s", tc.name, resp.Body.String())
	}

	var n int
	require.NoError(t, db.QueryRowContext(t.Context(), `SELECT COUNT(*) FROM movies`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestUpdateMovie_NotFound(t *testing.T) {
	router, db := setupAdminRouter(t, 1<<20)
	token := testutil.Token(t, testutil.CreateAdmin(t, db))

	resp := testutil.Do(t, router, http.MethodPut, "/api/admin/movies/9999", token, gin.H{"title": "X"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = testutil.Do(t, router, http.MethodPut, "/api/admin/movies/9999", token, gin.H{"title": ""})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
