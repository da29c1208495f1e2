package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cinestream/cinestream/internal/catalog"
	"github.com/cinestream/cinestream/pkg/apperr"
	"github.com/cinestream/cinestream/pkg/logger"
	"github.com/cinestream/cinestream/pkg/metrics"
	"github.com/cinestream/cinestream/pkg/models"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	sniffLen     = 3072
	mediaTimeout = 60 * time.Second
)

// allowedTypes lists the accepted extensions and, for each, the declared
// content types a client may send with it.
var allowedTypes = map[string][]string{
	".mp4":  {"video/mp4", "application/mp4"},
	".mov":  {"video/quicktime"},
	".avi":  {"video/x-msvideo", "video/avi", "video/msvideo"},
	".mkv":  {"video/x-matroska", "video/matroska"},
	".webm": {"video/webm"},
}

var errNotVideo = apperr.Validation("Only video files are allowed")

type Options struct {
	VideoDir       string
	ThumbnailDir   string
	MaxUploadBytes int64
}

// Pipeline validates, stores and catalogs uploaded videos.
type Pipeline struct {
	movies *catalog.Store
	media  MediaTool
	opts   Options
	log    *logger.Logger
}

func NewPipeline(movies *catalog.Store, media MediaTool, opts Options) *Pipeline {
	return &Pipeline{
		movies: movies,
		media:  media,
		opts:   opts,
		log:    logger.WithContext("component", "upload"),
	}
}

func (p *Pipeline) MaxUploadBytes() int64 { return p.opts.MaxUploadBytes }

// ValidateType checks the file extension and, when given, the declared
// content type. It returns the normalized extension.
func ValidateType(filename, declared string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	accepted, ok := allowedTypes[ext]
	if !ok {
		return "", errNotVideo
	}
	declared = strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	if declared == "" {
		return ext, nil
	}
	for _, t := range accepted {
		if declared == t {
			return ext, nil
		}
	}
	return "", errNotVideo
}

// looksLikeVideo rejects content that is recognisably something else.
// Containers the detector does not know come back as octet-stream and pass.
func looksLikeVideo(head []byte) bool {
	mt := mimetype.Detect(head)
	if mt.Is("application/octet-stream") {
		return true
	}
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") {
			return true
		}
	}
	return false
}

// Import stores src as a new movie. The catalog row is written only after the
// video is on disk; if that write fails the stored files are removed.
func (p *Pipeline) Import(ctx context.Context, src io.Reader, filename, declared string, in models.MovieInput) (*models.Movie, error) {
	title, genre := trimmed(in.Title), trimmed(in.Genre)
	if title == "" || genre == "" {
		return nil, apperr.Validation("Title and genre are required")
	}
	ext, err := ValidateType(filename, declared)
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{p.opts.VideoDir, p.opts.ThumbnailDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperr.Internal("Upload failed", fmt.Errorf("create %s: %w", dir, err))
		}
	}

	name := uuid.NewString()
	videoPath := filepath.Join(p.opts.VideoDir, name+ext)
	size, err := p.store(src, videoPath)
	if err != nil {
		return nil, err
	}

	thumbPath := filepath.Join(p.opts.ThumbnailDir, name+".jpg")
	p.thumbnail(ctx, videoPath, thumbPath)

	movie := &models.Movie{
		Title:         title,
		Genre:         genre,
		Description:   in.Description,
		Year:          in.Year,
		Duration:      in.Duration,
		Director:      in.Director,
		Cast:          in.Cast,
		VideoPath:     videoPath,
		ThumbnailPath: thumbPath,
	}
	if movie.Duration == nil {
		movie.Duration = p.probeDuration(ctx, videoPath)
	}

	if err := p.movies.Insert(ctx, movie); err != nil {
		removeQuietly(p.log, videoPath)
		removeQuietly(p.log, thumbPath)
		metrics.Uploads.WithLabelValues("error").Inc()
		return nil, apperr.Internal("Upload failed", err)
	}

	metrics.Uploads.WithLabelValues("ok").Inc()
	p.log.Info("movie_uploaded",
		"movie_id", movie.ID,
		"title", movie.Title,
		"size", humanize.Bytes(uint64(size)))
	return movie, nil
}

// store copies src to path, enforcing the size ceiling and sniffing the
// leading bytes. On any failure the partial file is removed.
func (p *Pipeline) store(src io.Reader, path string) (int64, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, apperr.Internal("Upload failed", fmt.Errorf("read upload: %w", err))
	}
	head = head[:n]
	if n == 0 {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return 0, apperr.Validation("No video file uploaded")
	}
	if !looksLikeVideo(head) {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return 0, errNotVideo
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, apperr.Internal("Upload failed", fmt.Errorf("create video file: %w", err))
	}

	limit := p.opts.MaxUploadBytes
	body := io.MultiReader(bytes.NewReader(head), src)
	written, copyErr := io.Copy(f, io.LimitReader(body, limit+1))
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		removeQuietly(p.log, path)
		var tooLarge *http.MaxBytesError
		if errors.As(copyErr, &tooLarge) {
			metrics.Uploads.WithLabelValues("rejected").Inc()
			return 0, apperr.Validation("File too large")
		}
		return 0, apperr.Internal("Upload failed", fmt.Errorf("write video file: %w", copyErr))
	case written > limit:
		removeQuietly(p.log, path)
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return 0, apperr.Validationf("File too large (max %s)", humanize.Bytes(uint64(limit)))
	case closeErr != nil:
		removeQuietly(p.log, path)
		return 0, apperr.Internal("Upload failed", fmt.Errorf("close video file: %w", closeErr))
	}
	return written, nil
}

// thumbnail is best effort; the recorded path may not exist on disk.
func (p *Pipeline) thumbnail(ctx context.Context, videoPath, thumbPath string) {
	if p.media == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, mediaTimeout)
	defer cancel()
	if err := p.media.Thumbnail(ctx, videoPath, thumbPath); err != nil {
		metrics.ThumbnailFailures.Inc()
		p.log.Warn("thumbnail_failed", "video", filepath.Base(videoPath), "error", err)
	}
}

func (p *Pipeline) probeDuration(ctx context.Context, videoPath string) *int {
	if p.media == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, mediaTimeout)
	defer cancel()
	d, err := p.media.Duration(ctx, videoPath)
	if err != nil || d <= 0 {
		p.log.Warn("duration_probe_failed", "video", filepath.Base(videoPath), "error", err)
		return nil
	}
	secs := int(math.Round(d))
	return &secs
}

// Update applies a partial metadata change. Title and genre may be changed
// but not blanked.
func (p *Pipeline) Update(ctx context.Context, id int64, in models.MovieInput) (*models.Movie, error) {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, apperr.Validation("Title cannot be empty")
		}
		in.Title = &t
	}
	if in.Genre != nil {
		g := strings.TrimSpace(*in.Genre)
		if g == "" {
			return nil, apperr.Validation("Genre cannot be empty")
		}
		in.Genre = &g
	}

	m, err := p.movies.Update(ctx, id, in)
	if err != nil {
		if errors.Is(err, catalog.ErrMovieNotFound) {
			return nil, apperr.NotFound("Movie not found")
		}
		return nil, apperr.Internal("Update failed", err)
	}
	return m, nil
}

// Delete removes the movie's files, tolerating ones already gone, then its row.
func (p *Pipeline) Delete(ctx context.Context, id int64) error {
	m, err := p.movies.Get(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrMovieNotFound) {
			return apperr.NotFound("Movie not found")
		}
		return apperr.Internal("Delete failed", err)
	}

	removeQuietly(p.log, m.VideoPath)
	removeQuietly(p.log, m.ThumbnailPath)

	if err := p.movies.Delete(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrMovieNotFound) {
			return apperr.NotFound("Movie not found")
		}
		return apperr.Internal("Delete failed", err)
	}
	p.log.Info("movie_deleted", "movie_id", id, "title", m.Title)
	return nil
}

func removeQuietly(log *logger.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("file_remove_failed", "path", path, "error", err)
	}
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
