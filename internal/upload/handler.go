package upload

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cinestream/cinestream/pkg/apperr"
	"github.com/cinestream/cinestream/pkg/models"
	"github.com/cinestream/cinestream/pkg/utils"
	"github.com/gin-gonic/gin"
)

// formOverhead leaves room for the metadata fields and multipart framing on
// top of the video itself.
const formOverhead = 1 << 20

// Handler serves the admin movie management routes.
type Handler struct {
	pipeline *Pipeline
}

func NewHandler(pipeline *Pipeline) *Handler {
	return &Handler{pipeline: pipeline}
}

// UploadMovie accepts a multipart form with a "video" file and movie metadata.
func (h *Handler) UploadMovie(c *gin.Context) {
	limit := h.pipeline.MaxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+formOverhead)

	fileHeader, err := c.FormFile("video")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperr.Respond(c, apperr.Validation("File too large"))
			return
		}
		apperr.Respond(c, apperr.Validation("No video file uploaded"))
		return
	}
	if fileHeader.Size > limit {
		apperr.Respond(c, apperr.Validation("File too large"))
		return
	}

	var in models.MovieInput
	if err := c.ShouldBind(&in); err != nil {
		apperr.Respond(c, apperr.Validation("Invalid movie metadata: "+err.Error()))
		return
	}
	dropBlank(&in)

	f, err := fileHeader.Open()
	if err != nil {
		apperr.Respond(c, apperr.Internal("Upload failed", err))
		return
	}
	defer f.Close()

	movie, err := h.pipeline.Import(c.Request.Context(), f, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.UploadResponse{
		Message:      "Movie uploaded successfully",
		MovieID:      movie.ID,
		ThumbnailURL: movie.ThumbnailURL,
		StreamURL:    movie.StreamURL,
	})
}

func (h *Handler) UpdateMovie(c *gin.Context) {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	var in models.MovieInput
	if err := c.ShouldBind(&in); err != nil {
		apperr.Respond(c, apperr.Validation("Invalid movie metadata: "+err.Error()))
		return
	}

	movie, err := h.pipeline.Update(c.Request.Context(), id, in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Movie updated successfully", "movie": movie})
}

func (h *Handler) DeleteMovie(c *gin.Context) {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := h.pipeline.Delete(c.Request.Context(), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Movie deleted successfully"})
}

// dropBlank treats empty optional form fields as absent.
func dropBlank(in *models.MovieInput) {
	for _, s := range []**string{&in.Description, &in.Director, &in.Cast} {
		if *s != nil && strings.TrimSpace(**s) == "" {
			*s = nil
		}
	}
	for _, n := range []**int{&in.Year, &in.Duration} {
		if *n != nil && **n == 0 {
			*n = nil
		}
	}
}
