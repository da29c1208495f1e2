package cli

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cinestream/cinestream/internal/catalog"
	"github.com/cinestream/cinestream/internal/upload"
	"github.com/cinestream/cinestream/pkg/apperr"
	"github.com/cinestream/cinestream/pkg/models"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newMoviesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "movies",
		Short: "Manage the movie catalog",
	}
	cmd.AddCommand(newMoviesListCmd(), newMoviesImportCmd(), newMoviesDeleteCmd(), newMoviesExportCmd())
	return cmd
}

func newMoviesListCmd() *cobra.Command {
	var (
		genre  string
		search string
		page   int
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List movies, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			q, err := catalog.ParseListQuery(models.MovieListQuery{
				Genre:  genre,
				Search: search,
				Sort:   "created_at",
				Page:   strconv.Itoa(page),
				Limit:  strconv.Itoa(limit),
			})
			if err != nil {
				return err
			}
			list, err := catalog.NewStore(e.db).List(cmd.Context(), q)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list.Movies) == 0 {
				fmt.Fprintln(out, "No movies found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tGENRE\tYEAR\tRATING\tSIZE\tADDED")
			for _, m := range list.Movies {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					m.ID, m.Title, m.Genre, optInt(m.Year), rating(m.AverageRating),
					fileSize(m.VideoPath), humanize.Time(m.CreatedAt))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			p := list.Pagination
			fmt.Fprintf(out, "\nPage %d of %d (%s movies)\n", p.Page, p.Pages, humanize.Comma(int64(p.Total)))
			return nil
		},
	}
	cmd.Flags().StringVar(&genre, "genre", "", "filter by genre substring")
	cmd.Flags().StringVar(&search, "search", "", "match title, description, director or cast")
	cmd.Flags().IntVar(&page, "page", catalog.DefaultPage, "page number")
	cmd.Flags().IntVar(&limit, "limit", catalog.DefaultLimit, "movies per page")
	return cmd
}

func newMoviesImportCmd() *cobra.Command {
	var (
		in      models.MovieInput
		title   string
		genre   string
		desc    string
		dir     string
		cast    string
		year    int
		length  int
		noMedia bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a local video file into the catalog",
		Long: `Import runs the same pipeline as an admin upload: the file is type checked,
copied into the video directory, thumbnailed and probed with ffmpeg, then cataloged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			in.Title, in.Genre = &title, &genre
			in.Description, in.Director, in.Cast = optString(desc), optString(dir), optString(cast)
			if year > 0 {
				in.Year = &year
			}
			if length > 0 {
				in.Duration = &length
			}

			var media upload.MediaTool
			if !noMedia {
				media = upload.NewFFmpeg(e.cfg.Media.FFmpegPath, e.cfg.Media.FFprobePath, e.cfg.Media.ThumbnailOffset)
			}
			pipeline := upload.NewPipeline(catalog.NewStore(e.db), media, upload.Options{
				VideoDir:       e.cfg.Media.VideoDir,
				ThumbnailDir:   e.cfg.Media.ThumbnailDir,
				MaxUploadBytes: e.cfg.Media.MaxUploadBytes,
			})

			movie, err := pipeline.Import(cmd.Context(), f, f.Name(), "", in)
			if err != nil {
				return publicError(err)
			}
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Imported %q as movie %d (%s)", movie.Title, movie.ID, fileSize(movie.VideoPath)))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "movie title (required)")
	cmd.Flags().StringVar(&genre, "genre", "", "comma separated genres (required)")
	cmd.Flags().StringVar(&desc, "description", "", "synopsis")
	cmd.Flags().StringVar(&dir, "director", "", "director")
	cmd.Flags().StringVar(&cast, "cast", "", "cast members")
	cmd.Flags().IntVar(&year, "year", 0, "release year")
	cmd.Flags().IntVar(&length, "duration", 0, "runtime in seconds; probed when omitted")
	cmd.Flags().BoolVar(&noMedia, "no-media", false, "skip ffmpeg thumbnail and duration probing")
	return cmd
}

func newMoviesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a movie and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid movie id %q", args[0])
			}

			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			pipeline := upload.NewPipeline(catalog.NewStore(e.db), nil, upload.Options{})
			if err := pipeline.Delete(cmd.Context(), id); err != nil {
				return publicError(err)
			}
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Movie %d deleted", id))
			return nil
		},
	}
}

func newMoviesExportCmd() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog to JSON or CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "json" && format != "csv" {
				return fmt.Errorf("unsupported format %q (want json or csv)", format)
			}

			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			movies, err := allMovies(cmd, catalog.NewStore(e.db))
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			if format == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				err = enc.Encode(movies)
			} else {
				err = writeCSV(w, movies)
			}
			if err != nil {
				return err
			}
			if output != "" {
				printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Exported %d movies to %s", len(movies), output))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func allMovies(cmd *cobra.Command, store *catalog.Store) ([]models.Movie, error) {
	q := catalog.ListQuery{Sort: "created_at", Order: "ASC", Page: 1, Limit: catalog.MaxLimit}
	var movies []models.Movie
	for {
		list, err := store.List(cmd.Context(), q)
		if err != nil {
			return nil, err
		}
		movies = append(movies, list.Movies...)
		if q.Page >= list.Pagination.Pages {
			return movies, nil
		}
		q.Page++
	}
}

func writeCSV(w io.Writer, movies []models.Movie) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "title", "genre", "year", "duration", "director", "cast", "average_rating", "created_at"}); err != nil {
		return err
	}
	for _, m := range movies {
		row := []string{
			strconv.FormatInt(m.ID, 10),
			m.Title,
			m.Genre,
			optInt(m.Year),
			optInt(m.Duration),
			derefString(m.Director),
			derefString(m.Cast),
			rating(m.AverageRating),
			m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// publicError drops internal detail from expected failures.
func publicError(err error) error {
	if apperr.KindOf(err) == apperr.KindInternal {
		return err
	}
	return errors.New(apperr.PublicMessage(err))
}

func fileSize(path string) string {
	st, err := os.Stat(path)
	if err != nil {
		return "missing"
	}
	return humanize.Bytes(uint64(st.Size()))
}

func optInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func rating(r *float64) string {
	if r == nil {
		return "-"
	}
	return strconv.FormatFloat(*r, 'f', 1, 64)
}
