// Package cli implements moviectl, the operator tool for a CineStream
// deployment. It talks to the database directly using the server's config.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/cinestream/cinestream/pkg/config"
	"github.com/cinestream/cinestream/pkg/database"
	"github.com/cinestream/cinestream/pkg/logger"
	"github.com/spf13/cobra"
)

var Version = "dev"

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "moviectl",
		Short: "CineStream administration",
		Long: `moviectl manages a CineStream deployment: schema, admin accounts and the movie catalog.
It reads the same .env, CONFIG_FILE and environment variables as the API server.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newAdminCmd(),
		newMoviesCmd(),
		newConfigCmd(),
		newSystemCmd(),
	)
	return root
}

func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		printError(root.ErrOrStderr(), err.Error())
	}
	return err
}

func printError(w io.Writer, msg string) {
	fmt.Fprintf(w, "✗ %s\n", msg)
}

func printSuccess(w io.Writer, msg string) {
	fmt.Fprintf(w, "✓ %s\n", msg)
}

// env is the loaded configuration and an open, migrated database.
type env struct {
	cfg *config.Config
	db  *database.DB
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(logger.LogLevel(cfg.Logging.Level), cfg.Logging.Format == "json", os.Stderr)

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, db: db}, nil
}

func (e *env) Close() error {
	return e.db.Close()
}
