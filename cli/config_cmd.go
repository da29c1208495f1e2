package cli

import (
	"fmt"

	"github.com/cinestream/cinestream/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const redacted = "********"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Print the configuration after .env, CONFIG_FILE and environment overrides
are applied, as YAML suitable for CONFIG_FILE. Secrets are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.UsingDefaultSecret() {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: JWT secret is the built-in default")
			}

			masked := *cfg
			if masked.Auth.JWTSecret != "" {
				masked.Auth.JWTSecret = redacted
			}
			if masked.SentryDSN != "" {
				masked.SentryDSN = redacted
			}

			out, err := yaml.Marshal(&masked)
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	return cmd
}
