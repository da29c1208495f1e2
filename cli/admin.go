package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cinestream/cinestream/internal/auth"
	"github.com/cinestream/cinestream/pkg/utils"
	"github.com/gin-gonic/gin/binding"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const minPasswordLen = 6

// adminAccount carries the same rules the register endpoint binds with.
type adminAccount struct {
	Username string `binding:"required,min=3,max=50"`
	Email    string `binding:"required,email"`
}

func (a adminAccount) validate() error {
	err := binding.Validator.ValidateStruct(a)
	switch {
	case err == nil:
		return nil
	case utils.FieldFailed(err, "Username", "required"):
		return fmt.Errorf("username is required (--username)")
	case utils.FieldFailed(err, "Email", "required"), utils.FieldFailed(err, "Email", "email"):
		return fmt.Errorf("a valid email is required (--email)")
	default:
		return fmt.Errorf("username must be 3-50 characters (--username)")
	}
}

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}
	cmd.AddCommand(newAdminCreateCmd(), newAdminPromoteCmd())
	return cmd
}

func newAdminCreateCmd() *cobra.Command {
	var (
		username      string
		email         string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator account",
		Long: `Create an account with admin rights. The password is prompted for twice,
or read from the first line of stdin with --password-stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			username = strings.TrimSpace(username)
			email = strings.TrimSpace(email)
			if err := (adminAccount{Username: username, Email: email}).validate(); err != nil {
				return err
			}

			var password string
			var err error
			if passwordStdin {
				password, err = readPasswordLine(cmd.InOrStdin())
			} else {
				password, err = promptPassword(cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}
			if len(password) < minPasswordLen {
				return fmt.Errorf("password must be at least %d characters", minPasswordLen)
			}

			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			hash, err := utils.HashPassword(password)
			if err != nil {
				return err
			}
			user, err := auth.NewStore(e.db).Create(cmd.Context(), username, email, hash, true)
			if err != nil {
				if errors.Is(err, auth.ErrUserExists) {
					return fmt.Errorf("a user with that username or email already exists")
				}
				return err
			}
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Admin %s created (id %d)", user.Username, user.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func newAdminPromoteCmd() *cobra.Command {
	var (
		email  string
		revoke bool
	)
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Grant or revoke admin rights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("email is required (--email)")
			}

			e, err := loadEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := auth.NewStore(e.db).SetAdmin(cmd.Context(), strings.TrimSpace(email), !revoke); err != nil {
				if errors.Is(err, auth.ErrUserNotFound) {
					return fmt.Errorf("no user with email %s", email)
				}
				return err
			}
			if revoke {
				printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Admin rights revoked for %s", email))
			} else {
				printSuccess(cmd.OutOrStdout(), fmt.Sprintf("%s is now an admin", email))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove admin rights instead of granting them")
	return cmd
}

func promptPassword(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; use --password-stdin")
	}

	fmt.Fprint(w, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprint(w, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

func readPasswordLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
