package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zenGate-Global/clubportal/apps/cli/backend"
)

// Command seeds the administrator account. Re-running it is harmless.
func Command(open backend.Opener) *cobra.Command {
	var (
		username string
		password string
	)

	c := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the initial administrator account",
		Long:  "Create the administrator account unless a user with that username already exists. Existing accounts are never modified.",
		RunE: func(cmd *cobra.Command, args []string) error {
			username = strings.TrimSpace(username)
			if password == "" {
				password = os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
			}
			if username == "" || password == "" {
				return errors.New("--admin-username and --admin-password (or BOOTSTRAP_ADMIN_PASSWORD) are required")
			}

			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			user, created, err := b.Users.EnsureAdmin(cmd.Context(), username, password)
			if err != nil {
				return fmt.Errorf("ensure admin: %w", err)
			}
			b.Logger.Info("bootstrap finished", zap.String("user_id", user.ID), zap.Bool("created", created))

			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Admin user created: %s (%s)\n", user.Username, user.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Admin user already present: %s (%s)\n", user.Username, user.ID)
			}
			return nil
		},
	}

	c.Flags().StringVar(&username, "admin-username", "admin", "administrator username")
	c.Flags().StringVar(&password, "admin-password", "", "administrator password; defaults to BOOTSTRAP_ADMIN_PASSWORD")
	return c
}
