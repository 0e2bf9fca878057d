package auth

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	platformauth "github.com/zenGate-Global/clubportal/platform/go/auth"
)

func devTokenCommand() *cobra.Command {
	var (
		creds    platformauth.UserCredentials
		clientID string
		secret   string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Sign a session token for local API calls",
		Long:  "Sign an HS256 session token with the API's JWT secret. The user is not looked up; use for local development only.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return errors.New("--secret or JWT_SECRET is required")
			}
			switch creds.Role {
			case platformauth.RoleAdmin:
				if clientID != "" {
					return errors.New("admin tokens carry no --client-id")
				}
			case platformauth.RoleTenantStaff, platformauth.RolePlayer:
				if clientID == "" {
					return fmt.Errorf("--client-id is required for role %s", creds.Role)
				}
				creds.TenantID = &clientID
			default:
				return fmt.Errorf("unknown role %q", creds.Role)
			}

			issuer, err := platformauth.NewTokenIssuer(secret, ttl)
			if err != nil {
				return err
			}
			token, expiresAt, err := issuer.Issue(creds)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.ID, "user-id", "", "user id (sub claim)")
	cmd.Flags().StringVar(&creds.Username, "username", "", "username claim")
	cmd.Flags().StringVar(&creds.Role, "role", platformauth.RoleAdmin, "admin, tenant_staff or player")
	cmd.Flags().StringVar(&clientID, "client-id", "", "tenant id for tenant_staff and player tokens")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret; defaults to JWT_SECRET")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime (e.g. 30m, 2h)")

	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}
