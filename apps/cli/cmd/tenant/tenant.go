package tenantcmd

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/clubportal/apps/cli/backend"
	"github.com/zenGate-Global/clubportal/domains/tenants/be/service"
	"github.com/zenGate-Global/clubportal/platform/go/tenant"
)

// Command groups tenant lifecycle helpers.
func Command(open backend.Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant lifecycle (create, list, activate, deactivate, delete)",
	}

	cmd.AddCommand(createCommand(open))
	cmd.AddCommand(listCommand(open))
	cmd.AddCommand(statusCommand(open, "activate", tenant.StatusActive))
	cmd.AddCommand(statusCommand(open, "deactivate", tenant.StatusInactive))
	cmd.AddCommand(deleteCommand(open))
	return cmd
}

func createCommand(open backend.Opener) *cobra.Command {
	var (
		name        string
		displayName string
		theme       string
		logo        string
		modules     []string
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := service.CreateInput{
				Name:        name,
				DisplayName: optional(displayName),
				ThemeRef:    optional(theme),
				LogoURL:     optional(logo),
			}
			// An explicit empty --modules="" enables nothing; omitting the flag applies the default set.
			if cmd.Flags().Changed("modules") {
				input.EnabledModuleIDs = compact(modules)
			}

			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			t, err := b.Tenants.Create(cmd.Context(), input)
			if err != nil {
				return fmt.Errorf("create tenant: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tenant created: %s (%s) modules=%s\n", t.Name, t.ID, strings.Join(t.EnabledModuleIDs, ","))
			return nil
		},
	}

	c.Flags().StringVar(&name, "name", "", "tenant name")
	c.Flags().StringVar(&displayName, "display-name", "", "display name (defaults to name)")
	c.Flags().StringVar(&theme, "theme", "", "predefined theme key or custom theme id")
	c.Flags().StringVar(&logo, "logo", "", "logo URL")
	c.Flags().StringSliceVar(&modules, "modules", nil, "enabled module ids (comma-separated)")
	_ = c.MarkFlagRequired("name")
	return c
}

func listCommand(open backend.Opener) *cobra.Command {
	var status string

	c := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			tenants, err := b.Tenants.List(cmd.Context(), service.ListOptions{Status: optional(status)})
			if err != nil {
				return fmt.Errorf("list tenants: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tTHEME")
			for _, t := range tenants {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.EffectiveDisplayName(), t.Status, t.ThemeRef)
			}
			return tw.Flush()
		},
	}
	c.Flags().StringVar(&status, "status", "", "filter by status (active, inactive)")
	return c
}

func statusCommand(open backend.Opener, use, status string) *cobra.Command {
	short := "Activate a tenant (its users stay as they are)"
	if status == tenant.StatusInactive {
		short = "Deactivate a tenant and all of its users"
	}

	return &cobra.Command{
		Use:   use + " <tenant-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			t, err := b.Tenants.Update(cmd.Context(), args[0], service.UpdateInput{Status: &status})
			if err != nil {
				return describeCascade(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s is %s\n", t.ID, t.Status)
			return nil
		},
	}
}

func deleteCommand(open backend.Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <tenant-id>",
		Short: "Delete a tenant with its players and users",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.Tenants.Delete(cmd.Context(), args[0]); err != nil {
				return describeCascade(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s deleted\n", args[0])
			return nil
		},
	}
}

func describeCascade(err error) error {
	var cascadeErr *service.CascadeError
	if errors.As(err, &cascadeErr) {
		return fmt.Errorf("%w (phase %s left %d record(s); re-run the command to retry)", err, cascadeErr.Phase, len(cascadeErr.FailedIDs))
	}
	return err
}

func optional(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func compact(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
