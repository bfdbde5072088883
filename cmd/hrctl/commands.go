package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lee-tech/hrportal/config"
	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/lee-tech/hrportal/internal/service"
	"github.com/spf13/cobra"
)

// newBootstrapCmd creates the root organization and super admin employee
func newBootstrapCmd(run appRunner) *cobra.Command {
	var flags struct {
		orgName   string
		orgDesc   string
		orgDomain string
		email     string
		code      string
		firstName string
		lastName  string
	}
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create or refresh the root organization and super admin",
		Long: `Ensure the root organization and its super admin employee exist.

Flags override the BOOTSTRAP_* environment settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, cfg *config.HRConfig, app *coreServer.HTTPApp) error {
				auth, err := coreServer.Resolve[*service.AuthenticationService](app, constants.ComponentKey.AuthenticationService)
				if err != nil {
					return err
				}
				org, admin, err := auth.BootstrapAdmin(ctx, &service.BootstrapAdminInput{
					OrganizationName:        choose(flags.orgName, cfg.BootstrapOrganizationName),
					OrganizationDescription: strings.TrimSpace(flags.orgDesc),
					OrganizationDomain:      choose(flags.orgDomain, cfg.BootstrapOrganizationDomain),
					AdminEmail:              choose(flags.email, cfg.BootstrapAdminEmail),
					AdminCode:               choose(flags.code, cfg.BootstrapAdminCode),
					AdminFirstName:          choose(flags.firstName, cfg.BootstrapAdminFirstName),
					AdminLastName:           choose(flags.lastName, cfg.BootstrapAdminLastName),
				})
				if err != nil {
					return fmt.Errorf("bootstrap failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Bootstrap successful. Organization %s is active. Super admin %s (%s) ready.\n",
					org.Name, admin.EmployeeCode, valueOr(admin.Email, "no email"))
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.orgName, "org-name", "", "Name of the root organization")
	f.StringVar(&flags.orgDesc, "org-description", "", "Description of the root organization")
	f.StringVar(&flags.orgDomain, "org-domain", "", "Domain of the root organization")
	f.StringVar(&flags.email, "admin-email", "", "Email address of the super admin")
	f.StringVar(&flags.code, "admin-code", "", "Employee code of the super admin")
	f.StringVar(&flags.firstName, "admin-first-name", "", "First name of the super admin")
	f.StringVar(&flags.lastName, "admin-last-name", "", "Last name of the super admin")
	return cmd
}

// newImportCmd imports a spreadsheet synchronously
func newImportCmd(run appRunner) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import employees from an .xlsx or .xls file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read spreadsheet: %w", err)
			}
			name := filepath.Base(args[0])

			return run(cmd, func(ctx context.Context, _ *config.HRConfig, app *coreServer.HTTPApp) error {
				imports, err := coreServer.Resolve[*service.ImportService](app, constants.ComponentKey.ImportService)
				if err != nil {
					return err
				}
				if dryRun {
					preview, err := imports.Preview(name, data)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), preview.Analysis)
				}

				rows, err := imports.Parse(name, data)
				if err != nil {
					return err
				}
				resp, err := imports.ImportAll(ctx, rows)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, result := range resp.Results {
					if !result.Success {
						fmt.Fprintf(out, "  %s: %s\n", result.UserData.EmployeeCode, result.Error)
					}
				}
				fmt.Fprintf(out, "Imported %d of %d employees (%d failed)\n",
					resp.Summary.Successful, resp.Summary.Total, resp.Summary.Failed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and summarise the file without importing")
	return cmd
}

// newReconcileCmd links manager ids from manager codes
func newReconcileCmd(run appRunner) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Link employees to their managers by manager code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, _ *config.HRConfig, app *coreServer.HTTPApp) error {
				hierarchy, err := coreServer.Resolve[*service.HierarchyService](app, constants.ComponentKey.HierarchyService)
				if err != nil {
					return err
				}
				report, err := hierarchy.Reconcile(ctx, dryRun)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the changes without writing them")
	return cmd
}

// newOrgChartCmd prints the org chart
func newOrgChartCmd(run appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "orgchart",
		Short: "Print the org chart as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, _ *config.HRConfig, app *coreServer.HTTPApp) error {
				hierarchy, err := coreServer.Resolve[*service.HierarchyService](app, constants.ComponentKey.HierarchyService)
				if err != nil {
					return err
				}
				chart, err := hierarchy.OrgChart(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), chart)
			})
		},
	}
}

// newUnlockCmd clears the lockout of one employee
func newUnlockCmd(run appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <employee-code>",
		Short: "Clear a sign-in lockout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, _ *config.HRConfig, app *coreServer.HTTPApp) error {
				auth, err := coreServer.Resolve[*service.AuthenticationService](app, constants.ComponentKey.AuthenticationService)
				if err != nil {
					return err
				}
				employee, err := auth.UnlockEmployee(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Unlocked %s\n", employee.EmployeeCode)
				return nil
			})
		},
	}
}

func choose(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(fallback)
}

func valueOr(value *string, fallback string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return fallback
	}
	return *value
}
