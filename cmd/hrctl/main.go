package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lee-tech/hrportal/config"
	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/lee-tech/hrportal/internal/archive"
	_ "github.com/lee-tech/hrportal/internal/events"
	_ "github.com/lee-tech/hrportal/internal/metrics"
	_ "github.com/lee-tech/hrportal/internal/notify"
	_ "github.com/lee-tech/hrportal/internal/repository"
	_ "github.com/lee-tech/hrportal/internal/service"
)

var (
	// loadConfig reads the portal configuration; tests replace it.
	loadConfig = config.Load
	// logger overrides the process logger when set.
	logger *zap.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the hrctl command tree.
func newRootCmd() *cobra.Command {
	var timeout time.Duration
	root := &cobra.Command{
		Use:   "hrctl",
		Short: "Administer the HR portal database",
		Long: `hrctl runs portal maintenance against the configured database.

Available subcommands:
  bootstrap - Create or refresh the root organization and super admin
  import    - Import employees from an .xlsx or .xls file
  reconcile - Link employees to their managers by manager code
  orgchart  - Print the org chart as JSON
  unlock    - Clear a sign-in lockout`,
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Abort the command after this long")

	run := func(cmd *cobra.Command, fn appFunc) error {
		return withApp(cmd, timeout, fn)
	}
	root.AddCommand(
		newBootstrapCmd(run),
		newImportCmd(run),
		newReconcileCmd(run),
		newOrgChartCmd(run),
		newUnlockCmd(run),
	)
	return root
}

type appFunc func(ctx context.Context, cfg *config.HRConfig, app *coreServer.HTTPApp) error

type appRunner func(cmd *cobra.Command, fn appFunc) error

// withApp builds the component container without HTTP routes and hands it to fn.
func withApp(cmd *cobra.Command, timeout time.Duration, fn appFunc) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app, err := coreServer.InitializeHTTPApp(cfg.Config, &coreServer.HTTPAppOptions{
		InitialComponents:   map[string]any{constants.ComponentKey.HRConfig: cfg},
		DisableHealthRoutes: true,
		DisableHandlers:     true,
		Logger:              logger,
	})
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Shutdown(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to shutdown cleanly: %v\n", err)
		}
	}()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	return fn(ctx, cfg, app)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
