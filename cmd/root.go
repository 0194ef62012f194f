package cmd

import (
	"context"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/xschemadev/gerrit-dash/config"
	"github.com/xschemadev/gerrit-dash/logger"
	"github.com/xschemadev/gerrit-dash/ui"
)

// Version information set by goreleaser
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string

	// conf is loaded before any subcommand runs
	conf *config.Config

	// appFs is swapped for an in-memory filesystem in tests
	appFs afero.Fs = afero.NewOsFs()
)

var rootCmd = &cobra.Command{
	Use:   "gerrit-dash",
	Short: "Gerrit dashboard URLs from dashboard definition files",
	Long: `gerrit-dash turns dashboard definitions (INI files with a [dashboard]
section and [section "<label>"] queries) into Gerrit dashboard URLs, and
builds dashboards from the reviews attached to in-progress bugs.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("gerrit-dash {{.Version}} (" + commit + ", " + date + ")\n")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "show verbose output")
}

// setup loads the configuration and points console and log output at stderr,
// leaving stdout to URLs and rendered templates
func setup(cmd *cobra.Command, args []string) error {
	stderr := cmd.ErrOrStderr()
	ui.SetOutput(stderr)

	c, err := config.Load(appFs, configPath, cmd.Flags())
	if err != nil {
		ui.ErrorMsg("Failed to load configuration", err)
		return err
	}
	conf = c

	ui.SetVerbose(conf.Verbose)
	logger.SetLogger(logger.NewWriter(stderr, conf.Verbose))

	if conf.File != "" {
		ui.Verbosef("using config file %s", conf.File)
	}
	return nil
}
