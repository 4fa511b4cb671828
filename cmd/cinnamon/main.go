package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ajaimes/cinnamon/internal/demo"
	"github.com/ajaimes/cinnamon/internal/utils"
	"github.com/ajaimes/cinnamon/pkg/cinnamon"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootOptions carries the persistent flags and the application wiring shared
// by every subcommand
type rootOptions struct {
	configFile string
	logLevel   string
	verbose    bool
	quiet      bool

	// register fills the registry served and listed by the commands
	register func(*cinnamon.Registry) error
}

func main() {
	if err := newRootCmd(&rootOptions{register: demo.Register}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cinnamon",
		Short: "Convention-based MVC dispatch for Go web servers",
		Long: `Cinnamon maps /Class/method/param URLs onto registered handlers,
binds request parameters to action arguments and renders the result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (yaml, toml or json)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "only show errors")

	rootCmd.AddCommand(
		serveCmd(opts),
		routesCmd(opts),
		analyzeCmd(opts),
		versionCmd(),
	)
	return rootCmd
}

// diagnostics returns the human output channel for cmd
func (o *rootOptions) diagnostics(cmd *cobra.Command) *utils.DiagnosticSystem {
	var d *utils.DiagnosticSystem
	switch {
	case o.quiet:
		d = utils.NewQuietDiagnostics()
	case o.verbose:
		d = utils.NewVerboseDiagnostics()
	default:
		d = utils.NewDiagnosticSystem(utils.DiagnosticInfo)
	}
	if cmd.OutOrStdout() != os.Stdout {
		d.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
	}
	return d
}

// registry builds the handler registry
func (o *rootOptions) registry() (*cinnamon.Registry, error) {
	reg := cinnamon.NewRegistry()
	if o.register == nil {
		return reg, nil
	}
	if err := o.register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func initLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	pfxlog.GlobalInit(lvl, pfxlog.DefaultOptions().SetTrimPrefix("github.com/ajaimes/"))
	return nil
}
