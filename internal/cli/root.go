// Package cli is the byway-admin command line. Without a subcommand it opens
// the dashboard; the subcommands cover sign-in and scripted catalogue work.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/byway-lms/byway-admin/internal/auth"
	"github.com/byway-lms/byway-admin/internal/config"
	"github.com/byway-lms/byway-admin/internal/logging"
	"github.com/byway-lms/byway-admin/internal/telemetry"
	"github.com/byway-lms/byway-admin/pkg/client"
	"github.com/byway-lms/byway-admin/pkg/routes"
	"github.com/byway-lms/byway-admin/pkg/session"
)

// Options adjusts how the command reads its environment. The zero value uses
// the process environment and a .env file in the working directory.
type Options struct {
	// Lookuper replaces the process environment.
	Lookuper envconfig.Lookuper
	// ReadPassword replaces the terminal password prompt.
	ReadPassword func() (string, error)
}

// app is what every subcommand runs against, built once per invocation.
type app struct {
	version string
	opts    Options

	flagAPIURL    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
	flagOutput    string

	cfg      config.Config
	log      zerolog.Logger
	logFile  io.Closer
	registry *prometheus.Registry
	client   *client.Client
	guard    *session.Guard
	router   *routes.Router
	auth     *auth.Service
	shutdown telemetry.Shutdown
}

// NewRootCmd creates the root command.
func NewRootCmd(version string) *cobra.Command {
	return newRootCmd(version, Options{})
}

// NewRootCmdWithOptions is NewRootCmd with an injected environment.
func NewRootCmdWithOptions(version string, opts Options) *cobra.Command {
	return newRootCmd(version, opts)
}

func newRootCmd(version string, opts Options) *cobra.Command {
	return (&app{version: version, opts: opts}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "byway-admin",
		Short: "Administer the Byway e-learning catalogue",
		Long: "byway-admin manages Byway courses and instructors from the terminal.\n" +
			"Run it without arguments to open the dashboard.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDashboard(cmd)
		},
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flagAPIURL, "api-url", "", "Byway API URL (or BYWAY_API_URL)")
	pf.BoolVar(&a.flagDebug, "debug", false, "Enable debug logging")
	pf.StringVar(&a.flagLogLevel, "log-level", "", "Log level: trace, debug, info, warn, error (or BYWAY_LOG_LEVEL)")
	pf.StringVar(&a.flagLogFormat, "log-format", "", "Log format: console, json (or BYWAY_LOG_FORMAT)")
	pf.StringVarP(&a.flagOutput, "output", "o", formatTable, "Output format: table, json, yaml")

	root.AddCommand(
		newLoginCmd(a),
		newGoogleLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newStatsCmd(a),
		newCoursesCmd(a),
		newInstructorsCmd(a),
		newVersionCmd(a),
	)
	closeAfterRun(root, a)
	return root
}

// closeAfterRun wraps every RunE so the log file and tracer are released even
// when the command fails. Cobra skips post-run hooks after an error.
func closeAfterRun(cmd *cobra.Command, a *app) {
	for _, sub := range cmd.Commands() {
		closeAfterRun(sub, a)
	}
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.close(cmd.Context()); err == nil {
				err = cerr
			}
		}()
		return run(cmd, args)
	}
}

// setup loads configuration and builds the shared services.
func (a *app) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	if a.opts.Lookuper != nil {
		a.cfg, err = config.LoadFrom(ctx, a.opts.Lookuper)
	} else {
		a.cfg, err = config.Load(ctx)
	}
	if err != nil {
		return err
	}
	if a.flagAPIURL != "" {
		a.cfg.APIURL = a.flagAPIURL
	}
	if a.flagLogLevel != "" {
		a.cfg.LogLevel = a.flagLogLevel
	}
	if a.flagDebug {
		a.cfg.LogLevel = "debug"
	}
	if a.flagLogFormat != "" {
		a.cfg.LogFormat = a.flagLogFormat
	}
	if err := validFormat(a.flagOutput); err != nil {
		return err
	}

	// The dashboard owns the terminal, so its logs go to a file.
	var w io.Writer = cmd.ErrOrStderr()
	if cmd == cmd.Root() {
		f, err := logging.OpenFile(a.cfg.LogPath())
		if err != nil {
			return fmt.Errorf("cli.setup: %w", err)
		}
		a.logFile = f
		w = f
	}
	a.log = logging.New(a.cfg.LogLevel, a.cfg.LogFormat, w).With().Str("version", a.version).Logger()

	a.shutdown, err = telemetry.InitTracing(ctx, a.version, a.cfg.OTLPEndpoint)
	if err != nil {
		a.log.Warn().Err(err).Msg("tracing disabled")
		a.shutdown = func(context.Context) error { return nil }
	}

	a.registry = telemetry.NewRegistry()
	a.guard = session.NewGuard(session.NewFileStore(a.cfg.TokenPath()))
	a.client = client.New(a.cfg.APIURL, a.guard,
		client.WithTimeout(a.cfg.HTTPTimeout),
		client.WithLogger(a.log),
		client.WithMetrics(client.NewMetrics(a.registry)),
	)
	routerOpts := []routes.Option{routes.WithLogger(a.log)}
	if a.cfg.DevBypassAuth {
		routerOpts = append(routerOpts, routes.WithDevBypass())
	}
	a.router = routes.New(a.guard, routerOpts...)
	a.auth = auth.NewService(a.client, a.guard, a.log)

	a.log.Debug().Str("api", a.cfg.APIURL).Str("token", a.cfg.TokenPath()).Msg("configured")
	return nil
}

func (a *app) close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var err error
	if a.shutdown != nil {
		err = a.shutdown(ctx)
		a.shutdown = nil
	}
	if a.logFile != nil {
		a.logFile.Close() //nolint:errcheck
		a.logFile = nil
	}
	return err
}

// requireAdmin applies the route guard to path for a command that talks to
// protected endpoints.
func (a *app) requireAdmin(path string) error {
	switch a.router.Decide(path) {
	case routes.RedirectToLogin:
		return errNotSignedIn
	case routes.RedirectToUnauthorized:
		return fmt.Errorf("%w: run byway-admin logout and sign in with an admin account", session.ErrMissingRole)
	}
	return nil
}

func (a *app) printer(cmd *cobra.Command) printer {
	return printer{w: cmd.OutOrStdout(), format: a.flagOutput}
}
