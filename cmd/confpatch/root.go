package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/yeti/confpatch"
	"github.com/yeti/confpatch/internal/conf"
	"github.com/yeti/confpatch/internal/logging"
	"github.com/yeti/confpatch/internal/metrics"
	"github.com/yeti/confpatch/transport"
)

// app holds the global flags and the state shared by the subcommands.
type app struct {
	verbosity  int
	dryRun     bool
	host       string
	configFile string

	cfg     conf.Config
	metrics *metrics.Recorder
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		metrics: metrics.New(),
		stdout:  stdout,
		stderr:  stderr,
	}

	cmd := &cobra.Command{
		Use:   "confpatch",
		Short: "Set values in config files without rewriting them",
		Long: `confpatch makes sure settings are present in line oriented config files such
as postgresql.conf or pg_hba.conf. Matching lines are uncommented and updated,
duplicates are commented out, missing settings are appended. Comments and the
order of lines are kept, and running it again changes nothing.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.CountVarP(&a.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	flags.BoolVar(&a.dryRun, "dry-run", false, "Show the changes without writing anything")
	flags.StringVar(&a.host, "host", "", "Patch files on [user@]host[:port] over SSH instead of locally")
	flags.StringVar(&a.configFile, "config", "", "Tool configuration file (default $XDG_CONFIG_HOME/confpatch/config.toml)")

	cmd.AddCommand(newSetCmd(a), newApplyCmd(a), newVersionCmd())

	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	src := conf.DefaultSource()
	if a.configFile != "" {
		src = conf.FileSource(a.configFile)
	}

	cfg, err := src.Read()
	if err != nil {
		return err
	}
	a.cfg = cfg

	logging.SetupLogger(a.stderr, cfg.LogLevel, a.verbosity)
	log.Debug().Str("command", cmd.Name()).Str("config", src.Path).Msg("Command started")

	return nil
}

// transportCloser is a transport that may hold a connection.
type transportCloser interface {
	confpatch.Transport
	io.Closer
}

type nopCloser struct {
	confpatch.Transport
}

func (nopCloser) Close() error { return nil }

// connect returns the transport for the --host flag.
func (a *app) connect(ctx context.Context) (transportCloser, error) {
	if a.host == "" {
		sudo, err := transport.NewSudo(transport.LocalRunner{}, a.cfg.SudoCommand)
		if err != nil {
			return nil, err
		}

		return nopCloser{transport.NewLocal(sudo)}, nil
	}

	logger := logging.GetLogger("ssh")
	logger.Info().Str("host", a.host).Msg("Connecting")

	return transport.DialSSH(ctx, transport.SSHConfig{
		Host:        a.host,
		User:        a.cfg.SSHUser,
		Agent:       a.cfg.SSHAgent,
		KeyFile:     a.cfg.SSHKeyFile,
		KnownHosts:  a.cfg.SSHKnownHosts,
		Insecure:    a.cfg.SSHInsecure,
		Timeout:     a.cfg.SSHTimeout,
		SudoCommand: a.cfg.SudoCommand,
	})
}

// patch runs one target and prints a summary line.
func (a *app) patch(ctx context.Context, t confpatch.Transport, name, path string, settings []confpatch.Setting, opts confpatch.Options) error {
	logger := logging.GetLogger(name)

	opts.DryRun = a.dryRun
	if opts.BackupSuffix == "" {
		opts.BackupSuffix = a.cfg.BackupSuffix
	}
	opts.Reporter = confpatch.MultiReporter{
		logging.NewEventReporter(logger, path),
		a.metrics.Reporter(name),
	}

	res, err := confpatch.ModifyFile(ctx, t, path, settings, opts)
	a.metrics.ObserveRun(name, res, a.dryRun, err)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	a.printResult(name, path, res)

	return nil
}

func (a *app) printResult(name, path string, res *confpatch.Result) {
	switch metrics.Result(res, a.dryRun, nil) {
	case metrics.ResultUnchanged:
		fmt.Fprintf(a.stdout, "%s: %s is up to date\n", name, path)

		return
	case metrics.ResultDryRun:
		fmt.Fprintf(a.stdout, "%s: %s would change\n", name, path)
	default:
		fmt.Fprintf(a.stdout, "%s: %s changed (%d set, %d appended)\n", name, path, len(res.Applied), len(res.Appended))
	}

	for _, e := range res.Events {
		if !e.Changed() {
			continue
		}
		if e.Before != "" {
			fmt.Fprintf(a.stdout, "  %d: -%s\n", e.Line, e.Before)
		}
		fmt.Fprintf(a.stdout, "  %d: +%s\n", e.Line, e.After)
	}
}

// finish exports the metrics if configured.
func (a *app) finish() error {
	if a.cfg.MetricsFile == "" {
		return nil
	}

	return a.metrics.WriteTextfile(a.cfg.MetricsFile)
}
