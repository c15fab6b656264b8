package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pretender-dev/pretender/pkg/config"
	"github.com/pretender-dev/pretender/pkg/engine"
	"github.com/pretender-dev/pretender/pkg/logging"
	"github.com/pretender-dev/pretender/pkg/rules"
)

type serveFlags struct {
	port            int
	rules           string
	workers         int
	recheckInterval string
	logLevel        string
	logFormat       string
	metricsAddr     string
	initMissing     bool
}

func newServeCommand() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the proxy (default command)",
		Long: `Start the proxy in the foreground.

Requests are matched against the rule file in declaration order. A matching
rule answers with its templated JSON body; a rule whose header constraints
fail answers 401; anything else is forwarded to the real origin.
The proxy shuts down gracefully on SIGINT or SIGTERM.`,
		Example: `  # Start with defaults (port 8888, config/mock_config.yaml)
  pretender

  # Custom port and rule file, creating the file if it is missing
  pretender serve --port 9000 --rules ./mocks.yaml --init-missing

  # Debug logging as JSON
  pretender serve --log-level debug --log-format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f.overrides(cmd))
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, f.initMissing)
		},
	}

	fs := cmd.Flags()
	fs.IntVarP(&f.port, "port", "p", config.DefaultPort, "Listen port")
	fs.StringVarP(&f.rules, flagRules, "r", config.DefaultRulesFile, "Path to the rule file")
	fs.IntVarP(&f.workers, "workers", "w", 0, "Worker pool size for delayed responses")
	fs.StringVar(&f.recheckInterval, "recheck-interval", "", "Minimum interval between rule file checks (e.g. 1s)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.logFormat, "log-format", "", "Log format (text, json)")
	fs.StringVar(&f.metricsAddr, "metrics-address", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	fs.BoolVar(&f.initMissing, "init-missing", false, "Write a starter rule file if none exists")

	return cmd
}

// overrides returns the configuration keys for flags set on the command
// line. Unset flags leave file and environment values alone.
func (f *serveFlags) overrides(cmd *cobra.Command) map[string]any {
	out := map[string]any{}
	fs := cmd.Flags()
	if fs.Changed("port") {
		out["port"] = f.port
	}
	if fs.Changed(flagRules) {
		out["rules_file"] = f.rules
	}
	if fs.Changed("workers") {
		out["workers"] = f.workers
	}
	if fs.Changed("recheck-interval") {
		out["recheck_interval"] = f.recheckInterval
	}
	if fs.Changed("log-level") {
		out["log.level"] = f.logLevel
	}
	if fs.Changed("log-format") {
		out["log.format"] = f.logFormat
	}
	if fs.Changed("metrics-address") {
		out["metrics.address"] = f.metricsAddr
	}
	return out
}

// loadConfig reads the process configuration named by --config.
func loadConfig(cmd *cobra.Command, overrides map[string]any) (*config.ServerConfiguration, error) {
	path, _ := cmd.Flags().GetString(flagConfig)
	return config.Load(config.LoadOptions{File: path, Overrides: overrides})
}

func runServe(ctx context.Context, cfg *config.ServerConfiguration, initMissing bool) error {
	log, closer := logging.Open(cfg.LoggingConfig())
	defer closer.Close()

	if initMissing {
		switch err := rules.WriteStarter(cfg.RulesFile, false); {
		case err == nil:
			log.Info("created starter rule file", "path", cfg.RulesFile)
		case errors.Is(err, rules.ErrFileExists):
		default:
			return err
		}
	}

	srv, err := engine.NewServer(cfg, engine.WithLogger(log))
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
