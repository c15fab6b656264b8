package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// Flags shared by several commands.
const (
	flagConfig = "config"
	flagRules  = "rules"
	flagJSON   = "json"
)

// NewRootCommand builds the pretender command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pretender",
		Short: "pretender is a local HTTP proxy that mocks matching requests",
		Long: `pretender sits between a client and the network. Requests matching a rule
in the rule file are answered with a templated JSON response; everything else
is forwarded to the real origin.

Process settings come from defaults, an optional YAML file (--config),
PRETENDER_* environment variables and command flags, in that order.
The rule file is re-read whenever it changes.`,
		SilenceUsage:  true,
		SilenceErrors: true, // We handle errors in Execute()
	}
	root.PersistentFlags().StringP(flagConfig, "c", "", "Path to the process configuration file (YAML)")

	root.AddCommand(
		newServeCommand(),
		newValidateCommand(),
		newInitCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line. Without a subcommand it serves.
// This is called by main.main().
func Execute() {
	root := NewRootCommand()
	root.SetArgs(withDefaultCommand(root, os.Args[1:]))
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withDefaultCommand prepends "serve" unless args already name a
// subcommand or ask for help.
func withDefaultCommand(root *cobra.Command, args []string) []string {
	for _, arg := range args {
		switch arg {
		case "-h", "--help", "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return args
		}
	}
	if cmd, _, err := root.Find(args); err == nil && cmd != root {
		return args
	}
	return append([]string{"serve"}, args...)
}
