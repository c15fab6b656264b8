// Package cli provides the command-line interface for pretender.
//
// The cli package implements the commands:
//   - serve: run the proxy in the foreground (the default when no command is given)
//   - validate: check a rule file and list its rules
//   - init: write a starter rule file and optionally an interception CA
//   - version: show build information
//
// Process configuration is resolved by pkg/config: defaults, then the
// --config file, then PRETENDER_* environment variables, then flags.
package cli
