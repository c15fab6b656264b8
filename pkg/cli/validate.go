package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pretender-dev/pretender/pkg/cli/internal/output"
	"github.com/pretender-dev/pretender/pkg/rules"
)

// ValidateOutput is the JSON form of a validation result.
type ValidateOutput struct {
	Path  string         `json:"path"`
	Valid bool           `json:"valid"`
	Error string         `json:"error,omitempty"`
	Rules []RuleOverview `json:"rules,omitempty"`
}

// RuleOverview summarizes one compiled rule.
type RuleOverview struct {
	Index   int      `json:"index"`
	Method  string   `json:"method"`
	URL     string   `json:"url"`
	Status  int      `json:"status"`
	DelayMS int64    `json:"delay_ms,omitempty"`
	Headers []string `json:"headers,omitempty"`
}

func newValidateCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate [rule-file]",
		Short: "Check a rule file without starting the proxy",
		Long: `Check a rule file without starting the proxy.

This command checks:
  - YAML syntax
  - Structure (mocks list, required url/method/response keys, status codes, delays)
  - That every url and header pattern compiles

Without an argument the rule file from the process configuration is used.`,
		Example: `  # Validate the configured rule file
  pretender validate

  # Validate a specific file and print the result as JSON
  pretender validate ./mocks.yaml --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := rulePath(cmd, args)
			if err != nil {
				return err
			}
			return runValidate(cmd, path, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, flagJSON, false, "Output the result in JSON format")
	return cmd
}

func rulePath(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return "", err
	}
	return cfg.RulesFile, nil
}

func runValidate(cmd *cobra.Command, path string, jsonOutput bool) error {
	out := cmd.OutOrStdout()
	set, loadErr := rules.LoadFile(path)

	result := ValidateOutput{Path: path, Valid: loadErr == nil}
	if loadErr != nil {
		result.Error = loadErr.Error()
	} else {
		result.Rules = overview(set)
	}

	if jsonOutput {
		if err := output.JSON(out, result); err != nil {
			return err
		}
		if loadErr != nil {
			return fmt.Errorf("%s is invalid", path)
		}
		return nil
	}

	if loadErr != nil {
		return fmt.Errorf("%s is invalid: %w", path, loadErr)
	}

	fmt.Fprintf(out, "%s is valid (%d rules)\n", path, len(result.Rules))
	if len(result.Rules) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	tw := output.Table(out)
	fmt.Fprintln(tw, "#\tMETHOD\tURL\tSTATUS\tDELAY\tHEADERS")
	for _, r := range result.Rules {
		delay := "-"
		if r.DelayMS > 0 {
			delay = fmt.Sprintf("%dms", r.DelayMS)
		}
		headers := "-"
		if len(r.Headers) > 0 {
			headers = strings.Join(r.Headers, ", ")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", r.Index, r.Method, r.URL, r.Status, delay, headers)
	}
	return tw.Flush()
}

func overview(set *rules.RuleSet) []RuleOverview {
	list := make([]RuleOverview, 0, set.Len())
	for _, r := range set.Rules() {
		status := r.Response.Code
		if status == 0 {
			status = rules.DefaultStatusCode
		}
		ro := RuleOverview{
			Index:  r.Index,
			Method: strings.ToUpper(r.Method),
			URL:    r.URL,
			Status: status,
		}
		if r.Response.Delayed {
			ro.DelayMS = r.Response.Delay.Milliseconds()
		}
		for _, h := range r.Headers {
			ro.Headers = append(ro.Headers, h.Name+": "+h.Pattern)
		}
		list = append(list, ro)
	}
	return list
}
