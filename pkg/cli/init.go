package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pretender-dev/pretender/pkg/cli/internal/output"
	"github.com/pretender-dev/pretender/pkg/proxy"
	"github.com/pretender-dev/pretender/pkg/rules"
)

type initFlags struct {
	rules  string
	force  bool
	caCert string
	caKey  string
	json   bool
}

// InitOutput is the JSON form of the init result.
type InitOutput struct {
	RulesFile string  `json:"rules_file"`
	Created   bool    `json:"created"`
	CA        *CAInfo `json:"ca,omitempty"`
}

// CAInfo describes the interception CA.
type CAInfo struct {
	Cert         string `json:"cert"`
	Key          string `json:"key"`
	Generated    bool   `json:"generated"`
	Organization string `json:"organization"`
	Fingerprint  string `json:"fingerprint"`
	NotAfter     string `json:"not_after"`
}

func newInitCommand() *cobra.Command {
	var f initFlags

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter rule file and, optionally, an interception CA",
		Long: `Create a starter rule file with one example rule:

  GET http://www.example.com/api/test -> {"message":"Hello Pretender!", ...}

With --ca-cert and --ca-key, also generate the CA used to intercept HTTPS.
Install the certificate in your client's trust store and set the same
paths as ca.cert and ca.key in the process configuration.`,
		Example: `  # Create config/mock_config.yaml
  pretender init

  # Overwrite an existing rule file
  pretender init --rules ./mocks.yaml --force

  # Also create an interception CA
  pretender init --ca-cert ca/pretender.crt --ca-key ca/pretender.key`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, f)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.rules, flagRules, "r", "", "Rule file to create (default: rules_file from the configuration)")
	fs.BoolVar(&f.force, "force", false, "Overwrite an existing rule file")
	fs.StringVar(&f.caCert, "ca-cert", "", "Write an interception CA certificate to this path")
	fs.StringVar(&f.caKey, "ca-key", "", "Write the interception CA private key to this path")
	fs.BoolVar(&f.json, flagJSON, false, "Output the result in JSON format")
	cmd.MarkFlagsRequiredTogether("ca-cert", "ca-key")

	return cmd
}

func runInit(cmd *cobra.Command, f initFlags) error {
	out := cmd.OutOrStdout()

	path := f.rules
	if path == "" {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		path = cfg.RulesFile
	}

	result := InitOutput{RulesFile: path}
	switch err := rules.WriteStarter(path, f.force); {
	case err == nil:
		result.Created = true
	case errors.Is(err, rules.ErrFileExists):
		if f.caCert == "" {
			return fmt.Errorf("%w\n\nUse --force to overwrite", err)
		}
		output.Warn(cmd.ErrOrStderr(), "keeping existing rule file %s", path)
	default:
		return err
	}

	if f.caCert != "" {
		info, err := ensureCA(f.caCert, f.caKey)
		if err != nil {
			return err
		}
		result.CA = info
	}

	if f.json {
		return output.JSON(out, result)
	}

	if result.Created {
		fmt.Fprintf(out, "Created %s\n", path)
	}
	if ca := result.CA; ca != nil {
		verb := "Using existing"
		if ca.Generated {
			verb = "Generated"
		}
		fmt.Fprintf(out, "%s CA %s\n", verb, ca.Cert)
		tw := output.Table(out)
		fmt.Fprintf(tw, "  Organization:\t%s\n", ca.Organization)
		fmt.Fprintf(tw, "  SHA-256:\t%s\n", ca.Fingerprint)
		fmt.Fprintf(tw, "  Expires:\t%s\n", ca.NotAfter)
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, "\nStart the proxy with: pretender serve --rules "+path)
	return nil
}

func ensureCA(certPath, keyPath string) (*CAInfo, error) {
	ca := proxy.NewCAManager(certPath, keyPath)
	generated := !ca.Exists()
	if err := ca.EnsureCA(); err != nil {
		return nil, err
	}
	ci, err := ca.CertInfo()
	if err != nil {
		return nil, err
	}
	return &CAInfo{
		Cert:         certPath,
		Key:          keyPath,
		Generated:    generated,
		Organization: ci.Organization,
		Fingerprint:  ci.Fingerprint,
		NotAfter:     ci.NotAfter.UTC().Format("2006-01-02"),
	}, nil
}
