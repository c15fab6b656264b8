package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/inhies/go-bytesize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv() []string { return nil }

func envOf(kv ...string) func() []string {
	return func() []string { return kv }
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pretender.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(LoadOptions{Environ: noEnv})
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, ":8888", cfg.Addr())
	assert.Equal(t, DefaultRulesFile, cfg.RulesFile)
	assert.Equal(t, 10, cfg.Workers)
	assert.Equal(t, time.Second, cfg.RecheckInterval)
	assert.True(t, cfg.Watch)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.True(t, cfg.Upstream.FollowRedirects)
	assert.Equal(t, 10, cfg.Upstream.MaxRedirects)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxBodyBytes())
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.Equal(t, "Pretender", cfg.ServerName)
	assert.Equal(t, uint64(42), cfg.FakerSeed)
	assert.Contains(t, cfg.NoisePatterns, "favicon.ico")
	assert.False(t, cfg.CA.Enabled())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileEnvAndOverrides(t *testing.T) {
	path := writeConfig(t, `
port: 9000
rules_file: /etc/pretender/rules.yaml
max_body_size: 2MB
noise_patterns: [favicon.ico, metrics]
upstream:
  timeout: 5s
  follow_redirects: false
log:
  level: DEBUG
  format: json
`)

	cfg, err := Load(LoadOptions{
		File: path,
		Environ: envOf(
			"PRETENDER_PORT=9100",
			"PRETENDER_UPSTREAM__MAX_REDIRECTS=3",
			"PRETENDER_SERVER_NAME=Pretender ASGI",
			"UNRELATED=1",
		),
		Overrides: map[string]any{"port": 9200, "workers": 4},
	})
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Port, "override beats env and file")
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "/etc/pretender/rules.yaml", cfg.RulesFile)
	assert.Equal(t, 2*bytesize.MB, cfg.MaxBodySize)
	assert.Equal(t, []string{"favicon.ico", "metrics"}, cfg.NoisePatterns)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.False(t, cfg.Upstream.FollowRedirects)
	assert.Equal(t, 3, cfg.Upstream.MaxRedirects)
	assert.Equal(t, "Pretender ASGI", cfg.ServerName)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	lc := cfg.LoggingConfig()
	assert.Equal(t, -4, int(lc.Level))
	assert.Equal(t, "json", string(lc.Format))
}

func TestLoadEnvTypes(t *testing.T) {
	cfg, err := Load(LoadOptions{Environ: envOf(
		"PRETENDER_RECHECK_INTERVAL=250ms",
		"PRETENDER_WATCH=false",
		"PRETENDER_MAX_BODY_SIZE=512KB",
		"PRETENDER_NOISE_PATTERNS=ping,probe",
		"PRETENDER_CA__CERT=/tmp/ca.crt",
		"PRETENDER_CA__KEY=/tmp/ca.key",
	)})
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.RecheckInterval)
	assert.False(t, cfg.Watch)
	assert.Equal(t, int64(512*1024), cfg.MaxBodyBytes())
	assert.Equal(t, []string{"ping", "probe"}, cfg.NoisePatterns)
	assert.True(t, cfg.CA.Enabled())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		opts LoadOptions
		want string
	}{
		{
			name: "missing file",
			opts: LoadOptions{File: filepath.Join(t.TempDir(), "absent.yaml"), Environ: noEnv},
			want: "not found",
		},
		{
			name: "malformed yaml",
			opts: LoadOptions{File: writeConfig(t, "port: [1, 2"), Environ: noEnv},
			want: "parsing",
		},
		{
			name: "bad duration",
			opts: LoadOptions{Environ: envOf("PRETENDER_UPSTREAM__TIMEOUT=soon")},
			want: "timeout",
		},
		{
			name: "invalid port",
			opts: LoadOptions{Environ: envOf("PRETENDER_PORT=70000")},
			want: "port must be at most 65535",
		},
		{
			name: "zero workers",
			opts: LoadOptions{Overrides: map[string]any{"workers": 0}, Environ: noEnv},
			want: "workers must be at least 1",
		},
		{
			name: "unknown log level",
			opts: LoadOptions{Overrides: map[string]any{"log.level": "trace"}, Environ: noEnv},
			want: "log.level must be one of",
		},
		{
			name: "half configured ca",
			opts: LoadOptions{Overrides: map[string]any{"ca.cert": "/tmp/ca.crt"}, Environ: noEnv},
			want: "ca.key is required when cert is set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateReportsAllViolations(t *testing.T) {
	cfg := Default()
	cfg.Workers = 0
	cfg.ShutdownTimeout = 0
	cfg.RulesFile = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers must be at least 1")
	assert.Contains(t, err.Error(), "shutdown_timeout must be greater than 0")
	assert.Contains(t, err.Error(), "rules_file is required")
}

func TestEnvKey(t *testing.T) {
	key, val := envKey("PRETENDER_UPSTREAM__INSECURE_SKIP_VERIFY", "true")
	assert.Equal(t, "upstream.insecure_skip_verify", key)
	assert.Equal(t, "true", val)

	key, _ = envKey("PRETENDER_", "x")
	assert.Empty(t, key)
}
