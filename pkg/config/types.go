package config

import (
	"net"
	"strconv"
	"time"

	"github.com/inhies/go-bytesize"

	"github.com/pretender-dev/pretender/pkg/logging"
	"github.com/pretender-dev/pretender/pkg/proxy"
	"github.com/pretender-dev/pretender/pkg/rules"
	"github.com/pretender-dev/pretender/pkg/scheduler"
	"github.com/pretender-dev/pretender/pkg/template"
)

// Defaults for ServerConfiguration.
const (
	DefaultPort            = 8888
	DefaultRulesFile       = "config/mock_config.yaml"
	DefaultServerName      = "Pretender"
	DefaultShutdownTimeout = 10 * time.Second
)

// ServerConfiguration is the complete process configuration.
type ServerConfiguration struct {
	Port            int               `koanf:"port"             validate:"gte=0,lte=65535"`
	Host            string            `koanf:"host"`
	RulesFile       string            `koanf:"rules_file"       validate:"required"`
	Workers         int               `koanf:"workers"          validate:"gte=1"`
	QueueSize       int               `koanf:"queue_size"       validate:"gte=0"`
	RecheckInterval time.Duration     `koanf:"recheck_interval" validate:"gte=0"`
	Watch           bool              `koanf:"watch"`
	Upstream        UpstreamConfig    `koanf:"upstream"`
	MaxBodySize     bytesize.ByteSize `koanf:"max_body_size"    validate:"gt=0"`
	ShutdownTimeout time.Duration     `koanf:"shutdown_timeout" validate:"gt=0"`
	ServerName      string            `koanf:"server_name"`
	FakerSeed       uint64            `koanf:"faker_seed"`
	NoisePatterns   []string          `koanf:"noise_patterns"`
	CA              CAConfig          `koanf:"ca"`
	Metrics         MetricsConfig     `koanf:"metrics"`
	Log             LogConfig         `koanf:"log"`
}

// UpstreamConfig controls forwarding to real origins.
type UpstreamConfig struct {
	Timeout            time.Duration `koanf:"timeout"              validate:"gt=0"`
	FollowRedirects    bool          `koanf:"follow_redirects"`
	MaxRedirects       int           `koanf:"max_redirects"        validate:"gte=0"`
	InsecureSkipVerify bool          `koanf:"insecure_skip_verify"`
}

// CAConfig enables TLS interception of CONNECT requests when both paths
// are set.
type CAConfig struct {
	Cert string `koanf:"cert" validate:"required_with=Key"`
	Key  string `koanf:"key"  validate:"required_with=Cert"`
}

// Enabled reports whether interception is configured.
func (c CAConfig) Enabled() bool {
	return c.Cert != "" && c.Key != ""
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	// Address such as ":9090". Empty disables the listener.
	Address string `koanf:"address" validate:"omitempty,hostname_port"`
}

// LogConfig controls process logging.
type LogConfig struct {
	Level      string `koanf:"level"        validate:"oneof=debug info warn warning error"`
	Format     string `koanf:"format"       validate:"oneof=text json"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"  validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups"  validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"gte=0"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *ServerConfiguration {
	return &ServerConfiguration{
		Port:            DefaultPort,
		RulesFile:       DefaultRulesFile,
		Workers:         scheduler.DefaultWorkers,
		RecheckInterval: rules.DefaultRecheckInterval,
		Watch:           true,
		Upstream: UpstreamConfig{
			Timeout:         proxy.DefaultTimeout,
			FollowRedirects: true,
			MaxRedirects:    proxy.DefaultMaxRedirects,
		},
		MaxBodySize:     bytesize.New(proxy.DefaultMaxBodySize),
		ShutdownTimeout: DefaultShutdownTimeout,
		ServerName:      DefaultServerName,
		FakerSeed:       template.DefaultFakerSeed,
		NoisePatterns:   append([]string(nil), proxy.DefaultNoisePatterns...),
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  logging.DefaultMaxSizeMB,
			MaxBackups: logging.DefaultMaxBackups,
			MaxAgeDays: logging.DefaultMaxAgeDays,
		},
	}
}

// Addr returns the proxy listen address.
func (c *ServerConfiguration) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MaxBodyBytes returns the request body ceiling in bytes.
func (c *ServerConfiguration) MaxBodyBytes() int64 {
	return int64(c.MaxBodySize)
}

// LoggingConfig converts the log section for logging.Open.
func (c *ServerConfiguration) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(c.Log.Level)
	cfg.Format = logging.ParseFormat(c.Log.Format)
	cfg.File = logging.FileConfig{
		Path:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
	return cfg
}
