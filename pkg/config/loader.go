package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "PRETENDER_"

// ErrConfiguration marks every error produced while loading or validating
// the process configuration.
var ErrConfiguration = errors.New("configuration error")

// LoadOptions selects the sources merged over the defaults.
type LoadOptions struct {
	// File is an optional YAML file. A named file that does not exist is
	// an error.
	File string
	// Environ replaces os.Environ, mainly for tests.
	Environ func() []string
	// Overrides are dotted keys applied last, e.g. "upstream.timeout".
	Overrides map[string]any
}

// Load merges defaults, file, environment and overrides, then validates.
func Load(opts LoadOptions) (*ServerConfiguration, error) {
	defaults := Default()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("%w: defaults: %v", ErrConfiguration, err)
	}

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: config file %s not found", ErrConfiguration, opts.File)
			}
			return nil, fmt.Errorf("%w: reading %s: %v", ErrConfiguration, opts.File, err)
		}
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfiguration, opts.File, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
		EnvironFunc:   opts.Environ,
	}), nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", ErrConfiguration, err)
	}

	for key, val := range opts.Overrides {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("%w: override %s: %v", ErrConfiguration, key, err)
		}
	}

	cfg := &ServerConfiguration{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps PRETENDER_UPSTREAM__MAX_REDIRECTS to upstream.max_redirects.
func envKey(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	if key == "" {
		return "", nil
	}
	return strings.ReplaceAll(strings.ToLower(key), "__", "."), value
}
