// Package config loads settings from defaults, pokegraph.toml, POKEGRAPH_*
// environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	// DefaultFile is the optional config file read from the working directory.
	DefaultFile = "pokegraph.toml"
	envPrefix   = "POKEGRAPH_"
)

// Config holds all configuration for the application
type Config struct {
	// DB lists candidate database files; the first that exists is read.
	DB         []string      `koanf:"db" validate:"required,min=1,dive,required"`
	Port       int           `koanf:"port" validate:"min=1,max=65535"`
	Watch      bool          `koanf:"watch"`
	Debounce   time.Duration `koanf:"debounce" validate:"min=0"`
	Top        int           `koanf:"top" validate:"min=1"`
	Verbosity  string        `koanf:"verbosity" validate:"omitempty,oneof=trace debug info warn warning error"`
	VerboseCnt int           `koanf:"verbose" validate:"min=0"`
	Log        LogConfig     `koanf:"log"`
}

// LogConfig selects the log output format.
type LogConfig struct {
	JSON bool `koanf:"json"`
}

var validate = validator.New()

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"db":        []string{"pokemon_dw.db"},
		"port":      8080,
		"watch":     false,
		"debounce":  "500ms",
		"top":       10,
		"verbosity": "",
		"verbose":   0,
		"log.json":  false,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(DefaultFile, f)
}

// LoadFile is Load with an explicit config file path. A missing file is not an error.
func LoadFile(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	// 3. Environment Variables
	// Prefix: POKEGRAPH_ (e.g., POKEGRAPH_PORT=9090, POKEGRAPH_LOG_JSON=true)
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", strings.ToLower(fe.Namespace()), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
