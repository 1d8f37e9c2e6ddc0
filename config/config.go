// Package config loads harvest settings from a YAML file, the environment and
// command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/morikuni/failure/v2"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. JOBHARVEST_MAX_RETRIES
const EnvPrefix = "JOBHARVEST_"

type ErrorCode string

const (
	ErrInvalidConfig ErrorCode = "InvalidConfig"
)

// Config holds every harvest setting. Keys match the YAML file, the
// environment (upper-cased with EnvPrefix) and the flags (with dashes).
type Config struct {
	URL          string `yaml:"url" validate:"required"`
	Output       string `yaml:"output"`
	OutputDir    string `yaml:"output_dir" validate:"required"`
	JSONOutput   string `yaml:"json_output"`
	SQLiteOutput string `yaml:"sqlite_output"`
	// Label overrides the company name stamped on records
	Label string `yaml:"label"`

	Delay      Duration `yaml:"delay" validate:"gte=0"`
	MaxRetries int      `yaml:"max_retries" validate:"gte=1,lte=20"`
	Limit      int      `yaml:"limit" validate:"gte=1,lte=100"`
	MaxPages   int      `yaml:"max_pages" validate:"gte=1"`
	Timeout    Duration `yaml:"timeout" validate:"gt=0"`
	Jitter     float64  `yaml:"jitter" validate:"gte=0,lte=1"`
	MaxRPS     float64  `yaml:"max_rps" validate:"gte=0"`

	// CacheTTL enables the response cache when positive
	CacheTTL    Duration `yaml:"cache_ttl" validate:"gte=0"`
	CacheDir    string   `yaml:"cache_dir"`
	ForceUpdate bool     `yaml:"force_update"`

	// Filters are sent as appliedFacets, e.g. {"locations": ["abc123"]}
	Filters map[string]any `yaml:"filters"`
	Verbose bool           `yaml:"verbose"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		OutputDir:  "output",
		Delay:      Duration(1500 * time.Millisecond),
		MaxRetries: 3,
		Limit:      20,
		MaxPages:   500,
		Timeout:    Duration(30 * time.Second),
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load builds a Config from defaults, the YAML file at path (optional when
// empty) and JOBHARVEST_* variables, including those from a .env file.
// Flags are applied separately with ApplyFlags.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// a missing .env is fine; it never overrides the real environment
	_ = godotenv.Load()
	if err := cfg.ApplyEnv(os.Environ()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return failure.Wrap(err, failure.WithCode(ErrInvalidConfig),
			failure.Message("Could not read config file: "+path),
			failure.Context{"path": path},
		)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return failure.Wrap(err, failure.WithCode(ErrInvalidConfig),
			failure.Message("Could not parse config file: "+path),
			failure.Context{"path": path},
		)
	}
	return nil
}

// ApplyEnv overrides settings from KEY=VALUE pairs carrying EnvPrefix
func (c *Config) ApplyEnv(environ []string) error {
	values := map[string]string{}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) || value == "" {
			continue
		}
		values[strings.ToLower(strings.TrimPrefix(key, EnvPrefix))] = value
	}
	return c.override(values, "environment")
}

// ApplyFlags overrides settings from flags the user set explicitly.
// Flags without a matching key, like --config, are ignored.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	values := map[string]string{}
	fs.Visit(func(f *pflag.Flag) {
		values[strings.ReplaceAll(f.Name, "-", "_")] = f.Value.String()
	})
	return c.override(values, "flags")
}

func (c *Config) override(values map[string]string, origin string) error {
	if len(values) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       durationHook,
		Result:           c,
	})
	if err != nil {
		return failure.Wrap(err)
	}
	if err := dec.Decode(values); err != nil {
		return failure.Wrap(err, failure.WithCode(ErrInvalidConfig),
			failure.Message("Invalid setting in "+origin+": "+err.Error()),
		)
	}
	return nil
}

// Validate checks ranges and required settings
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return failure.Wrap(err, failure.WithCode(ErrInvalidConfig))
	}
	msgs := make([]string, 0, len(verrs))
	ctx := failure.Context{}
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
		ctx[fe.Field()] = fe.Tag()
	}
	return failure.New(ErrInvalidConfig,
		failure.Message("Invalid configuration: "+strings.Join(msgs, "; ")),
		ctx,
	)
}

func describe(fe validator.FieldError) string {
	name := strings.ReplaceAll(fe.Field(), "_", "-")
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "gte":
		return name + " must be at least " + fe.Param()
	case "lte":
		return name + " must be at most " + fe.Param()
	case "gt":
		return name + " must be greater than " + fe.Param()
	default:
		return name + " is invalid"
	}
}
