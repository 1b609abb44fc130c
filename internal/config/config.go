// Package config layers defaults, an optional config file, GEOCURTAIN_*
// environment variables and command line flags into one Config.
package config

import (
	"strconv"
	"strings"
	"time"

	"geocurtain/internal/curtain"
	"geocurtain/internal/elevation"
	"geocurtain/internal/geom"
	"geocurtain/internal/observability"

	"github.com/dgryski/go-farm"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "GEOCURTAIN"

type CurtainConfig struct {
	Samples       int     `mapstructure:"samples"`
	SafetyMargin  float64 `mapstructure:"safety_margin"`
	DeepFallback  float64 `mapstructure:"deep_fallback"`
	WallTop       float64 `mapstructure:"wall_top"`
	TopMode       string  `mapstructure:"top_mode"`
	Anchor        string  `mapstructure:"anchor"`
	Sampling      string  `mapstructure:"sampling"`
	MultiGeometry string  `mapstructure:"multi_geometry"`
	DedupeEpsilon float64 `mapstructure:"dedupe_epsilon"`
	CacheSize     int64   `mapstructure:"cache_size"`
	Parallelism   int     `mapstructure:"parallelism"`
}

type ElevationConfig struct {
	Provider string        `mapstructure:"provider"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	MaxBatch int           `mapstructure:"max_batch"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Constant float64       `mapstructure:"constant"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type Config struct {
	Curtain   CurtainConfig   `mapstructure:"curtain"`
	Elevation ElevationConfig `mapstructure:"elevation"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Server    ServerConfig    `mapstructure:"server"`
}

// SetDefaults registers every key with its default so that environment
// variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	def := curtain.DefaultOptions()
	v.SetDefault("curtain.samples", def.Samples)
	v.SetDefault("curtain.safety_margin", def.SafetyMargin)
	v.SetDefault("curtain.deep_fallback", def.DeepFallback)
	v.SetDefault("curtain.wall_top", def.WallTop)
	v.SetDefault("curtain.top_mode", "relative")
	v.SetDefault("curtain.anchor", "centroid")
	v.SetDefault("curtain.sampling", "parameter")
	v.SetDefault("curtain.multi_geometry", "all")
	v.SetDefault("curtain.dedupe_epsilon", 0.0)
	v.SetDefault("curtain.cache_size", 1024)
	v.SetDefault("curtain.parallelism", 4)

	v.SetDefault("elevation.provider", "google")
	v.SetDefault("elevation.api_key", "")
	v.SetDefault("elevation.base_url", elevation.DefaultBaseURL)
	v.SetDefault("elevation.max_batch", elevation.DefaultMaxBatch)
	v.SetDefault("elevation.timeout", elevation.DefaultTimeout)
	v.SetDefault("elevation.constant", 0.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("server.addr", ":8080")
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Flag maps a command line flag to its config key.
type Flag struct {
	Name string
	Key  string
}

// Flags lists the flags commands may define, by config key.
var Flags = []Flag{
	{"samples", "curtain.samples"},
	{"margin", "curtain.safety_margin"},
	{"deep-fallback", "curtain.deep_fallback"},
	{"wall-top", "curtain.wall_top"},
	{"top-mode", "curtain.top_mode"},
	{"anchor", "curtain.anchor"},
	{"sampling", "curtain.sampling"},
	{"multi", "curtain.multi_geometry"},
	{"dedupe", "curtain.dedupe_epsilon"},
	{"parallelism", "curtain.parallelism"},
	{"provider", "elevation.provider"},
	{"api-key", "elevation.api_key"},
	{"elevation-url", "elevation.base_url"},
	{"log-level", "log.level"},
	{"log-format", "log.format"},
	{"log-file", "log.file"},
	{"addr", "server.addr"},
}

// BindFlags binds whichever of Flags exist in fs.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, f := range Flags {
		pf := fs.Lookup(f.Name)
		if pf == nil {
			continue
		}
		if err := v.BindPFlag(f.Key, pf); err != nil {
			return errors.Wrapf(err, "bind flag %s", f.Name)
		}
	}
	return nil
}

// Load reads file (if set) into v and decodes the result.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrap(err, "reading config")
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	cc := c.Curtain
	switch {
	case cc.Samples < 2:
		return errors.Errorf("curtain.samples must be at least 2, got %d", cc.Samples)
	case cc.SafetyMargin < 0:
		return errors.Errorf("curtain.safety_margin must not be negative, got %g", cc.SafetyMargin)
	case cc.DeepFallback >= 0:
		return errors.Errorf("curtain.deep_fallback must be below sea level, got %g", cc.DeepFallback)
	case cc.DedupeEpsilon < 0:
		return errors.Errorf("curtain.dedupe_epsilon must not be negative, got %g", cc.DedupeEpsilon)
	}
	opts, _, err := c.CurtainOptions()
	if err != nil {
		return err
	}
	if opts.TopMode == curtain.TopRelative && opts.WallTop <= 0 {
		return errors.Errorf("curtain.wall_top must be positive with top_mode relative, got %g", opts.WallTop)
	}
	switch strings.ToLower(c.Elevation.Provider) {
	case "google", "constant", "none":
	default:
		return errors.Errorf("unknown elevation.provider %q", c.Elevation.Provider)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return errors.Errorf("tracing.sample_ratio must be within [0,1], got %g", c.Tracing.SampleRatio)
	}
	return nil
}

// CurtainOptions converts the curtain section into build options and the
// multi-geometry policy.
func (c Config) CurtainOptions() (curtain.Options, geom.ExtractPolicy, error) {
	cc := c.Curtain
	top, err := curtain.ParseTopMode(cc.TopMode)
	if err != nil {
		return curtain.Options{}, 0, err
	}
	anchor, err := curtain.ParseAnchorPolicy(cc.Anchor)
	if err != nil {
		return curtain.Options{}, 0, err
	}
	sampling, err := curtain.ParseSamplingMode(cc.Sampling)
	if err != nil {
		return curtain.Options{}, 0, err
	}
	policy, err := geom.ParseExtractPolicy(cc.MultiGeometry)
	if err != nil {
		return curtain.Options{}, 0, err
	}
	return curtain.Options{
		Samples:       cc.Samples,
		SafetyMargin:  cc.SafetyMargin,
		DeepFallback:  cc.DeepFallback,
		WallTop:       cc.WallTop,
		TopMode:       top,
		Anchor:        anchor,
		Sampling:      sampling,
		DedupeEpsilon: cc.DedupeEpsilon,
	}, policy, nil
}

// Oracle builds the configured elevation oracle and returns it with the
// provider name actually used. A google provider without an API key falls
// back to the constant oracle; the caller is expected to warn.
func (c Config) Oracle() (elevation.Oracle, string) {
	e := c.Elevation
	switch strings.ToLower(e.Provider) {
	case "google":
		if e.APIKey == "" {
			return elevation.Constant(e.Constant), "constant"
		}
		return elevation.NewGoogle(e.APIKey,
			elevation.WithBaseURL(e.BaseURL),
			elevation.WithMaxBatch(e.MaxBatch),
			elevation.WithTimeout(e.Timeout),
		), "google"
	case "constant":
		return elevation.Constant(e.Constant), "constant"
	}
	return nil, "none"
}

// CredentialsVersion identifies the oracle credentials without exposing
// them; it feeds the curtain cache key.
func (c Config) CredentialsVersion() string {
	e := c.Elevation
	return strings.ToLower(e.Provider) + "|" + e.BaseURL + "|" +
		strconv.FormatFloat(e.Constant, 'g', -1, 64) + "|" +
		strconv.FormatUint(farm.Fingerprint64([]byte(e.APIKey)), 16)
}

func (c Config) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: "geocurtain",
		Exporter:    c.Tracing.Exporter,
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}
