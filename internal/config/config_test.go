package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"geocurtain/internal/curtain"
	"geocurtain/internal/elevation"
	"geocurtain/internal/geom"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	require.Equal(t, 10, cfg.Curtain.Samples)
	require.Equal(t, 300.0, cfg.Curtain.SafetyMargin)
	require.Equal(t, -500.0, cfg.Curtain.DeepFallback)
	require.Equal(t, 256, cfg.Elevation.MaxBatch)
	require.Equal(t, 10*time.Second, cfg.Elevation.Timeout)
	require.Equal(t, ":8080", cfg.Server.Addr)

	opts, policy, err := cfg.CurtainOptions()
	require.NoError(t, err)
	require.Equal(t, curtain.DefaultOptions(), opts)
	require.Equal(t, geom.MultiAll, policy)

	// google without a key degrades to the constant oracle
	o, provider := cfg.Oracle()
	require.Equal(t, "constant", provider)
	require.Equal(t, elevation.Constant(0), o)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEOCURTAIN_CURTAIN_SAMPLES", "25")
	t.Setenv("GEOCURTAIN_CURTAIN_ANCHOR", "first")
	t.Setenv("GEOCURTAIN_ELEVATION_API_KEY", "k")
	t.Setenv("GEOCURTAIN_ELEVATION_TIMEOUT", "3s")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	require.Equal(t, 25, cfg.Curtain.Samples)
	require.Equal(t, 3*time.Second, cfg.Elevation.Timeout)

	opts, _, err := cfg.CurtainOptions()
	require.NoError(t, err)
	require.Equal(t, curtain.AnchorFirstVertex, opts.Anchor)

	_, provider := cfg.Oracle()
	require.Equal(t, "google", provider)
}

func TestFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocurtain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
curtain:
  samples: 40
  multi_geometry: first
elevation:
  provider: constant
  constant: 12.5
`), 0o644))

	v := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("samples", 10, "")
	fs.Float64("margin", 300, "")
	require.NoError(t, BindFlags(v, fs))
	require.NoError(t, fs.Parse([]string{"--margin=50"}))

	cfg, err := Load(v, path)
	require.NoError(t, err)
	// unset flag does not shadow the file
	require.Equal(t, 40, cfg.Curtain.Samples)
	require.Equal(t, 50.0, cfg.Curtain.SafetyMargin)

	_, policy, err := cfg.CurtainOptions()
	require.NoError(t, err)
	require.Equal(t, geom.MultiFirst, policy)

	o, provider := cfg.Oracle()
	require.Equal(t, "constant", provider)
	require.Equal(t, elevation.Constant(12.5), o)
}

func TestValidate(t *testing.T) {
	base, err := Load(New(), "")
	require.NoError(t, err)

	bad := []func(*Config){
		func(c *Config) { c.Curtain.Samples = 1 },
		func(c *Config) { c.Curtain.SafetyMargin = -1 },
		func(c *Config) { c.Curtain.DeepFallback = 0 },
		func(c *Config) { c.Curtain.TopMode = "floating" },
		func(c *Config) { c.Curtain.Sampling = "random" },
		func(c *Config) { c.Curtain.MultiGeometry = "largest" },
		func(c *Config) { c.Elevation.Provider = "mapbox" },
		func(c *Config) { c.Tracing.SampleRatio = 2 },
		func(c *Config) { c.Curtain.WallTop = 0 },
		func(c *Config) { c.Curtain.WallTop = -50; c.Curtain.TopMode = "relative" },
	}
	for i, mutate := range bad {
		c := base
		mutate(&c)
		require.Error(t, c.Validate(), "case %d", i)
	}
}

func TestValidateWallTopAbsolute(t *testing.T) {
	c, err := Load(New(), "")
	require.NoError(t, err)
	c.Curtain.TopMode = "absolute"
	c.Curtain.WallTop = -20
	require.NoError(t, c.Validate())

	c.Curtain.TopMode = "relative"
	require.ErrorContains(t, c.Validate(), "curtain.wall_top")
}

func TestCredentialsVersion(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	a := cfg.CredentialsVersion()
	cfg.Elevation.APIKey = "secret"
	b := cfg.CredentialsVersion()
	require.NotEqual(t, a, b)
	require.NotContains(t, b, "secret")
}
