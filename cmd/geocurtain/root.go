package main

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"geocurtain/internal/config"
	"geocurtain/internal/curtain"
	"geocurtain/internal/elevation"
	"geocurtain/internal/geom"
	"geocurtain/internal/logging"
	"geocurtain/internal/observability"
)

// version is stamped at link time.
var version = "dev"

// registry receives the process metrics; tests swap in a private one.
var registry = prometheus.DefaultRegisterer

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "geocurtain",
		Short: "Drape boundary curtains onto terrain",
		Long: `
geocurtain turns boundary lines and polygons into vertical wall meshes
("curtains") whose base sits safely below the sampled terrain, so the
wall never floats above the ground when rendered on a globe.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "",
		"Configuration file. Takes precedence over default values, but is "+
			"overridden by GEOCURTAIN_* environment variables and flags.")
	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error.")
	root.PersistentFlags().String("log-format", "console", "Log format: console or json.")
	root.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr.")

	root.AddCommand(newViewCmd(), newBuildCmd(), newServeCmd(), newVersionCmd())
	return root
}

// addCurtainFlags defines the flags shared by every command that builds
// curtains.
func addCurtainFlags(fs *pflag.FlagSet) {
	def := curtain.DefaultOptions()
	fs.Int("samples", def.Samples, "Elevation samples per boundary.")
	fs.Float64("margin", def.SafetyMargin, "Metres subtracted from the lowest sample.")
	fs.Float64("deep-fallback", def.DeepFallback, "Base elevation when terrain cannot be sampled.")
	fs.Float64("wall-top", def.WallTop, "Wall top, above the base or absolute (see --top-mode).")
	fs.String("top-mode", "relative", "How --wall-top is read: relative or absolute.")
	fs.String("anchor", "centroid", "Local frame anchor: centroid or first.")
	fs.String("sampling", "parameter", "Sample spacing: parameter or arclength.")
	fs.String("multi", "all", "Multi-part geometries: all parts or only the first.")
	fs.Float64("dedupe", 0, "Drop consecutive vertices closer than this many metres.")
	fs.Int("parallelism", 4, "Boundaries built concurrently.")
	fs.String("provider", "google", "Elevation provider: google, constant or none.")
	fs.String("api-key", "", "Elevation API key.")
	fs.String("elevation-url", elevation.DefaultBaseURL, "Elevation API base URL.")
}

// app is everything a command needs once configuration is resolved.
type app struct {
	cfg       config.Config
	log       logging.Logger
	svc       *curtain.Service
	policy    geom.ExtractPolicy
	collector *observability.Collector
}

// setup layers defaults, config file, environment and cmd's flags, then
// wires logging, metrics and the curtain service. When quiet is set and no
// log file is configured, logs are dropped so they cannot corrupt a
// full-screen UI.
func setup(cmd *cobra.Command, quiet bool) (*app, error) {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, file)
	if err != nil {
		return nil, err
	}

	log := logging.Noop()
	if !quiet || cfg.Log.File != "" {
		if log, err = logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}); err != nil {
			return nil, errors.Wrap(err, "init logger")
		}
	}

	opts, policy, err := cfg.CurtainOptions()
	if err != nil {
		return nil, err
	}
	collector, err := observability.NewCollector(registry)
	if err != nil {
		return nil, errors.Wrap(err, "init metrics")
	}

	oracle, provider := cfg.Oracle()
	if provider == "constant" && strings.EqualFold(cfg.Elevation.Provider, "google") {
		log.Warn(context.Background(), "no elevation API key configured; using a constant elevation",
			logging.Float("elevation", cfg.Elevation.Constant))
	}
	if oracle != nil {
		oracle = elevation.Instrumented{Oracle: oracle, Provider: provider, Recorder: collector}
	}

	svc, err := curtain.NewService(curtain.ServiceConfig{
		Oracle:             oracle,
		Options:            opts,
		CredentialsVersion: cfg.CredentialsVersion(),
		CacheSize:          cfg.Curtain.CacheSize,
		Parallelism:        cfg.Curtain.Parallelism,
		Log:                log,
		Metrics:            collector,
	})
	if err != nil {
		return nil, err
	}
	log.Debug(context.Background(), "configured",
		logging.String("provider", provider),
		logging.Int("samples", opts.Samples),
		logging.Float("margin", opts.SafetyMargin))
	return &app{cfg: cfg, log: log, svc: svc, policy: policy, collector: collector}, nil
}

func (a *app) close() {
	a.svc.Close()
	_ = a.log.Sync()
}
