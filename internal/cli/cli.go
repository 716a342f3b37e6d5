// Package cli implements the hivesplit command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/hivesplit/pkg/buildinfo"
	"github.com/matzehuels/hivesplit/pkg/cache"
	"github.com/matzehuels/hivesplit/pkg/config"
	"github.com/matzehuels/hivesplit/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "hivesplit"

	// configEnv names the fallback configuration path.
	configEnv = "HIVESPLIT_CONFIG"

	// defaultConfig is read when neither --config nor configEnv is set.
	defaultConfig = "hivesplit.toml"

	// redisPrefix namespaces hivesplit keys in a shared Redis.
	redisPrefix = "hivesplit:"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is bound to the persistent --config flag.
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "hivesplit",
		Short: "Hivesplit splits detector readouts into causally connected subevents",
		Long: `Hivesplit groups the hits of a detector readout into subevents whose hits
could have been caused by the same particle, using a honeycomb ring topology of
the detector strings and a causality profile of allowed time differences.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "",
		fmt.Sprintf("configuration file (default: $%s or ./%s)", configEnv, defaultConfig))
	_ = root.MarkPersistentFlagFilename("config", "toml", "yaml", "yml")

	root.AddCommand(c.splitCommand())
	root.AddCommand(c.topologyCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// resolveConfigPath picks the configuration file: flag, then environment,
// then the working directory default.
func (c *CLI) resolveConfigPath() string {
	if c.configPath != "" {
		return c.configPath
	}
	if p := os.Getenv(configEnv); p != "" {
		return p
	}
	return defaultConfig
}

// loadSetup reads the configuration file and builds the clusterer.
func (c *CLI) loadSetup() (*config.File, *config.Setup, error) {
	path := c.resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	setup, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Logger.Debug("loaded configuration", "path", path, "profile", setup.Profile.Name(),
		"strings", len(setup.Topology.Centers()), "hash", setup.Hash[:12])
	return cfg, setup, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for the given configuration.
func (c *CLI) newRunner(ctx context.Context, cfg *config.File, setup *config.Setup, noCache bool) (*pipeline.Runner, error) {
	ttl, err := cfg.Cache.ResultTTL()
	if err != nil {
		return nil, err
	}
	store, err := newCache(ctx, cfg.Cache, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if cfg.Cache.Scope != "" {
		keyer = cache.NewScopedKeyer(nil, cfg.Cache.Scope)
	}
	runner := pipeline.NewRunner(setup.Clusterer, setup.Hash, store, keyer, c.Logger)
	runner.TTL = ttl
	return runner, nil
}

// newCache opens the configured cache backend. An empty backend means the
// local file cache.
func newCache(ctx context.Context, cfg config.Cache, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:   cfg.RedisAddr,
			DB:     cfg.RedisDB,
			Prefix: redisPrefix,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	dir := cfg.Dir
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			return cache.NewNullCache(), nil
		}
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/hivesplit/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
