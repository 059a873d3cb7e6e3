// Package config loads karaoke tool settings from YAML with environment and
// flag overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/simonhull/karaoke/internal/download"
	"github.com/simonhull/karaoke/internal/logging"
	"github.com/simonhull/karaoke/internal/scoring"
)

// EnvPrefix prefixes every environment override, e.g. KARAOKE_SCORING_LEVEL.
const EnvPrefix = "KARAOKE"

// EnvConfig names the environment variable holding an explicit config path.
const EnvConfig = EnvPrefix + "_CONFIG"

type Scoring struct {
	Level              int     `yaml:"level"`
	CompensationOffset int     `yaml:"compensation_offset"`
	InitialScore       float64 `yaml:"initial_score"`
}

type Cache struct {
	Dir      string        `yaml:"dir"`
	MaxFiles int           `yaml:"max_files"`
	MaxAge   time.Duration `yaml:"max_age"`
	Workers  int           `yaml:"workers"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Feed struct {
	Addr    string   `yaml:"addr"`
	Origins []string `yaml:"origins,omitempty"`
}

// Config is the root of the YAML file.
type Config struct {
	Scoring Scoring `yaml:"scoring"`
	Cache   Cache   `yaml:"cache"`
	Log     Log     `yaml:"log"`
	Feed    Feed    `yaml:"feed"`
}

// Default returns the built-in settings.
func Default() *Config {
	cacheRoot, err := os.UserCacheDir()
	if err != nil {
		cacheRoot = os.TempDir()
	}

	return &Config{
		Scoring: Scoring{
			Level:              scoring.DefaultScoringLevel,
			CompensationOffset: scoring.DefaultCompensationOffset,
		},
		Cache: Cache{
			Dir:      filepath.Join(cacheRoot, "karaoke", "lyrics"),
			MaxFiles: download.DefaultMaxFiles,
			MaxAge:   download.DefaultMaxAge,
			Workers:  download.DefaultWorkers,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Feed: Feed{
			Addr: "127.0.0.1:8765",
		},
	}
}

// searchPaths lists the files Load tries when EnvConfig is unset.
func searchPaths() []string {
	paths := []string{
		"karaoke.yaml",
		filepath.Join("config", "karaoke.yaml"),
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "karaoke", "config.yaml"))
	}
	return paths
}

// Load reads the file named by EnvConfig, or the first existing file among
// the usual locations. With no file at all it returns Default.
func Load() (*Config, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return LoadFile(p)
	}

	for _, p := range searchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return Default(), nil
}

// LoadFile decodes the YAML file at path over the defaults.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads YAML from r over the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// Write encodes c as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return enc.Close()
}

// NewViper returns a viper instance reading KARAOKE_* environment variables,
// with "." in keys mapped to "_".
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Apply overlays every key set in v (flags, environment) onto c.
func (c *Config) Apply(v *viper.Viper) {
	if v == nil {
		return
	}

	if v.IsSet("scoring.level") {
		c.Scoring.Level = v.GetInt("scoring.level")
	}
	if v.IsSet("scoring.compensation_offset") {
		c.Scoring.CompensationOffset = v.GetInt("scoring.compensation_offset")
	}
	if v.IsSet("scoring.initial_score") {
		c.Scoring.InitialScore = v.GetFloat64("scoring.initial_score")
	}
	if v.IsSet("cache.dir") {
		c.Cache.Dir = v.GetString("cache.dir")
	}
	if v.IsSet("cache.max_files") {
		c.Cache.MaxFiles = v.GetInt("cache.max_files")
	}
	if v.IsSet("cache.max_age") {
		c.Cache.MaxAge = v.GetDuration("cache.max_age")
	}
	if v.IsSet("cache.workers") {
		c.Cache.Workers = v.GetInt("cache.workers")
	}
	if v.IsSet("log.level") {
		c.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.format") {
		c.Log.Format = v.GetString("log.format")
	}
	if v.IsSet("feed.addr") {
		c.Feed.Addr = v.GetString("feed.addr")
	}
	if v.IsSet("feed.origins") {
		c.Feed.Origins = v.GetStringSlice("feed.origins")
	}
}

// Validate reports every out-of-range setting.
func (c *Config) Validate() error {
	var errs []error

	if c.Scoring.Level < scoring.MinScoringLevel || c.Scoring.Level > scoring.MaxScoringLevel {
		errs = append(errs, fmt.Errorf("scoring.level %d outside [%d, %d]", c.Scoring.Level, scoring.MinScoringLevel, scoring.MaxScoringLevel))
	}
	if c.Scoring.CompensationOffset < scoring.MinCompensationOffset || c.Scoring.CompensationOffset > scoring.MaxCompensationOffset {
		errs = append(errs, fmt.Errorf("scoring.compensation_offset %d outside [%d, %d]", c.Scoring.CompensationOffset, scoring.MinCompensationOffset, scoring.MaxCompensationOffset))
	}
	if c.Scoring.InitialScore < 0 {
		errs = append(errs, fmt.Errorf("scoring.initial_score %v is negative", c.Scoring.InitialScore))
	}
	if c.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir is empty"))
	}
	if c.Cache.MaxFiles <= 0 {
		errs = append(errs, fmt.Errorf("cache.max_files %d must be positive", c.Cache.MaxFiles))
	}
	if c.Cache.MaxAge <= 0 {
		errs = append(errs, fmt.Errorf("cache.max_age %v must be positive", c.Cache.MaxAge))
	}
	if c.Cache.Workers <= 0 {
		errs = append(errs, fmt.Errorf("cache.workers %d must be positive", c.Cache.Workers))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, fmt.Errorf("log.format: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Logger builds the logger described by the log section.
func (c *Config) Logger(w io.Writer) (*logrus.Logger, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.Log.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(level, format, w), nil
}

// MachineOptions translates the scoring section.
func (c *Config) MachineOptions(logger logrus.FieldLogger) []scoring.MachineOption {
	return []scoring.MachineOption{
		scoring.WithScoringLevel(c.Scoring.Level),
		scoring.WithCompensationOffset(c.Scoring.CompensationOffset),
		scoring.WithInitialScore(c.Scoring.InitialScore),
		scoring.WithLogger(logger),
	}
}

// DownloadOptions translates the cache section.
func (c *Config) DownloadOptions(logger logrus.FieldLogger) []download.Option {
	return []download.Option{
		download.WithMaxFiles(c.Cache.MaxFiles),
		download.WithMaxAge(c.Cache.MaxAge),
		download.WithWorkers(c.Cache.Workers),
		download.WithLogger(logger),
	}
}
