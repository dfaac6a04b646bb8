package config

import (
	"log"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "ZIMFICTION_CONFIG"
	storeURLEnv   = "ZIMFICTION_STORE_URL"
	logLevelEnv   = "ZIMFICTION_LOG_LEVEL"
)

// Config holds all settings of the build stage.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Build   BuildConfig   `yaml:"build"`
	Zim     ZimConfig     `yaml:"zim"`
	Search  SearchConfig  `yaml:"search"`
	Render  RenderConfig  `yaml:"render"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig describes the entity store connection. The URL is opaque to
// the build core; the sqlite adapter interprets it as a file path.
type StoreConfig struct {
	URL string `yaml:"url"`
}

// BuildConfig tunes the worker pool and the emitted ZIM metadata.
type BuildConfig struct {
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Creator     string `yaml:"creator"`
	Publisher   string `yaml:"publisher"`
	Description string `yaml:"description"`
	Language    string `yaml:"language"`
	Indexing    bool   `yaml:"indexing"`

	// Workers is the render worker count; 0 selects cores-1.
	Workers int `yaml:"workers"`
	// Threaded shares one store handle between workers instead of giving
	// each worker its own connection. Faster to start, slower at scale;
	// kept for parity with the historical build flag and not recommended.
	Threaded bool `yaml:"threaded"`
	// QueueFactor scales the artifact queue capacity: capacity equals
	// QueueFactor x Workers.
	QueueFactor int `yaml:"queueFactor"`
	// StoriesPerTask is the number of story ids batched into one job.
	StoriesPerTask int `yaml:"storiesPerTask"`

	LogDirectory        string `yaml:"logDirectory"`
	MemprofileDirectory string `yaml:"memprofileDirectory"`

	SkipStories bool `yaml:"skipStories"`
}

// ZimConfig tunes the container writer.
type ZimConfig struct {
	// ClusterSize is the uncompressed size at which a cluster is sealed.
	ClusterSize int `yaml:"clusterSize"`
	// Compression is "zstd" or "none".
	Compression string `yaml:"compression"`
}

// SearchConfig tunes the static search index emission.
type SearchConfig struct {
	// ShardSize is the number of records per search_content_<i>.json.
	ShardSize int `yaml:"shardSize"`
	// MinStories and MaxStories bound the scope sizes that receive a
	// search index at all.
	MinStories int `yaml:"minStories"`
	MaxStories int `yaml:"maxStories"`
}

// RenderConfig tunes page rendering.
type RenderConfig struct {
	StoriesPerPage       int  `yaml:"storiesPerPage"`
	IncludeExternalLinks bool `yaml:"includeExternalLinks"`
}

// LoggingConfig selects the log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. CLI flags are applied on top by the command layer.
func Load() Config {
	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = Default()
		}
	}

	cfg.applyEnvOverrides()
	cfg.Normalize()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(storeURLEnv); v != "" {
		c.Store.URL = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

// Normalize clamps zero or nonsensical values back to their defaults. Called
// after every override layer so a partial yaml file cannot zero a tunable.
func (c *Config) Normalize() {
	defaults := Default()
	if c.Build.Workers <= 0 {
		c.Build.Workers = defaults.Build.Workers
	}
	if c.Build.QueueFactor <= 0 {
		c.Build.QueueFactor = defaults.Build.QueueFactor
	}
	if c.Build.StoriesPerTask <= 0 {
		c.Build.StoriesPerTask = defaults.Build.StoriesPerTask
	}
	if c.Zim.ClusterSize <= 0 {
		c.Zim.ClusterSize = defaults.Zim.ClusterSize
	}
	if c.Zim.Compression != "none" && c.Zim.Compression != "zstd" {
		c.Zim.Compression = defaults.Zim.Compression
	}
	if c.Search.ShardSize <= 0 {
		c.Search.ShardSize = defaults.Search.ShardSize
	}
	if c.Search.MinStories <= 0 {
		c.Search.MinStories = defaults.Search.MinStories
	}
	if c.Search.MaxStories <= 0 {
		c.Search.MaxStories = defaults.Search.MaxStories
	}
	if c.Render.StoriesPerPage <= 0 {
		c.Render.StoriesPerPage = defaults.Render.StoriesPerPage
	}
}

// Default returns the built-in configuration.
func Default() Config {
	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}
	return Config{
		Build: BuildConfig{
			Name:           "zimfiction_eng",
			Title:          "ZimFiction",
			Creator:        "Various fanfiction communities",
			Publisher:      "ZimFiction",
			Description:    "ZIM file containing dumps of various fanfiction sites",
			Language:       "eng",
			Indexing:       true,
			Workers:        workers,
			QueueFactor:    4,
			StoriesPerTask: 64,
		},
		Zim: ZimConfig{
			ClusterSize: 2 * 1024 * 1024,
			Compression: "zstd",
		},
		Search: SearchConfig{
			ShardSize:  500,
			MinStories: 2,
			MaxStories: 100000,
		},
		Render: RenderConfig{
			StoriesPerPage:       20,
			IncludeExternalLinks: true,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
