// Package typingsconfig provides the functional-options configuration for
// a resolve/compile run, plus an optional YAML file loader for the CLI.
package typingsconfig

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the final, resolved run configuration.
type Config struct {
	// Cwd is the directory resolution starts from.
	Cwd string

	// Name is the user-supplied root namespace (§4.H).
	Name string

	// Dev enables resolution of devDependencies at the root.
	Dev bool

	// Ambient enables resolution of ambientDependencies (and, together
	// with Dev, ambientDevDependencies) at the root.
	Ambient bool

	// Meta enables the two-line provenance comment header on every
	// emitted block.
	Meta bool

	// ProxyURL, if set, is used for all HTTP fetches.
	ProxyURL string

	// CacheDir is the directory backing the content-addressed fetch
	// cache. Defaults to "~/.typings/cache".
	CacheDir string

	// HTTPTimeout bounds every individual HTTP request.
	HTTPTimeout time.Duration

	// GitHubToken authenticates github: dependency resolution against
	// private repositories.
	GitHubToken string

	// MaxConcurrency bounds the number of manifest reads the tree
	// resolver has in flight at once.
	MaxConcurrency int

	// Verbose enables debug logging.
	Verbose bool
}

// Option mutates a Config during construction.
type Option func(*Config)

// Default returns a Config with sensible defaults applied.
func Default() *Config {
	cacheDir := ".typings-cache"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = home + "/.typings/cache"
	}
	return &Config{
		Cwd:            ".",
		CacheDir:       cacheDir,
		HTTPTimeout:    30 * time.Second,
		MaxConcurrency: 8,
	}
}

// New builds a Config by applying opts over the defaults.
func New(opts ...Option) *Config {
	cfg := Default()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithCwd sets the resolution starting directory.
func WithCwd(cwd string) Option { return func(c *Config) { c.Cwd = cwd } }

// WithName sets the root namespace.
func WithName(name string) Option { return func(c *Config) { c.Name = name } }

// WithDev enables devDependencies.
func WithDev(dev bool) Option { return func(c *Config) { c.Dev = dev } }

// WithAmbient enables ambientDependencies.
func WithAmbient(ambient bool) Option { return func(c *Config) { c.Ambient = ambient } }

// WithMeta enables provenance comment headers.
func WithMeta(meta bool) Option { return func(c *Config) { c.Meta = meta } }

// WithProxyURL sets the HTTP proxy used for fetches.
func WithProxyURL(proxyURL string) Option { return func(c *Config) { c.ProxyURL = proxyURL } }

// WithCacheDir overrides the fetch cache directory.
func WithCacheDir(dir string) Option { return func(c *Config) { c.CacheDir = dir } }

// WithHTTPTimeout overrides the per-request HTTP timeout.
func WithHTTPTimeout(d time.Duration) Option { return func(c *Config) { c.HTTPTimeout = d } }

// WithGitHubToken sets the token used for github: dependency resolution.
func WithGitHubToken(token string) Option { return func(c *Config) { c.GitHubToken = token } }

// WithMaxConcurrency bounds in-flight manifest reads.
func WithMaxConcurrency(n int) Option { return func(c *Config) { c.MaxConcurrency = n } }

// WithVerbose toggles debug logging.
func WithVerbose(v bool) Option { return func(c *Config) { c.Verbose = v } }

// FileConfig is the shape of an optional on-disk YAML configuration file
// consumed by the cmd/typings entry point.
type FileConfig struct {
	Name           string        `yaml:"name"`
	Dev            bool          `yaml:"dev"`
	Ambient        bool          `yaml:"ambient"`
	Meta           bool          `yaml:"meta"`
	ProxyURL       string        `yaml:"proxy_url"`
	CacheDir       string        `yaml:"cache_dir"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	GitHubToken    string        `yaml:"github_token"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	Verbose        bool          `yaml:"verbose"`
}

// LoadFile reads a YAML config file and applies it over Default().
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.Name = fc.Name
	cfg.Dev = fc.Dev
	cfg.Ambient = fc.Ambient
	cfg.Meta = fc.Meta
	cfg.Verbose = fc.Verbose
	if fc.ProxyURL != "" {
		cfg.ProxyURL = fc.ProxyURL
	}
	if fc.CacheDir != "" {
		cfg.CacheDir = fc.CacheDir
	}
	if fc.HTTPTimeout > 0 {
		cfg.HTTPTimeout = fc.HTTPTimeout
	}
	if fc.GitHubToken != "" {
		cfg.GitHubToken = fc.GitHubToken
	}
	if fc.MaxConcurrency > 0 {
		cfg.MaxConcurrency = fc.MaxConcurrency
	}
	return cfg, nil
}
