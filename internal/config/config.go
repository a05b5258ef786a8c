// Package config loads hq settings from flags, HQ_* environment variables
// and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gurisko/hq/internal/discovery"
	"github.com/gurisko/hq/internal/document"
	"github.com/gurisko/hq/internal/ledger"
	"github.com/gurisko/hq/internal/paths"
	"github.com/gurisko/hq/internal/registry"
	"github.com/gurisko/hq/internal/reporter"
	"github.com/spf13/viper"
)

// Backends
const (
	BackendGitHub   = "github"
	BackendGit      = "git"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// TokenFile is read from the working directory when no token is configured
const TokenFile = ".gh_token"

var (
	ErrMissingToken   = errors.New("no GitHub token found: set GITHUB_TOKEN, HQ_TOKEN or create a .gh_token file")
	ErrUnknownBackend = errors.New("unknown backend")
)

// Config is the resolved configuration, built once and handed to
// constructors
type Config struct {
	Token         string        `mapstructure:"token"`
	Repo          string        `mapstructure:"repo"`
	MemoryRepo    string        `mapstructure:"memory_repo"`
	Branch        string        `mapstructure:"branch"`
	Backend       string        `mapstructure:"backend"`
	Timezone      string        `mapstructure:"timezone"`
	DashboardPath string        `mapstructure:"dashboard_path"`
	RegistryPath  string        `mapstructure:"registry_path"`
	StatusPath    string        `mapstructure:"status_path"`
	Section       string        `mapstructure:"section"`
	Marker        string        `mapstructure:"marker"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Concurrency   int           `mapstructure:"concurrency"`
	SkillsRepo    string        `mapstructure:"skills_repo"`
	GitDir        string        `mapstructure:"git_dir"`
	SQLDSN        string        `mapstructure:"sql_dsn"`
	RedisURL      string        `mapstructure:"redis_url"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFile       string        `mapstructure:"log_file"`
}

// New returns a viper instance carrying hq defaults and HQ_* environment
// bindings. Callers bind their flags to it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("repo", "AI_Command_Center")
	v.SetDefault("backend", BackendGitHub)
	v.SetDefault("timezone", reporter.DefaultTimezone)
	v.SetDefault("dashboard_path", reporter.DefaultDashboardPath)
	v.SetDefault("registry_path", registry.DefaultPath)
	v.SetDefault("status_path", reporter.DefaultStatusPath)
	v.SetDefault("section", document.DefaultSection)
	v.SetDefault("marker", document.DefaultMarker)
	v.SetDefault("max_attempts", ledger.DefaultMaxAttempts)
	v.SetDefault("timeout", ledger.DefaultTimeout)
	v.SetDefault("concurrency", discovery.DefaultConcurrency)
	v.SetDefault("skills_repo", "alstonhuang/shared-agent-skills")
	v.SetDefault("git_dir", paths.DefaultGitDir())
	v.SetDefault("sql_dsn", paths.DefaultSQLiteDSN())
	v.SetDefault("redis_url", "redis://localhost:6379/0")
	v.SetDefault("log_level", "warn")

	v.SetEnvPrefix("hq")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about
	_ = v.BindEnv("token")
	_ = v.BindEnv("branch")
	_ = v.BindEnv("log_file")
	_ = v.BindEnv("memory_repo", "HQ_MEMORY_REPO", "PRIVATE_DATA_REPO")
	return v
}

// Load reads configFile (or the default config path when empty and present)
// and decodes the merged settings
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile == "" {
		if _, err := os.Stat(paths.DefaultConfigPath()); err == nil {
			configFile = paths.DefaultConfigPath()
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MemoryStoreRepo is the repository holding memory documents; the ledger
// repository unless a private one is configured
func (c *Config) MemoryStoreRepo() string {
	if c.MemoryRepo != "" {
		return c.MemoryRepo
	}
	return c.Repo
}

// Validate checks values that would otherwise fail deep inside a command
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGitHub, BackendGit, BackendSQLite, BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if !strings.Contains(c.StatusPath, "%s") {
		return fmt.Errorf("status_path must contain %%s, got %q", c.StatusPath)
	}
	return nil
}

// Location returns the configured time zone, falling back to UTC when the
// zone database does not know it
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ResolveToken fills Token when it is empty. GITHUB_TOKEN wins over
// everything; then the configured token; then .gh_token in cwd; then the
// token file in the config directory.
func (c *Config) ResolveToken(cwd string) error {
	if t := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); t != "" {
		c.Token = t
		return nil
	}
	if c.Token = strings.TrimSpace(c.Token); c.Token != "" {
		return nil
	}
	for _, p := range []string{filepath.Join(cwd, TokenFile), paths.DefaultTokenPath()} {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if t := strings.TrimSpace(string(data)); t != "" {
			c.Token = t
			return nil
		}
	}
	if c.Backend == BackendGitHub {
		return ErrMissingToken
	}
	return nil
}
