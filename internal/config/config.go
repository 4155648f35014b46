package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		Root       string   `yaml:"root"`
		Ignore     []string `yaml:"ignore"`
		Extensions []string `yaml:"extensions"`
		Workers    int      `yaml:"workers"`
		// EntryPoints are slugs that are never reported as orphans.
		EntryPoints []string `yaml:"entry_points"`
	} `yaml:"project"`
	Lint struct {
		Disabled        []string            `yaml:"disabled"`
		Tool            string              `yaml:"tool"`
		KnownFields     map[string][]string `yaml:"known_fields"` // "resource action" -> field names
		MaxEdit         int                 `yaml:"max_edit"`
		CheckExternal   bool                `yaml:"check_external"`
		ExternalTimeout time.Duration       `yaml:"external_timeout"`
		ExternalRetries int                 `yaml:"external_retries"`
	} `yaml:"lint"`
	Storage struct {
		DB string `yaml:"db"`
	} `yaml:"storage"`
	Server struct {
		Addr string `yaml:"addr"`
		Mode string `yaml:"mode"`
	} `yaml:"server"`
	CLIDoc struct {
		Source     string   `yaml:"source"`
		Out        string   `yaml:"out"`
		SkipGroups []string `yaml:"skip_groups"`
	} `yaml:"clidoc"`
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadConfig reads .env and the YAML file at path, then applies
// DOCGRAPH_* overrides. A missing YAML file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config
	var cfg Config
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	// 3. Override with Environment Variables if present
	if root := os.Getenv("DOCGRAPH_ROOT"); root != "" {
		cfg.Project.Root = root
	}
	if db := os.Getenv("DOCGRAPH_DB"); db != "" {
		cfg.Storage.DB = db
	}
	if addr := os.Getenv("DOCGRAPH_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if tool := os.Getenv("DOCGRAPH_TOOL"); tool != "" {
		cfg.Lint.Tool = tool
	}
	if w := os.Getenv("DOCGRAPH_WORKERS"); w != "" {
		if n, err := strconv.Atoi(w); err == nil {
			cfg.Project.Workers = n
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Project.Root == "" {
		c.Project.Root = "docs"
	}
	if c.Project.Ignore == nil {
		c.Project.Ignore = []string{".git", "node_modules", "vendor", "_build"}
	}
	if len(c.Project.Extensions) == 0 {
		c.Project.Extensions = []string{".md"}
	}
	if c.Project.Workers <= 0 {
		c.Project.Workers = 8
	}
	if c.Project.EntryPoints == nil {
		c.Project.EntryPoints = []string{"index", "README"}
	}
	if c.Lint.Tool == "" {
		c.Lint.Tool = "maas"
	}
	if c.Lint.MaxEdit <= 0 {
		c.Lint.MaxEdit = 2
	}
	if c.Lint.ExternalTimeout <= 0 {
		c.Lint.ExternalTimeout = 10 * time.Second
	}
	if c.Lint.ExternalRetries < 0 {
		c.Lint.ExternalRetries = 0
	} else if c.Lint.ExternalRetries == 0 {
		c.Lint.ExternalRetries = 2
	}
	if c.Storage.DB == "" {
		c.Storage.DB = "docgraph.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.CLIDoc.SkipGroups == nil {
		c.CLIDoc.SkipGroups = []string{"local", "admin"}
	}
}

// RuleEnabled reports whether the named lint rule is not disabled.
func (c *Config) RuleEnabled(name string) bool {
	for _, d := range c.Lint.Disabled {
		if d == name {
			return false
		}
	}
	return true
}
