package checker

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/steamcheck/checker/internal/browser"
	"github.com/hazyhaar/steamcheck/checker/internal/highlight"
	"github.com/hazyhaar/steamcheck/checker/internal/remote"
)

// Config holds all steamcheck configuration.
type Config struct {
	DBPath   string         `yaml:"db_path"`
	HTTPAddr string         `yaml:"http_addr"`
	Remote   RemoteConfig   `yaml:"remote"`
	Observer ObserverConfig `yaml:"observer"`
	Marks    MarkConfig     `yaml:"marks"`
	Browser  browser.Config `yaml:"browser"`

	// SelectorsFile, when set, replaces the remote selector configuration
	// with a local document of the same shape.
	SelectorsFile string `yaml:"selectors_file"`
	// RegistryMemo bounds the page paths whose selector match is remembered.
	RegistryMemo int `yaml:"registry_memo"`
}

// RemoteConfig locates the library data services.
type RemoteConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// ObserverConfig controls rescans of lazily loading pages.
type ObserverConfig struct {
	Debounce   time.Duration `yaml:"debounce"`
	Decorative []string      `yaml:"decorative"`
}

// MarkConfig controls how matches are marked.
type MarkConfig struct {
	// ClassPrefix prefixes owned/wished class names.
	ClassPrefix *string `yaml:"class_prefix"`
	// StarPath is an SVG file used as the star; empty uses the built-in one.
	StarPath string `yaml:"star_path"`
	// NoStar disables the star asset.
	NoStar bool `yaml:"no_star"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "steamcheck.db"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8086"
	}
	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = remote.DefaultBaseURL
	}
	if c.Remote.Timeout <= 0 {
		c.Remote.Timeout = 30 * time.Second
	}
	if c.Observer.Debounce <= 0 {
		c.Observer.Debounce = 100 * time.Millisecond
	}
	if c.Observer.Decorative == nil {
		c.Observer.Decorative = []string{"i"}
	}
	if c.Marks.ClassPrefix == nil {
		p := highlight.DefaultClassPrefix
		c.Marks.ClassPrefix = &p
	}
	if c.RegistryMemo <= 0 {
		c.RegistryMemo = 256
	}
}

// classPrefix returns the configured class prefix.
func (c *Config) classPrefix() string {
	if c.Marks.ClassPrefix == nil {
		return highlight.DefaultClassPrefix
	}
	return *c.Marks.ClassPrefix
}

// ApplyEnv overrides fields from STEAMCHECK_* environment variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("STEAMCHECK_DB")); v != "" {
		c.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv("STEAMCHECK_REMOTE_URL")); v != "" {
		c.Remote.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("STEAMCHECK_HTTP_ADDR")); v != "" {
		c.HTTPAddr = v
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
