// Package config loads ~/.reviewr/config.toml and turns it into a platform registry.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the config file inside the data directory.
const FileName = "config.toml"

// DefaultDays is the lookback window when neither config nor flags set one.
const DefaultDays = 30

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	UI        UIConfig        `toml:"ui"`
	Platforms PlatformsConfig `toml:"platforms"`

	// Path is the file the config was read from; empty when defaults are used.
	Path string `toml:"-"`
	// Unknown lists keys present in the file that nothing reads.
	Unknown []string `toml:"-"`
}

type UIConfig struct {
	DefaultDays            int      `toml:"default_days"`
	PreferredPlatformOrder []string `toml:"preferred_platform_order"`
}

type PlatformsConfig struct {
	Gerrit *GerritConfig  `toml:"gerrit"`
	Jira   *JiraConfig    `toml:"jira"`
	GitLab []GitLabConfig `toml:"gitlab"`
	GitHub *GitHubConfig  `toml:"github"`
}

type GerritConfig struct {
	URL          string `toml:"url"`
	Username     string `toml:"username"`
	HTTPPassword string `toml:"http_password"`
}

type JiraConfig struct {
	URL           string `toml:"url"`
	Username      string `toml:"username"`
	APIToken      string `toml:"api_token"`
	ProjectFilter string `toml:"project_filter"`
}

type GitLabConfig struct {
	ID    string `toml:"id"`
	Name  string `toml:"name"`
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

type GitHubConfig struct {
	Token    string `toml:"token"`
	Endpoint string `toml:"endpoint"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{UI: UIConfig{DefaultDays: DefaultDays}}
}

// DataDir resolves the data directory: the flag value, then
// REVIEWR_DATA_PATH, then ~/.reviewr.
func DataDir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if dir := getEnv("REVIEWR_DATA_PATH", ""); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".reviewr"), nil
}

// Load reads <dataDir>/config.toml. A missing file yields Default().
// REVIEWR_DAYS overrides ui.default_days.
func Load(dataDir string) (*Config, error) {
	cfg := Default()
	path := filepath.Join(dataDir, FileName)

	md, err := toml.DecodeFile(path, cfg)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	default:
		cfg.Path = path
		for _, key := range md.Undecoded() {
			cfg.Unknown = append(cfg.Unknown, key.String())
		}
	}

	cfg.UI.DefaultDays = getIntEnv("REVIEWR_DAYS", cfg.UI.DefaultDays)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if c.UI.DefaultDays <= 0 {
		return fmt.Errorf("%w: ui.default_days must be positive, got %d", ErrInvalidConfig, c.UI.DefaultDays)
	}
	seen := make(map[string]bool)
	for i, gl := range c.Platforms.GitLab {
		if strings.TrimSpace(gl.ID) == "" {
			return fmt.Errorf("%w: platforms.gitlab[%d] has no id", ErrInvalidConfig, i)
		}
		if seen[gl.ID] {
			return fmt.Errorf("%w: duplicate gitlab id %q", ErrInvalidConfig, gl.ID)
		}
		seen[gl.ID] = true
	}
	return nil
}

// Save writes the configuration to <dataDir>/config.toml.
func (c *Config) Save(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dataDir, err)
	}
	path := filepath.Join(dataDir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
