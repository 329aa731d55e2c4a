package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config is the persistent application configuration
type Config struct {
	// SelectedCode is the restaurant shown by default.
	SelectedCode string `json:"selected_code"`

	// Language for feed-based providers: "fi" or "en".
	Language string `json:"language"`

	// RefreshMinutes is the periodic refresh interval. Zero disables
	// the periodic timer; retries and day rollover still run.
	RefreshMinutes int `json:"refresh_minutes"`

	// EnableScraped includes the scrape-based restaurants in the
	// catalog.
	EnableScraped bool `json:"enable_scraped"`

	// Display preferences
	UI UIConfig `json:"ui"`

	// CachePath overrides the payload cache location. Empty means the
	// default path under the config directory.
	CachePath string `json:"cache_path,omitempty"`
}

// UIConfig holds display preferences
type UIConfig struct {
	ShowPrices    bool `json:"show_prices"`
	ShowAllergens bool `json:"show_allergens"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		SelectedCode:   "0437",
		Language:       "fi",
		RefreshMinutes: 60,
		EnableScraped:  true,
		UI: UIConfig{
			ShowPrices:    true,
			ShowAllergens: true,
		},
	}
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lunchtray", "config.json")
}

// DefaultCachePath returns the default payload cache location.
func DefaultCachePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lunchtray", "cache.db")
}

// Load reads config from disk, or returns defaults. A corrupt file
// degrades to defaults rather than failing startup.
func Load() (*Config, error) {
	return loadPath(ConfigPath())
}

func loadPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), nil
	}

	cfg.normalize()
	return &cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	return c.savePath(ConfigPath())
}

func (c *Config) savePath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// normalize clamps loaded values to their supported ranges.
func (c *Config) normalize() {
	if c.Language != "fi" && c.Language != "en" {
		c.Language = "fi"
	}
	if c.RefreshMinutes < 0 {
		c.RefreshMinutes = 0
	}
	if c.SelectedCode == "" {
		c.SelectedCode = DefaultConfig().SelectedCode
	}
}

// ResolvedCachePath is CachePath when set, else the default location.
func (c *Config) ResolvedCachePath() string {
	if c.CachePath != "" {
		return c.CachePath
	}
	return DefaultCachePath()
}
