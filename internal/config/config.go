package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lvrach/x-social-ai/internal/agents"
	"github.com/lvrach/x-social-ai/internal/state"
	"github.com/lvrach/x-social-ai/internal/welcome"
)

// Config holds the application configuration.
type Config struct {
	Welcome  Welcome  `json:"welcome"`
	Schedule Schedule `json:"schedule"`
}

// Welcome configures the welcome bot.
type Welcome struct {
	Endpoint      string   `json:"endpoint"`
	Cap           int      `json:"cap"`
	DelayMS       int      `json:"delay_ms"`
	StateFile     string   `json:"state_file"` // relative to the working directory
	Markers       []string `json:"markers"`
	ReplyTemplate string   `json:"reply_template"`
}

// Delay returns the pause between candidates.
func (w Welcome) Delay() time.Duration {
	return time.Duration(w.DelayMS) * time.Millisecond
}

// Schedule configures the background welcome job.
type Schedule struct {
	IntervalMinutes int    `json:"interval_minutes"`
	WorkDir         string `json:"work_dir,omitempty"` // where the job runs; set by schedule install
}

// Interval returns the job interval.
func (s Schedule) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Welcome: Welcome{
			Endpoint:      agents.DefaultEndpoint,
			Cap:           welcome.DefaultCap,
			DelayMS:       int(welcome.DefaultDelay / time.Millisecond),
			StateFile:     state.DefaultPath,
			Markers:       append([]string(nil), welcome.DefaultMarkers...),
			ReplyTemplate: welcome.DefaultReplyTemplate,
		},
		Schedule: Schedule{IntervalMinutes: 30},
	}
}

// configDir returns the config directory path.
// Exported as a var for testing.
var configDir = defaultConfigDir

func defaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "x-social-ai")
}

func configPath() string {
	return filepath.Join(configDir(), "config.json")
}

// Path returns the config file location.
func Path() string { return configPath() }

// Exists returns true if a config file has been saved.
func Exists() bool {
	_, err := os.Stat(configPath())
	return err == nil
}

// Load reads the config file. Returns default config if file doesn't exist.
// Fields absent from the file keep their defaults.
func Load() (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := configDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath(), data, 0o600)
}
