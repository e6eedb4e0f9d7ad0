package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Downloads   DownloadsConfig   `toml:"downloads"`
	Tools       ToolsConfig       `toml:"tools"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials for the client-credentials flow.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// DownloadsConfig contains sync and output settings.
type DownloadsConfig struct {
	Dir                   string  `toml:"dir"`
	Format                string  `toml:"format"`
	Bitrate               string  `toml:"bitrate"`
	Concurrency           int     `toml:"concurrency"`
	MaxRetries            int     `toml:"max_retries"`
	AttemptTimeoutSeconds int     `toml:"attempt_timeout_seconds"`
	RateLimit             float64 `toml:"rate_limit"`
}

// ToolsConfig contains paths to the external media binaries.
// Empty values resolve against PATH.
type ToolsConfig struct {
	YTDLP  string `toml:"ytdlp"`
	FFmpeg string `toml:"ffmpeg"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Spotify credentials may be supplied or overridden via SPOTIFY_CLIENT_ID and
// SPOTIFY_CLIENT_SECRET, read from the environment or an optional .env file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidArgument)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnv overlays Spotify credentials from the environment. A .env file in the
// working directory is loaded first if present; real environment variables win.
func (c *Config) applyEnv() {
	godotenv.Load()

	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
}
