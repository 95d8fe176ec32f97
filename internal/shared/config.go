package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Generation  GenerationConfig  `toml:"generation"`
	Cache       CacheConfig       `toml:"cache"`
	Backfill    BackfillConfig    `toml:"backfill"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	OpenAI  OpenAIConfig  `toml:"openai"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	BaseURL      string `toml:"base_url"`
}

// OpenAIConfig contains text and image generation settings.
type OpenAIConfig struct {
	APIKey     string  `toml:"api_key"`
	BaseURL    string  `toml:"base_url"`
	TextModel  string  `toml:"text_model"`
	ImageModel string  `toml:"image_model"`
	ImageSize  string  `toml:"image_size"`
	Quality    string  `toml:"quality"`
	Style      string  `toml:"style"`
	Timeout    int     `toml:"timeout_seconds"`
	MaxRetries uint64  `toml:"max_retries"`
	Creativity float64 `toml:"temperature"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings for the OAuth callback and cover hosting.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig locates durable cover storage.
type StorageConfig struct {
	Dir       string `toml:"dir"`
	PublicURL string `toml:"public_url"`
}

// GenerationConfig tunes the discovery pipeline.
type GenerationConfig struct {
	MaxRounds       int     `toml:"max_rounds"`
	OverRequest     int     `toml:"over_request"`
	BaseTimeout     int     `toml:"base_timeout_seconds"`
	PerSongTimeout  int     `toml:"per_song_timeout_seconds"`
	MaxSearchOffset int     `toml:"max_search_offset"`
	SearchLimit     int     `toml:"search_limit"`
	RetryUnitMillis int     `toml:"retry_unit_millis"`
	MainstreamShare float64 `toml:"mainstream_share"`
	CacheMinutes    int     `toml:"cache_minutes"`
}

// CacheConfig sizes the read-through library cache.
type CacheConfig struct {
	TTLSeconds int   `toml:"ttl_seconds"`
	MaxSize    int64 `toml:"max_size"`
}

// BackfillConfig throttles cover migrations.
type BackfillConfig struct {
	RateLimit  float64 `toml:"rate_limit"`
	NumWorkers int     `toml:"num_workers"`
}

// Deadline returns the overall generation deadline for songCount tracks.
// An unset base timeout counts as 120 seconds.
func (g GenerationConfig) Deadline(songCount int) time.Duration {
	base := g.BaseTimeout
	if base <= 0 {
		base = 120
	}
	return time.Duration(base)*time.Second + time.Duration(max(g.PerSongTimeout, 0)*songCount)*time.Second
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ApplyEnv overlays secrets and paths from the environment, loading envFiles first when they exist.
//
// Missing env files are ignored; variables already set in the process win over file values.
func (c *Config) ApplyEnv(envFiles ...string) error {
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, path, err)
		}
	}

	overrides := map[string]*string{
		"OPENAI_API_KEY":      &c.Credentials.OpenAI.APIKey,
		"SPOTIFY_ID":          &c.Credentials.Spotify.ClientID,
		"SPOTIFY_SECRET":      &c.Credentials.Spotify.ClientSecret,
		"SPOTIFY_REDIRECT":    &c.Credentials.Spotify.RedirectURI,
		"VIBEMIX_DB":          &c.Database.Path,
		"VIBEMIX_STORAGE_DIR": &c.Storage.Dir,
		"VIBEMIX_PUBLIC_URL":  &c.Storage.PublicURL,
	}
	for key, target := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*target = v
		}
	}
	return nil
}
