package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultDatabasePath is used when neither config nor flags name a database
	DefaultDatabasePath = "llm-unify.db"

	envPrefix         = "LLM_UNIFY_"
	maxConfigFileSize = 1024 * 1024
)

// Config holds user configuration
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Search   SearchConfig   `koanf:"search"`
	Server   ServerConfig   `koanf:"server"`
}

// DatabaseConfig locates the database file
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// LogConfig controls log verbosity
type LogConfig struct {
	Level string `koanf:"level"`
}

// SearchConfig holds search defaults
type SearchConfig struct {
	Limit         int `koanf:"limit"`
	SnippetLength int `koanf:"snippet_length"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port int `koanf:"port"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: DefaultDatabasePath},
		Log:      LogConfig{Level: "info"},
		Search:   SearchConfig{Limit: 10, SnippetLength: 200},
		Server:   ServerConfig{Port: 8760},
	}
}

// DefaultConfigPath returns ~/.config/llm-unify/config.yaml
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "llm-unify", "config.yaml"), nil
}

// LoadConfig loads configuration with precedence env > YAML file > defaults.
// An empty path means the default location; a missing file is not an error
// unless the path was given explicitly.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := readConfigFile(path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		LogDebug("Loaded config from %s", path)
	case os.IsNotExist(err) && !explicit:
		// no config file, defaults apply
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// LLM_UNIFY_DATABASE_PATH -> database.path, LLM_UNIFY_SEARCH_SNIPPET_LENGTH -> search.snippet_length
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(key, "_", 2)
		if len(parts) == 1 {
			return key
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxConfigFileSize)
	}
	return os.ReadFile(path)
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Search.Limit == 0 {
		c.Search.Limit = def.Search.Limit
	}
	if c.Search.SnippetLength == 0 {
		c.Search.SnippetLength = def.Search.SnippetLength
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Search.Limit < 0 {
		return fmt.Errorf("search.limit must be >= 0, got %d", c.Search.Limit)
	}
	if c.Search.SnippetLength < 20 {
		return fmt.Errorf("search.snippet_length must be >= 20, got %d", c.Search.SnippetLength)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}
