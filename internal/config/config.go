package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configDirName = "content-creator"
	defaultConfig = ".config"

	EnvAPIKey  = "MISTRAL_API_KEY"
	EnvBaseURL = "MISTRAL_BASE_URL"
)

var configFiles = []string{
	"config.yaml",
	"config.yml",
}

// Config represents the structure of the configuration file used by the application.
type Config struct {
	APIKey       string            `yaml:"api_key"`
	BaseURL      string            `yaml:"base_url" default:"https://api.mistral.ai"`
	Model        string            `yaml:"model" default:"mistral-medium-latest"`
	Temperature  float64           `yaml:"temperature" default:"0.7"`
	SystemPrompt string            `yaml:"system_prompt"`
	Slides       int               `yaml:"slides" default:"6"`
	Timeout      time.Duration     `yaml:"timeout" default:"60s"`
	OutputDir    string            `yaml:"output_dir" default:"outputs"`
	Prompts      map[string]string `yaml:"prompts"`
	Tones        map[string]string `yaml:"tones"`
	Render       RenderConfig      `yaml:"render"`
	Log          LogConfig         `yaml:"log"`
	Server       ServerConfig      `yaml:"server"`
}

type RenderConfig struct {
	Format string `yaml:"format" default:"markdown"`
	Wrap   int    `yaml:"wrap" default:"120"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"warn"`
	Format string `yaml:"format" default:"text"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" default:"127.0.0.1:5000"`
}

// configResult is a struct used to return the configuration and any error that occurs during loading.
type configResult struct {
	config *Config
	err    error
}

// NewDefaultConfig creates a configuration populated from the default tags.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		// Tags are static, so this only fails on a programming error.
		panic(fmt.Sprintf("config: invalid default tags: %v", err))
	}
	if cfg.Prompts == nil {
		cfg.Prompts = map[string]string{}
	}
	if cfg.Tones == nil {
		cfg.Tones = map[string]string{}
	}
	return cfg
}

// getConfigPath retrieves the path to the configuration directory based on the XDG_CONFIG_HOME environment variable.
func getConfigPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configHome = filepath.Join(home, defaultConfig)
	}

	return filepath.Join(configHome, configDirName), nil
}

// tryLoadConfig attempts to load a configuration file from the specified path.
func tryLoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadConfig loads the configuration from the user's config directory, with a timeout,
// then applies .env and environment overrides.
func LoadConfig(ctx context.Context) (*Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result := make(chan configResult, 1)

	go func() {
		cfg, err := loadConfigFiles(ctx)
		result <- configResult{config: cfg, err: err}
	}()

	done := ctx.Done()
	select {
	case <-done:
		return nil, ctx.Err()
	case r := <-result:
		if r.err != nil {
			return nil, r.err
		}
		if err := loadDotEnv(".env"); err != nil {
			return nil, err
		}
		r.config.ApplyEnv()
		return r.config, nil
	}
}

// loadConfigFiles loads configuration files from the user's config directory.
func loadConfigFiles(ctx context.Context) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error before loading config: %w", err)
	}

	configDir, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	return loadFromDir(ctx, configDir)
}

func loadFromDir(ctx context.Context, configDir string) (*Config, error) {
	// Return default config early if directory doesn't exist
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return NewDefaultConfig(), nil
	}

	for _, filename := range configFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfg, err := tryLoadConfig(filepath.Join(configDir, filename))
		if err == nil {
			return cfg, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config from %s: %w", filename, err)
		}
	}

	return NewDefaultConfig(), nil
}

// loadDotEnv loads variables from path into the process environment without
// overriding variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// ApplyEnv overrides the API key and base URL from the environment.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		c.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		c.BaseURL = v
	}
}

// UsePlainText reports whether the configuration asks for unrendered output.
func (c *Config) UsePlainText() bool {
	return strings.EqualFold(c.Render.Format, "plain")
}
