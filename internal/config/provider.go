package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Provider loads the application configuration from a particular source.
type Provider interface {
	Load() (*Config, error)
	Name() string
}

// EnvProvider reads configuration from environment variables.
type EnvProvider struct{}

func (EnvProvider) Name() string { return "environment" }

func (EnvProvider) Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v), nil
}

// FileProvider reads configuration from a file (YAML, TOML, JSON, ...).
// Environment variables still take precedence over file values, so secrets
// never have to be committed alongside the file.
type FileProvider struct {
	Path string
}

func (p FileProvider) Name() string { return "file " + p.Path }

func (p FileProvider) Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(p.Path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", p.Path, err)
	}
	v.AutomaticEnv()
	setDefaults(v)

	if v.InConfig("auth_session_secret") {
		return nil, fmt.Errorf("config file %s must not contain auth_session_secret, set AUTH_SESSION_SECRET instead", p.Path)
	}

	return fromViper(v), nil
}

// SelectProvider picks a file provider when a path is given (flag first, then
// CONFIG_FILE) and falls back to the environment provider.
func SelectProvider(path string) Provider {
	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		return FileProvider{Path: path}
	}
	return EnvProvider{}
}
