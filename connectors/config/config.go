package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the structure of config.yml used by the tool.
// Only the fields currently needed by commands are modeled.
type Config struct {
	DataDir string `yaml:"data_dir"`

	Web struct {
		Addr  string `yaml:"addr"`
		UIDir string `yaml:"ui_dir"`
	} `yaml:"web"`

	// Lake describes the OAuth2-protected endpoint the import command pulls
	// the raw tables from. ClientSecret may be overridden with the
	// LAKE_CLIENT_SECRET environment variable.
	Lake struct {
		BaseURL      string   `yaml:"base_url"`
		TokenURL     string   `yaml:"token_url"`
		ClientID     string   `yaml:"client_id"`
		ClientSecret string   `yaml:"client_secret"`
		Scopes       []string `yaml:"scopes"`
	} `yaml:"lake"`
}

// Path returns the configured config file location: CONFIG_PATH env or
// ./config.yml.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config.yml"
}

// Load parses the YAML configuration file at path and applies defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	slog.Info(fmt.Sprintf("Loaded config: %s", path))
	return &c, nil
}

// LoadOrDefault loads Path() when the file exists, otherwise returns a config
// holding only defaults so commands remain usable from flags alone.
func LoadOrDefault() *Config {
	p := Path()
	if _, err := os.Stat(p); err == nil {
		if c, err := Load(p); err == nil {
			return c
		}
	}
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Web.Addr == "" {
		c.Web.Addr = ":8080"
	}
	if c.Web.UIDir == "" {
		c.Web.UIDir = "./ui/dist"
	}
}
