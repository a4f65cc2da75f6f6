package core

import (
	"fmt"
	"os"
	"strings"

	"github.com/jo-hoe/faceregistry/internal/backend/commandstructure"
	"github.com/jo-hoe/faceregistry/internal/backend/database"
	"github.com/jo-hoe/faceregistry/internal/backend/detector"
	"github.com/jo-hoe/faceregistry/internal/backend/session"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = 8080
	defaultThumbnailWidth = 480
)

var defaultAllowedExtensions = []string{"jpg", "jpeg", "png"}

// CommandConfig represents a generic command configuration
type CommandConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

type Detector struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

type Session struct {
	Type       string `yaml:"type"`
	Address    string `yaml:"address"`
	TTLSeconds int    `yaml:"ttlSeconds"`
}

type ServiceConfig struct {
	Port              int             `yaml:"port"`
	Database          Database        `yaml:"database"`
	Detector          Detector        `yaml:"detector"`
	Session           Session         `yaml:"session"`
	AllowedExtensions []string        `yaml:"allowedExtensions"`
	ThumbnailWidth    int             `yaml:"thumbnailWidth"`
	Commands          []CommandConfig `yaml:"commands"`
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return &config, nil
}

func (c *ServiceConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.ConnectionString == "" {
		c.Database.ConnectionString = database.DefaultConnectionString
	}
	if c.Detector.URL == "" {
		c.Detector.URL = detector.DefaultURL
	}
	if c.Detector.TimeoutSeconds == 0 {
		c.Detector.TimeoutSeconds = int(detector.DefaultTimeout.Seconds())
	}
	if c.Session.Type == "" {
		c.Session.Type = "memory"
	}
	if c.Session.TTLSeconds == 0 {
		c.Session.TTLSeconds = int(session.DefaultTTL.Seconds())
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = append([]string(nil), defaultAllowedExtensions...)
	}
	for i, ext := range c.AllowedExtensions {
		c.AllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	}
	if c.ThumbnailWidth == 0 {
		c.ThumbnailWidth = defaultThumbnailWidth
	}
}

func (c *ServiceConfig) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	switch c.Session.Type {
	case "memory":
	case "redis":
		if c.Session.Address == "" {
			return fmt.Errorf("session.address is required for the redis session store")
		}
	default:
		return fmt.Errorf("unsupported session type: %s", c.Session.Type)
	}
	if c.Detector.TimeoutSeconds < 0 || c.Session.TTLSeconds < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.ThumbnailWidth < 0 {
		return fmt.Errorf("thumbnailWidth must not be negative, got %d", c.ThumbnailWidth)
	}
	return validateCommands(c.Commands)
}

// validateCommands ensures all command configurations have required fields
func validateCommands(commands []CommandConfig) error {
	seenNames := make(map[string]bool)

	for i, cmd := range commands {
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}
		if !commandstructure.DefaultRegistry.IsRegistered(cmd.Name) {
			return fmt.Errorf("command at index %d is unknown: %s (available: %s)", i, cmd.Name,
				strings.Join(commandstructure.DefaultRegistry.GetRegisteredNames(), ", "))
		}
		if seenNames[cmd.Name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[cmd.Name] = true
	}

	return nil
}
