package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
// It is read once at startup and never reloaded.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Discord
	DiscordToken     string `envconfig:"DISCORD_TOKEN"`
	SupportGuildID   string `envconfig:"SUPPORT_GUILD_ID"`
	SupportChannelID string `envconfig:"SUPPORT_CHANNEL_ID"` // parent channel for ticket threads
	SupportRoleID    string `envconfig:"SUPPORT_ROLE_ID"`
	SupportRoleName  string `envconfig:"SUPPORT_ROLE_NAME" default:"Support Crew"`
	ServerName       string `envconfig:"SERVER_NAME" default:"Saudia Virtual"`

	// Tickets
	WarningTTL    time.Duration `envconfig:"WARNING_TTL" default:"5s"`
	TemplatesFile string        `envconfig:"TEMPLATES_FILE"` // optional YAML overrides

	// Ops
	OpsListenAddr string `envconfig:"OPS_LISTEN_ADDR" default:":8080"`
}

// Validate reports every missing required setting in one error.
func (c *Config) Validate() error {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"DISCORD_TOKEN", c.DiscordToken},
		{"SUPPORT_GUILD_ID", c.SupportGuildID},
		{"SUPPORT_CHANNEL_ID", c.SupportChannelID},
		{"SUPPORT_ROLE_ID", c.SupportRoleID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if c.WarningTTL < 0 {
		return fmt.Errorf("WARNING_TTL must not be negative, got %s", c.WarningTTL)
	}
	return nil
}

// IsDevelopment returns true when running with the development environment.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	return LoadWithPrefix("")
}

// LoadWithPrefix reads configuration with a prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		if prefix == "" {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
