package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"cuops/internal/domain"
)

// Config models cuops.yml.
type Config struct {
	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Server struct {
		Addr      string `yaml:"addr"`
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Ledger struct {
		AllowOverdraft bool `yaml:"allow_overdraft"`
	} `yaml:"ledger"`
	Tasks struct {
		ApplyTemplateOnCommission bool                `yaml:"apply_template_on_commission"`
		Templates                 map[string][]string `yaml:"templates"`
	} `yaml:"tasks"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret"`
	Events         []string `yaml:"events"`
	CustomerID     string   `yaml:"customer_id"`
	Enabled        *bool    `yaml:"enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// LoadOrDefault returns the default config when the workspace has no cuops.yml.
func LoadOrDefault(workspace string) (*Config, error) {
	cfg, err := LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return Default(), nil
	}
	return cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("config.database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config.database.driver must be 'sqlite' or 'postgres'")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("config.log.format must be 'json' or 'text'")
	}
	for name, titles := range c.Tasks.Templates {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("config.tasks.templates contains an empty template name")
		}
		if len(titles) == 0 {
			return fmt.Errorf("template %s has no tasks", name)
		}
		for _, title := range titles {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("template %s has an empty task title", name)
			}
		}
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("config.webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	return nil
}

// Template returns the task titles for a template name.
func (c *Config) Template(name string) ([]string, bool) {
	titles, ok := c.Tasks.Templates[name]
	return titles, ok
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "cuops.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	// Decoding over the defaults keeps unset sections populated.
	cfg.Tasks.Templates = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if cfg.Tasks.Templates == nil {
		cfg.Tasks.Templates = Default().Tasks.Templates
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// ContentTypeTemplates reports content types that have no matching template.
func (c *Config) ContentTypeTemplates() (missing []string) {
	for _, ct := range domain.ContentTypes {
		if _, ok := c.Tasks.Templates[ct]; !ok {
			missing = append(missing, ct)
		}
	}
	return missing
}

const defaultTemplate = `database:
  driver: sqlite
  dsn: ""

server:
  addr: 127.0.0.1:8080
  base_path: /v1
  jwt_secret: ""

log:
  level: info
  format: text

ledger:
  allow_overdraft: false

tasks:
  apply_template_on_commission: false
  templates:
    article: [Research, Outline, Draft, Edit, Final review]
    video: [Script, Storyboard, Shoot, Edit, Captions]
    graphic: [Brief, Design, Review]
    thread: [Draft, Review]
    newsletter: [Collect links, Draft, Proofread, Schedule]
    podcast: [Book guest, Record, Edit audio, Show notes]
    other: [Draft, Review]

webhooks: []
`
