// Package config handles bridge configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level bridge configuration.
type Config struct {
	Document      DocumentConfig `yaml:"document"`
	Tags          TagConfig      `yaml:"tags"`
	PointerPrefix string         `yaml:"pointer_prefix"`
	Debounce      DebounceConfig `yaml:"debounce"`
	Registry      RegistryConfig `yaml:"registry"`
	Sinks         []SinkConfig   `yaml:"sinks"`
	Journal       JournalConfig  `yaml:"journal"`
	HTTP          HTTPConfig     `yaml:"http"`
}

// DocumentConfig seeds the live tree.
type DocumentConfig struct {
	URL   string `yaml:"url"`
	Width int    `yaml:"width"`
	File  string `yaml:"file"` // HTML file parsed at startup; empty means a blank page
	// Policy cleans the file before parsing: "" (none) | ugc | strict.
	Policy string `yaml:"policy"`
}

// TagConfig names the elements the sanitizer treats specially.
type TagConfig struct {
	Body  string `yaml:"body"`
	Style string `yaml:"style"`
}

// DebounceConfig controls mutation batching.
type DebounceConfig struct {
	Window    time.Duration `yaml:"window"`
	MaxBuffer int           `yaml:"max_buffer"`
	Compress  bool          `yaml:"compress"`
}

// RegistryConfig controls identity lifetime.
type RegistryConfig struct {
	EvictRemoved bool `yaml:"evict_removed"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type    string `yaml:"type"` // stdout | webhook | journal
	URL     string `yaml:"url"`  // for webhook
	Retries int    `yaml:"retries"`
}

// JournalConfig locates the SQLite message journal. Empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig controls the inbound HTTP endpoint. Empty addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Sink types.
const (
	SinkStdout  = "stdout"
	SinkWebhook = "webhook"
	SinkJournal = "journal"
)

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.Document.URL == "" {
		c.Document.URL = "about:blank"
	}
	if c.Tags.Body == "" {
		c.Tags.Body = "body"
	}
	if c.Tags.Style == "" {
		c.Tags.Style = "style"
	}
	if c.PointerPrefix == "" {
		c.PointerPrefix = "touch"
	}
	if c.Debounce.Window <= 0 {
		c.Debounce.Window = 250 * time.Millisecond
	}
	if c.Debounce.MaxBuffer <= 0 {
		c.Debounce.MaxBuffer = 1000
	}
	for i := range c.Sinks {
		if c.Sinks[i].Type == SinkWebhook && c.Sinks[i].Retries <= 0 {
			c.Sinks[i].Retries = 3
		}
	}
}

func (c *Config) validate() error {
	for i, s := range c.Sinks {
		switch s.Type {
		case SinkStdout:
		case SinkWebhook:
			if s.URL == "" {
				return fmt.Errorf("config: sinks[%d]: webhook requires url", i)
			}
		case SinkJournal:
			if c.Journal.Path == "" {
				return fmt.Errorf("config: sinks[%d]: journal sink requires journal.path", i)
			}
		default:
			return fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	switch c.Document.Policy {
	case "", "ugc", "strict":
	default:
		return fmt.Errorf("config: document.policy: unknown policy %q", c.Document.Policy)
	}
	if c.Document.Width < 0 {
		return fmt.Errorf("config: document.width must not be negative")
	}
	return nil
}
