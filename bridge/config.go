package bridge

import (
	"github.com/hazyhaar/treebridge/bridge/internal/config"
)

// Config is the top-level bridge configuration. Re-exported from internal.
type Config = config.Config

// DocumentConfig seeds the live tree.
type DocumentConfig = config.DocumentConfig

// TagConfig names the body and style elements.
type TagConfig = config.TagConfig

// DebounceConfig controls mutation batching.
type DebounceConfig = config.DebounceConfig

// RegistryConfig controls identity lifetime.
type RegistryConfig = config.RegistryConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// JournalConfig locates the message journal.
type JournalConfig = config.JournalConfig

// HTTPConfig controls the inbound HTTP endpoint.
type HTTPConfig = config.HTTPConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// ParseConfig decodes YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	return config.Parse(data)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
