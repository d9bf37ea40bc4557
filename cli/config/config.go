package config

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents a boltstream.yaml configuration file.
// All values are optional and act as defaults for boltstream parse flags.
// CLI flags always override config values.
type Config struct {
	Source  string        `yaml:"source"`
	Parser  ParserConfig  `yaml:"parser"`
	Policy  PolicyConfig  `yaml:"policy"`
	Storage StorageConfig `yaml:"storage"`
	Adapter AdapterConfig `yaml:"adapter"`
}

// ParserConfig holds parser limits from the config file.
// Zero values keep the parser defaults.
type ParserConfig struct {
	ContentUpdateThreshold int `yaml:"content_update_threshold"`
	MaxTagBuffer           int `yaml:"max_tag_buffer"`
	MaxImageBuffer         int `yaml:"max_image_buffer"`
}

// PolicyConfig holds policy defaults from the config file.
type PolicyConfig struct {
	Name          string   `yaml:"name"`
	BufferEvents  int      `yaml:"buffer_events"`
	BufferBytes   int64    `yaml:"buffer_bytes"`
	FlushCount    int      `yaml:"flush_count"`
	FlushInterval Duration `yaml:"flush_interval"`
	// FlushOnArtifact flushes the streaming policy at each artifact close.
	FlushOnArtifact bool `yaml:"flush_on_artifact"`
}

// StorageConfig holds storage defaults from the config file.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Stream  string            `yaml:"stream,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

var (
	validPolicies = map[string]bool{"": true, "strict": true, "buffered": true, "streaming": true}
	validBackends = map[string]bool{"": true, "fs": true, "s3": true}
	validAdapters = map[string]bool{"": true, "webhook": true, "redis": true}
)

// Validate checks enumerated values and numeric ranges. It does not check
// combinations that depend on CLI flags.
func (c *Config) Validate() error {
	var errs []error
	if !validPolicies[c.Policy.Name] {
		errs = append(errs, fmt.Errorf("policy.name: unknown policy %q", c.Policy.Name))
	}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend))
	}
	if !validAdapters[c.Adapter.Type] {
		errs = append(errs, fmt.Errorf("adapter.type: unknown adapter %q", c.Adapter.Type))
	}
	if c.Parser.ContentUpdateThreshold < 0 || c.Parser.MaxTagBuffer < 0 || c.Parser.MaxImageBuffer < 0 {
		errs = append(errs, errors.New("parser: limits must not be negative"))
	}
	if c.Policy.BufferEvents < 0 || c.Policy.BufferBytes < 0 || c.Policy.FlushCount < 0 {
		errs = append(errs, errors.New("policy: sizes must not be negative"))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, errors.New("adapter.retries: must not be negative"))
	}
	return errors.Join(errs...)
}
