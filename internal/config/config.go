// Package config provides configuration loading and management for the
// resolver.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/sdkforge/repo-resolver/internal/packages"
)

const (
	// UpgradeStyleStandalone selects upgrade messages addressed to users of
	// the standalone tools
	UpgradeStyleStandalone = "standalone"

	// UpgradeStyleEmbedded selects upgrade messages addressed to users of a
	// host application embedding the resolver
	UpgradeStyleEmbedded = "embedded"
)

// DefaultSyncInterval is used when no sync interval is configured.
const DefaultSyncInterval = 30 * time.Minute

//go:embed schema.json
var schemaJSON []byte

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// ForceHTTP rewrites https:// source URLs to http:// for every load.
	// An escape hatch for environments with broken TLS interception.
	ForceHTTP bool `yaml:"forceHttp,omitempty"`

	// UpgradeStyle selects the wording of upgrade notices (standalone or
	// embedded). Defaults to standalone.
	UpgradeStyle string `yaml:"upgradeStyle,omitempty"`

	// Sources lists the repository sources to resolve
	Sources []SourceConfig `yaml:"sources"`

	// Sync holds the periodic resync policy for the server
	Sync *SyncConfig `yaml:"sync,omitempty"`

	// State holds local state storage settings
	State *StateConfig `yaml:"state,omitempty"`
}

// SourceConfig defines a single repository source
type SourceConfig struct {
	// URL is the package-index URL. A URL ending in a path separator has
	// the canonical index filename appended at load time.
	URL string `yaml:"url"`

	// Name is an optional user-visible label for the source
	Name string `yaml:"name,omitempty"`

	// Trusted marks the source as allowed to declare every package
	// variant. Untrusted sources are limited to add-on and extra packages.
	Trusted bool `yaml:"trusted,omitempty"`
}

// SyncConfig defines the periodic resync policy
type SyncConfig struct {
	// Interval between resyncs (e.g. "30m", "1h")
	Interval string `yaml:"interval"`
}

// StateConfig defines local state storage settings
type StateConfig struct {
	// Dir is the directory holding per-source status files.
	// Defaults to the XDG state directory.
	Dir string `yaml:"dir,omitempty"`
}

// Trust maps the source's trusted flag onto a trust level.
func (s *SourceConfig) Trust() packages.Trust {
	if s.Trusted {
		return packages.TrustInternal
	}
	return packages.TrustAddon
}

// GetUpgradeStyle returns the upgrade style, using standalone if not specified
func (c *Config) GetUpgradeStyle() string {
	if c.UpgradeStyle == "" {
		return UpgradeStyleStandalone
	}
	return c.UpgradeStyle
}

// GetSyncInterval returns the configured resync interval, or the default
// when no sync policy is present.
func (c *Config) GetSyncInterval() time.Duration {
	if c.Sync == nil || c.Sync.Interval == "" {
		return DefaultSyncInterval
	}
	d, err := time.ParseDuration(c.Sync.Interval)
	if err != nil {
		// validate() already rejected unparsable intervals
		return DefaultSyncInterval
	}
	return d
}

// GetStateDir returns the state directory, defaulting to the XDG state home
func (c *Config) GetStateDir() string {
	if c.State != nil && c.State.Dir != "" {
		return c.State.Dir
	}
	return filepath.Join(xdg.StateHome, "repo-resolver")
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	// As of now, this is required because there's no other options to load
	// configuration. Once we add more options, we can remove this check.
	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := validateAgainstSchema(data); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateAgainstSchema checks the raw YAML document against the embedded
// JSON schema. The document is round-tripped through JSON because the
// schema engine operates on JSON values.
func validateAgainstSchema(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode config for validation: %w", err)
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to decode config for validation: %w", err)
	}

	schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return fmt.Errorf("failed to parse embedded config schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", schemaDoc); err != nil {
		return fmt.Errorf("failed to register config schema: %w", err)
	}
	schema, err := compiler.Compile("config.schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile config schema: %w", err)
	}

	return schema.Validate(instance)
}

// validate performs the checks the schema cannot express
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source must be configured")
	}

	if style := c.GetUpgradeStyle(); style != UpgradeStyleStandalone && style != UpgradeStyleEmbedded {
		return fmt.Errorf("upgradeStyle must be %q or %q, got %q",
			UpgradeStyleStandalone, UpgradeStyleEmbedded, style)
	}

	seen := make(map[string]bool)
	for i, src := range c.Sources {
		if err := validateSourceConfig(&src, i); err != nil {
			return err
		}
		if seen[src.URL] {
			return fmt.Errorf("source[%d]: duplicate source URL '%s'", i, src.URL)
		}
		seen[src.URL] = true
	}

	if c.Sync != nil && c.Sync.Interval != "" {
		if _, err := time.ParseDuration(c.Sync.Interval); err != nil {
			return fmt.Errorf("sync.interval must be a valid duration (e.g., '30m', '1h'): %w", err)
		}
	}

	return nil
}

// validateSourceConfig validates a single source configuration
func validateSourceConfig(src *SourceConfig, index int) error {
	prefix := fmt.Sprintf("source[%d]", index)

	if src.URL == "" {
		return fmt.Errorf("%s: url is required", prefix)
	}

	parsed, err := url.Parse(src.URL)
	if err != nil {
		return fmt.Errorf("%s: url is not valid: %w", prefix, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: url scheme must be http or https, got %q", prefix, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: url has no host", prefix)
	}

	return nil
}
