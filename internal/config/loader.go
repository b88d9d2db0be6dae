package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"json": true, "console": true,
}

// Loader handles configuration loading and parsing
type Loader struct {
	envPattern *regexp.Regexp
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPattern: regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`),
	}
}

// Load reads and parses a configuration file
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return l.Parse(data)
}

// LoadOptional is Load, except that a missing file yields the defaults.
func (l *Loader) LoadOptional(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	cfg, err := l.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// Parse parses configuration from YAML bytes
func (l *Loader) Parse(data []byte) (*Config, error) {
	expanded := l.expandEnvVars(string(data))

	cfg := DefaultConfig()

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := l.Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values
func (l *Loader) expandEnvVars(input string) string {
	return l.envPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match // Keep original if env var not set
	})
}

// Validate checks configuration for errors. It is exported so that CLI
// overrides can be re-checked after they are applied.
func (l *Loader) Validate(cfg *Config) error {
	if cfg.DocsRoot == "" {
		return fmt.Errorf("docs_root is required")
	}
	if err := checkRelative("docs_root", cfg.DocsRoot); err != nil {
		return err
	}

	if cfg.OpenAPI.Spec == "" {
		return fmt.Errorf("openapi.spec is required")
	}
	if err := checkRelative("openapi.spec", cfg.OpenAPI.Spec); err != nil {
		return err
	}

	if cfg.Narrative.Dir == "" {
		return fmt.Errorf("narrative.dir is required")
	}
	if _, err := path.Match(cfg.Narrative.Glob, ""); err != nil {
		return fmt.Errorf("narrative.glob: invalid pattern %q: %w", cfg.Narrative.Glob, err)
	}

	names := make(map[string]bool)
	for i, d := range cfg.Domains {
		if d.Name == "" {
			return fmt.Errorf("domain %d: name is required", i)
		}
		if names[d.Name] {
			return fmt.Errorf("duplicate domain name: %s", d.Name)
		}
		names[d.Name] = true
		if d.Schemas == "" || d.Examples == "" {
			return fmt.Errorf("domain %s: schemas and examples are required", d.Name)
		}
		if err := checkRelative("domain "+d.Name+" schemas", d.Schemas); err != nil {
			return err
		}
		if err := checkRelative("domain "+d.Name+" examples", d.Examples); err != nil {
			return err
		}
	}

	if cfg.Rules.Schema != "" && cfg.Rules.Examples == "" {
		return fmt.Errorf("rules.examples is required when rules.schema is set")
	}
	if cfg.Rules.Glob != "" {
		if _, err := path.Match(cfg.Rules.Glob, ""); err != nil {
			return fmt.Errorf("rules.glob: invalid pattern %q: %w", cfg.Rules.Glob, err)
		}
	}

	if cfg.Limits.EndpointItems <= 0 {
		return fmt.Errorf("limits.endpoint_items must be > 0")
	}
	if cfg.Limits.SchemaItems <= 0 {
		return fmt.Errorf("limits.schema_items must be > 0")
	}

	if cfg.Logging.Level != "" && !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level: invalid level %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "" && !validLogFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format: invalid format %q", cfg.Logging.Format)
	}
	if cfg.Logging.Rotation.MaxSize < 0 || cfg.Logging.Rotation.MaxBackups < 0 || cfg.Logging.Rotation.MaxAge < 0 {
		return fmt.Errorf("logging.rotation values must be >= 0")
	}

	return nil
}

// checkRelative rejects paths that would leave the repository root.
func checkRelative(field, p string) error {
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("%s: path must be relative to the repository root: %s", field, p)
	}
	if !fs.ValidPath(path.Clean(p)) {
		return fmt.Errorf("%s: invalid path: %s", field, p)
	}
	return nil
}

// Overrides holds values supplied on the command line. Empty fields and
// nil pointers leave the loaded configuration untouched.
type Overrides struct {
	LogLevel      string
	MetricsOut    string
	StrictOpenAPI *bool
	Parallel      *bool
}

// Apply returns a copy of cfg with o applied on top.
func (o Overrides) Apply(cfg *Config) *Config {
	result := *cfg
	result.Domains = append([]DomainConfig(nil), cfg.Domains...)

	if o.LogLevel != "" {
		result.Logging.Level = o.LogLevel
	}
	if o.MetricsOut != "" {
		result.Metrics.Textfile = o.MetricsOut
	}
	if o.StrictOpenAPI != nil {
		result.OpenAPI.Strict = *o.StrictOpenAPI
	}
	if o.Parallel != nil {
		result.Parallel = *o.Parallel
	}
	return &result
}
