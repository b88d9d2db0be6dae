package config

// Config is the root configuration. All paths are slash-separated and
// relative to the repository root.
type Config struct {
	DocsRoot  string          `yaml:"docs_root"`
	OpenAPI   OpenAPIConfig   `yaml:"openapi"`
	Narrative NarrativeConfig `yaml:"narrative"`
	Domains   []DomainConfig  `yaml:"domains"`
	Rules     RulesConfig     `yaml:"rules"`
	Registry  string          `yaml:"registry"`
	Limits    LimitsConfig    `yaml:"limits"`
	Schema    SchemaConfig    `yaml:"schema"`
	Parallel  bool            `yaml:"parallel"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// OpenAPIConfig locates the API specification.
type OpenAPIConfig struct {
	Spec string `yaml:"spec"`
	// Strict additionally runs full document validation.
	Strict bool `yaml:"strict"`
}

// NarrativeConfig locates the human-written API documents.
type NarrativeConfig struct {
	Dir  string `yaml:"dir"`
	Glob string `yaml:"glob"`
}

// DomainConfig is one message-contract family (mqtt, kafka, ...).
type DomainConfig struct {
	Name     string `yaml:"name"`
	Schemas  string `yaml:"schemas"`
	Examples string `yaml:"examples"`
	Suffix   string `yaml:"suffix"`
}

// RulesConfig locates the rule-language schema and its examples.
type RulesConfig struct {
	Schema   string `yaml:"schema"`
	Examples string `yaml:"examples"`
	Glob     string `yaml:"glob"`
}

// LimitsConfig caps itemized output.
type LimitsConfig struct {
	EndpointItems int `yaml:"endpoint_items"` // per cross-reference direction
	SchemaItems   int `yaml:"schema_items"`   // per failing example
}

// SchemaConfig tunes JSON Schema compilation.
type SchemaConfig struct {
	AssertFormat bool `yaml:"assert_format"`
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	Format   string            `yaml:"format"`
	Level    string            `yaml:"level"`
	Output   string            `yaml:"output"`
	Rotation LogRotationConfig `yaml:"rotation"`
}

// LogRotationConfig defines log file rotation settings (powered by lumberjack).
type LogRotationConfig struct {
	MaxSize    int  `yaml:"max_size"`    // max megabytes before rotation (default 100)
	MaxBackups int  `yaml:"max_backups"` // old rotated files to keep (default 3)
	MaxAge     int  `yaml:"max_age"`     // days to retain old files (default 28)
	Compress   bool `yaml:"compress"`    // gzip rotated files (default true)
	LocalTime  bool `yaml:"local_time"`  // use local time in backup filenames
}

// MetricsConfig configures the Prometheus textfile written after each run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// DefaultConfig returns the layout of the landslide-monitoring documentation
// tree.
func DefaultConfig() *Config {
	return &Config{
		DocsRoot: "docs",
		OpenAPI: OpenAPIConfig{
			Spec: "docs/integrations/api/openapi.yaml",
		},
		Narrative: NarrativeConfig{
			Dir:  "docs/integrations/api",
			Glob: "[0-9][0-9]-*.md",
		},
		Domains: []DomainConfig{
			{
				Name:     "mqtt",
				Schemas:  "docs/integrations/mqtt/schemas",
				Examples: "docs/integrations/mqtt/examples",
				Suffix:   ".schema.json",
			},
			{
				Name:     "kafka",
				Schemas:  "docs/integrations/kafka/schemas",
				Examples: "docs/integrations/kafka/examples",
				Suffix:   ".schema.json",
			},
		},
		Rules: RulesConfig{
			Schema:   "docs/integrations/rules/rule-dsl.schema.json",
			Examples: "docs/integrations/rules/examples",
			Glob:     "*.v1.json",
		},
		Registry: "docs/integrations/contract-registry.md",
		Limits: LimitsConfig{
			EndpointItems: 50,
			SchemaItems:   10,
		},
		Schema:   SchemaConfig{AssertFormat: true},
		Parallel: true,
		Logging: LoggingConfig{
			Format: "console",
			Level:  "warn",
			Output: "stderr",
			Rotation: LogRotationConfig{
				MaxSize:    100,
				MaxBackups: 3,
				MaxAge:     28,
				Compress:   true,
			},
		},
	}
}
