// Package config provides configuration structures and loading for the
// account review exporter.
package config

// Config represents the complete application configuration.
type Config struct {
	Source   DatabaseConfig          `yaml:"source" mapstructure:"source"`
	Entities map[string]EntityConfig `yaml:"entities" mapstructure:"entities"`
	Export   ExportConfig            `yaml:"export" mapstructure:"export"`
	Mail     MailConfig              `yaml:"mail" mapstructure:"mail"`
	Logging  LoggingConfig           `yaml:"logging" mapstructure:"logging"`
}

// DatabaseConfig represents a MySQL database connection configuration.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// EntityConfig declares one exportable entity: the table backing it, the
// column used as its human-readable label when it appears as a relation
// target, and the fields excluded from extraction.
type EntityConfig struct {
	Table         string   `yaml:"table" mapstructure:"table"`
	DisplayField  string   `yaml:"display_field" mapstructure:"display_field"`
	ExcludeFields []string `yaml:"exclude_fields" mapstructure:"exclude_fields"`
}

// ExportConfig holds defaults for the export command.
type ExportConfig struct {
	Format    string `yaml:"format" mapstructure:"format"`         // json, csv, xml
	Method    string `yaml:"method" mapstructure:"method"`         // log, local, mail
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"` // directory for local delivery
	Emitter   string `yaml:"emitter" mapstructure:"emitter"`       // sender address for mail delivery
}

// MailConfig represents the SMTP transport settings.
type MailConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Source: DatabaseConfig{
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Export: ExportConfig{
			Format:  "json",
			Method:  "log",
			Emitter: "no-reply@account-review.com",
		},
		Mail: MailConfig{
			Port: 587,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// GetEntity retrieves a specific entity configuration by alias.
func (c *Config) GetEntity(alias string) (*EntityConfig, error) {
	entity, exists := c.Entities[alias]
	if !exists {
		return nil, ValidationError{Field: "entities", Message: "entity " + alias + " not found in configuration"}
	}
	return &entity, nil
}

// ListEntities returns all entity aliases defined in the configuration.
func (c *Config) ListEntities() []string {
	aliases := make([]string, 0, len(c.Entities))
	for alias := range c.Entities {
		aliases = append(aliases, alias)
	}
	return aliases
}

// ApplyOverrides applies CLI flag overrides to the global configuration.
// Only non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
}
