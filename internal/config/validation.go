package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

var validFormats = map[string]bool{"json": true, "csv": true, "xml": true}
var validMethods = map[string]bool{"log": true, "local": true, "mail": true}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if c.Source.Host == "" {
		errors = append(errors, ValidationError{Field: "source.host", Message: "host is required"})
	}
	if c.Source.Port <= 0 || c.Source.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "source.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", c.Source.Port),
		})
	}
	if c.Source.User == "" {
		errors = append(errors, ValidationError{Field: "source.user", Message: "user is required"})
	}
	if c.Source.Database == "" {
		errors = append(errors, ValidationError{Field: "source.database", Message: "database is required"})
	}

	if len(c.Entities) == 0 {
		errors = append(errors, ValidationError{
			Field:   "entities",
			Message: "at least one entity must be defined",
		})
	}
	for alias, entity := range c.Entities {
		if entity.Table == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("entities.%s.table", alias),
				Message: "table is required",
			})
		}
		for _, field := range entity.ExcludeFields {
			if strings.TrimSpace(field) == "" {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("entities.%s.exclude_fields", alias),
					Message: "exclude_fields entries must not be empty",
				})
			}
		}
	}

	if !validFormats[c.Export.Format] {
		errors = append(errors, ValidationError{
			Field:   "export.format",
			Message: fmt.Sprintf("format must be json, csv or xml, got %q", c.Export.Format),
		})
	}
	if !validMethods[c.Export.Method] {
		errors = append(errors, ValidationError{
			Field:   "export.method",
			Message: fmt.Sprintf("method must be log, local or mail, got %q", c.Export.Method),
		})
	}

	// Mail transport settings are only required when mail delivery is the default.
	if c.Export.Method == "mail" && c.Mail.Host == "" {
		errors = append(errors, ValidationError{Field: "mail.host", Message: "host is required for mail delivery"})
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("level must be debug, info, warn or error, got %q", c.Logging.Level),
		})
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("format must be json or text, got %q", c.Logging.Format),
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}
