package cmd

import (
	"context"
	"fmt"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/cordonsoft/accountreview/internal/config"
	"github.com/cordonsoft/accountreview/internal/database"
	"github.com/cordonsoft/accountreview/internal/logger"
	"github.com/cordonsoft/accountreview/internal/schema"
)

var validateSkipDB bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and entity schemas",
	Long: `Validate checks the configuration file and, unless --skip-db is set,
connects to the database to verify that every registered entity's table
exists and exposes usable metadata.

Checks performed:
  - Configuration syntax and required fields
  - Database connectivity
  - Entity table existence and schema introspection
  - Excluded fields referencing unknown columns (warning)

Example:
  accountreview validate --config accountreview.yaml`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateSkipDB, "skip-db", false,
		"Skip database connectivity and schema checks")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply CLI overrides
	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat)

	// Initialize logger
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Info("Starting validation checks...")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	color.Success.Println("Configuration is valid")

	if validateSkipDB {
		log.Info("Skipping database checks (--skip-db)")
		return nil
	}

	ctx := context.Background()

	dbManager := database.NewManager(cfg)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	color.Success.Println("Database connection OK")

	introspector, err := schema.NewIntrospector(dbManager.Source, cfg.Source.Database, log)
	if err != nil {
		return fmt.Errorf("failed to create introspector: %w", err)
	}

	failures := 0
	for _, alias := range cfg.ListEntities() {
		entity := cfg.Entities[alias]
		meta, err := introspector.Describe(ctx, entity.Table)
		if err != nil {
			color.Error.Printf("%s: %v\n", alias, err)
			failures++
			continue
		}

		known := make(map[string]bool, len(meta.ScalarFields)+len(meta.Associations))
		for _, field := range meta.ScalarFields {
			known[field] = true
		}
		for _, assoc := range meta.Associations {
			known[assoc.Name] = true
			if assoc.LocalColumn != "" {
				known[assoc.LocalColumn] = true
			}
		}
		for _, excluded := range entity.ExcludeFields {
			if !known[excluded] {
				color.Warn.Printf("%s: excluded field %q does not exist on table %q\n",
					alias, excluded, entity.Table)
			}
		}

		color.Success.Printf("%s: table %q OK (%d fields, %d associations)\n",
			alias, entity.Table, len(meta.ScalarFields), len(meta.Associations))
	}

	if failures > 0 {
		return fmt.Errorf("validation failed for %d entities", failures)
	}
	return nil
}
