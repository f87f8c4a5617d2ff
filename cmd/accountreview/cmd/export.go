package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/cordonsoft/accountreview/internal/config"
	"github.com/cordonsoft/accountreview/internal/database"
	"github.com/cordonsoft/accountreview/internal/export"
	"github.com/cordonsoft/accountreview/internal/logger"
	"github.com/cordonsoft/accountreview/internal/mail"
	"github.com/cordonsoft/accountreview/internal/registry"
	"github.com/cordonsoft/accountreview/internal/schema"
	"github.com/cordonsoft/accountreview/internal/store"
)

var (
	exportEntity    string
	exportFormat    string
	exportMethod    string
	exportOutput    string
	exportRecipient string
	exportEmitter   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Extract and export entity data",
	Long: `Export extracts every record of an entity (or of all registered
entities when --entity is omitted), flattens scalar fields and relations
into key-value mappings, and delivers the serialized result.

Delivery methods:
  log    write the serialized bytes to stdout (default)
  local  write a file named accounts_review_<entity>_<timestamp>.<format>
  mail   send the file as an email attachment (--recipient required)

Example:
  accountreview export --config accountreview.yaml --entity user --format csv --method local`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportEntity, "entity", "e", "",
		"Entity alias to export (default: all registered entities)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "",
		"Output format (json, csv, xml)")
	exportCmd.Flags().StringVarP(&exportMethod, "method", "m", "",
		"Delivery method (log, local, mail)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"Output file path for local delivery (default: derived name)")
	exportCmd.Flags().StringVarP(&exportRecipient, "recipient", "r", "",
		"Recipient address for mail delivery")
	exportCmd.Flags().StringVar(&exportEmitter, "emitter", "",
		"Sender address for mail delivery")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Apply CLI overrides
	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat)

	// Flags fall back to configured export defaults
	format := exportFormat
	if format == "" {
		format = cfg.Export.Format
	}
	method := exportMethod
	if method == "" {
		method = cfg.Export.Method
	}
	emitter := exportEmitter
	if emitter == "" {
		emitter = cfg.Export.Emitter
	}

	// Initialize logger with a run id so all entries of one invocation correlate
	baseLog, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := baseLog.WithRun(uuid.NewString())

	log.Infow("Starting export",
		"config", configFile,
		"entity", exportEntity,
		"format", format,
		"method", method,
	)

	// Create database manager
	dbManager := database.NewManager(cfg)

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("Received shutdown signal - aborting export...")
		cancel()
	}()

	// Connect to the source database
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	// Wire the pipeline
	reg := registry.FromConfig(cfg, log)

	introspector, err := schema.NewIntrospector(dbManager.Source, cfg.Source.Database, log)
	if err != nil {
		return fmt.Errorf("failed to create introspector: %w", err)
	}

	src, err := store.New(dbManager.Source, log)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	var transport mail.Transport
	if method == string(export.ChannelMail) {
		transport = mail.NewSMTPTransport(cfg.Mail)
	}
	dispatcher := export.NewDispatcher(cmd.OutOrStdout(), transport, log)

	orch, err := export.NewOrchestrator(reg, introspector, src, dispatcher, log)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	// Run the export
	results, err := orch.Run(ctx, export.Request{
		Entity:  exportEntity,
		Format:  export.Format(format),
		Channel: export.Channel(method),
		Options: export.Options{
			OutputPath: exportOutput,
			OutputDir:  cfg.Export.OutputDir,
			Recipient:  exportRecipient,
			Emitter:    emitter,
		},
	})
	if err != nil {
		if ctx.Err() == context.Canceled {
			log.Warn("Export cancelled by user")
			return nil
		}
		color.Error.Println("An error occurred during extraction:", err)
		return err
	}

	// Display results
	for _, result := range results {
		switch {
		case result.Records == 0:
			color.Warn.Printf("%s: no records found\n", result.Entity)
		case result.Warnings > 0:
			color.Warn.Printf("%s: exported %d records to %s (%d warnings)\n",
				result.Entity, result.Records, result.Delivery.Location, result.Warnings)
		default:
			color.Success.Printf("%s: exported %d records to %s\n",
				result.Entity, result.Records, result.Delivery.Location)
		}
	}

	return nil
}
