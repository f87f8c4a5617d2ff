package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/cordonsoft/accountreview/internal/config"
)

var listEntitiesCmd = &cobra.Command{
	Use:   "list-entities",
	Short: "List all exportable entities defined in configuration",
	Long: `List-entities displays every entity registered in the configuration
file along with its backing table, display column and excluded fields.

Example:
  accountreview list-entities --config accountreview.yaml`,
	RunE: runListEntities,
}

func init() {
	rootCmd.AddCommand(listEntitiesCmd)
}

func runListEntities(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	aliases := cfg.ListEntities()
	if len(aliases) == 0 {
		cmd.Printf("No entities defined in %s\n", configFile)
		return nil
	}

	// Sort aliases for consistent output
	sort.Strings(aliases)

	cmd.Printf("Entities defined in %s:\n\n", configFile)

	header := []string{"ALIAS", "TABLE", "DISPLAY", "EXCLUDED FIELDS"}
	rows := make([][]string, 0, len(aliases))
	for _, alias := range aliases {
		entity := cfg.Entities[alias]
		display := entity.DisplayField
		if display == "" {
			display = "-"
		}
		excluded := strings.Join(entity.ExcludeFields, ", ")
		if excluded == "" {
			excluded = "-"
		}
		rows = append(rows, []string{alias, entity.Table, display, excluded})
	}

	widths := columnWidths(header, rows)
	printRow(cmd, header, widths)
	for _, row := range rows {
		printRow(cmd, row, widths)
	}

	return nil
}

// columnWidths computes the display width of each column, accounting for
// wide runes in configured names.
func columnWidths(header []string, rows [][]string) []int {
	widths := make([]int, len(header))
	for i, cell := range header {
		widths[i] = runewidth.StringWidth(cell)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func printRow(cmd *cobra.Command, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = runewidth.FillRight(cell, widths[i])
	}
	cmd.Println(strings.TrimRight(strings.Join(parts, "  "), " "))
}
