package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show entry count and store schema",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := buildApp(ctx, GetConfig(), GetRootDir(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.stats.Stats(ctx)
	if err != nil {
		return err
	}

	if statsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Printf("Entries:    %d\n", stats.Entries)
	fmt.Printf("Model:      %s\n", stats.Model)
	fmt.Printf("Dimension:  %d\n", stats.Dimension)
	if stats.Schema.Version > 0 {
		fmt.Printf("Schema:     v%d (%s, %d dims)\n", stats.Schema.Version, stats.Schema.Model, stats.Schema.Dimension)
	}
	return nil
}
