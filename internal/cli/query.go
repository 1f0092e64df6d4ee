package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	queryPrompt string
	queryJSON   bool
	queryOut    string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Find the entry closest in meaning to a prompt",
	Long: `Find the registered entry whose meaning is closest to the prompt. Nothing
is returned when the best score is below match.threshold.

Examples:
  qrmatch query -q "greeting"
  qrmatch query -q "greeting" --out match.png
  qrmatch query -q "greeting" --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryPrompt, "query", "q", "", "prompt (required)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().StringVarP(&queryOut, "out", "o", "", "write the matched QR code PNG to this file")
	queryCmd.MarkFlagRequired("query")
}

type queryOutput struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
	QRCode    string    `json:"qrCode"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := buildApp(ctx, GetConfig(), GetRootDir(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.retrieve.Retrieve(ctx, queryPrompt)
	if err != nil {
		return err
	}
	if res == nil {
		if queryJSON {
			fmt.Println("null")
			return nil
		}
		fmt.Printf("No entry scored above the threshold (%.2f).\n", a.retrieve.Threshold())
		return nil
	}

	if queryOut != "" {
		if err := os.WriteFile(queryOut, res.Artifact, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", queryOut, err)
		}
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(queryOutput{
			ID:        res.ID,
			Text:      res.Text,
			Score:     res.Score,
			CreatedAt: res.CreatedAt,
			QRCode:    res.DataURL(),
		})
	}

	fmt.Printf("Match: %s (score %.4f)\n", res.ID, res.Score)
	fmt.Printf("Registered: %s\n", res.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("\n%s\n", res.Text)
	if queryOut != "" {
		fmt.Printf("\nQR code written to %s\n", queryOut)
	}
	return nil
}
