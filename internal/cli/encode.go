package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	encodeID   string
	encodeText string
	encodeFile string
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Register text under an id",
	Long: `Register text under an id. The text is rendered as a QR code and
fingerprinted so later queries can find it.

Examples:
  qrmatch encode --id intro --text "hello world"
  qrmatch encode --id readme --file README.md`,
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().StringVar(&encodeID, "id", "", "entry id (required)")
	encodeCmd.Flags().StringVarP(&encodeText, "text", "t", "", "text to register")
	encodeCmd.Flags().StringVarP(&encodeFile, "file", "f", "", "read text from a file")
	encodeCmd.MarkFlagRequired("id")
	encodeCmd.MarkFlagsMutuallyExclusive("text", "file")
}

func runEncode(cmd *cobra.Command, args []string) error {
	text := encodeText
	if encodeFile != "" {
		data, err := os.ReadFile(encodeFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", encodeFile, err)
		}
		text = string(data)
	}
	if text == "" {
		return errors.New("one of --text or --file is required")
	}

	ctx := commandContext(cmd)
	a, err := buildApp(ctx, GetConfig(), GetRootDir(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := a.register.Register(ctx, encodeID, text)
	if err != nil {
		return err
	}

	fmt.Printf("Registered %s (%d chars, created %s)\n",
		entry.ID, len([]rune(entry.Text)), entry.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}
