package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [document]",
	Short: "Show how a document is indexed",
	Long:  `Processes a document (or reuses the cached index) and reports its size, chunk count and key topics.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output analysis as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	svc, err := qaService()
	if err != nil {
		return err
	}
	a, err := svc.Analyze(cmdContext(cmd), request(args[0]))
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	if analyzeJSON {
		return outputJSON(cmd, a)
	}

	st := newStyles(cmd)
	cmd.Println(st.title.Render(a.FileName))
	cmd.Printf("  Type:       %s\n", a.FileType)
	cmd.Printf("  Length:     %d characters (~%d pages)\n", a.ContentLength, a.EstimatedPages)
	cmd.Printf("  Chunks:     %d\n", a.TotalChunks)
	cmd.Printf("  Key topics: %s\n", strings.Join(a.Keywords, ", "))
	cmd.Printf("  Indexed:    %s ago\n", a.Age.Round(time.Second))
	return nil
}
