package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"askdoc/internal/domain"
	"askdoc/internal/logger"
)

var (
	askJSON        bool
	askShowSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask [document] [question]",
	Short: "Ask a question about a document",
	Long: `Answers a question about one document.

The document is a local file path or glob (source "local") or a Google Drive
file id (source "drive"). Only the most relevant chunks of the document are
sent to the language model.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVarP(&askShowSources, "sources", "s", false, "print the chunks the answer was based on (always on with --verbose)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	svc, err := qaService()
	if err != nil {
		return err
	}

	req := request(args[0])
	req.Question = strings.Join(args[1:], " ")
	ans, err := svc.Ask(cmdContext(cmd), req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputJSON(cmd, ans)
	}
	return outputAnswer(cmd, ans)
}

func outputAnswer(cmd *cobra.Command, ans *domain.Answer) error {
	st := newStyles(cmd)
	cmd.Println(st.title.Render(ans.FileName) + st.dim.Render(fmt.Sprintf("  (%d of %d chunks used)", len(ans.RelevantChunks), ans.TotalChunks)))
	cmd.Println()
	cmd.Println(strings.TrimSpace(ans.Text))
	if !(askShowSources || logger.IsVerbose()) || len(ans.RelevantChunks) == 0 {
		return nil
	}
	cmd.Println()
	cmd.Println(st.title.Render("Sources:"))
	for i, sc := range ans.RelevantChunks {
		cmd.Printf("  [%d] chunk #%d (%.3f)\n", i+1, sc.Chunk.Index, sc.Score)
		cmd.Printf("      %s\n", st.dim.Render(sc.Chunk.Text))
	}
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

type styles struct {
	title lipgloss.Style
	dim   lipgloss.Style
	ok    lipgloss.Style
	fail  lipgloss.Style
}

// newStyles returns colored styles when the command writes to a terminal and
// plain ones otherwise.
func newStyles(cmd *cobra.Command) styles {
	if !isTerminal(cmd) {
		plain := lipgloss.NewStyle()
		return styles{title: plain, dim: plain, ok: plain, fail: plain}
	}
	return styles{
		title: lipgloss.NewStyle().Bold(true),
		dim:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		ok:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		fail:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
