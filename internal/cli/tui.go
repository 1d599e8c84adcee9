package cli

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"askdoc/internal/logger"
	"askdoc/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [document]",
	Short: "Chat with a document in the terminal UI",
	Long: `Processes a document and opens an interactive session for asking questions
about it.

Controls:
  Enter      - Ask
  ↑/↓        - Cycle through the source chunks of the answer
  PgUp/PgDn  - Scroll
  Ctrl+C     - Quit`,
	Args: cobra.ExactArgs(1),
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// runProgram is replaced in tests.
var runProgram = func(m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func runTUI(cmd *cobra.Command, args []string) error {
	svc, err := qaService()
	if err != nil {
		return err
	}
	ctx := cmdContext(cmd)
	req := request(args[0])

	a, err := svc.Analyze(ctx, req)
	if err != nil {
		return fmt.Errorf("load document failed: %w", err)
	}
	summary := fmt.Sprintf("%s · %d chunks · %s", a.FileName, a.TotalChunks, strings.Join(a.Keywords, ", "))

	// log lines would corrupt the full-screen UI
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(cmd.ErrOrStderr())

	return runProgram(tui.New(ctx, svc, req, summary))
}
