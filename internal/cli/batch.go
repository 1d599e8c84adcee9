package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	batchFile string
	batchJSON bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [document] [question...]",
	Short: "Ask several questions about a document",
	Long: `Answers several questions about one document. The document is processed
once; a failing question is reported without stopping the others.

Questions are given as arguments or read one per line from --file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "read questions from file, one per line (- for stdin)")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	questions := args[1:]
	if batchFile != "" {
		fromFile, err := readQuestions(cmd, batchFile)
		if err != nil {
			return err
		}
		questions = append(questions, fromFile...)
	}
	if len(questions) == 0 {
		return errors.New("no questions given")
	}

	svc, err := qaService()
	if err != nil {
		return err
	}
	res, err := svc.AskBatch(cmdContext(cmd), request(args[0]), questions)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	if batchJSON {
		return outputJSON(cmd, res)
	}

	st := newStyles(cmd)
	for i, item := range res.Results {
		cmd.Println(st.title.Render(fmt.Sprintf("[%d] %s", i+1, item.Question)))
		if item.Success {
			cmd.Println(strings.TrimSpace(item.Answer))
		} else {
			cmd.Println(st.fail.Render("error: " + item.Error))
		}
		cmd.Println()
	}
	cmd.Println(st.dim.Render(fmt.Sprintf("%d/%d answered, %d chunks", res.Successful, len(res.Results), res.TotalChunks)))
	return nil
}

func readQuestions(cmd *cobra.Command, path string) ([]string, error) {
	var sc *bufio.Scanner
	if path == "-" {
		sc = bufio.NewScanner(cmd.InOrStdin())
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open questions: %w", err)
		}
		defer f.Close()
		sc = bufio.NewScanner(f)
	}
	var out []string
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			out = append(out, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return out, nil
}
