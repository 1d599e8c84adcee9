package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	filesRecursive bool
	filesJSON      bool
)

var filesCmd = &cobra.Command{
	Use:   "files [folder]",
	Short: "List the documents in a folder",
	Long: `Lists the supported documents in a folder. For the drive source the folder
may be a Google Drive folder URL or id; for the local source it is a directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runFiles,
}

func init() {
	filesCmd.Flags().BoolVarP(&filesRecursive, "recursive", "r", true, "include files in subfolders")
	filesCmd.Flags().BoolVar(&filesJSON, "json", false, "output files as JSON")
	rootCmd.AddCommand(filesCmd)
}

func runFiles(cmd *cobra.Command, args []string) error {
	lister, err := fileLister()
	if err != nil {
		return err
	}
	files, err := lister.ListFiles(cmdContext(cmd), args[0], credential, filesRecursive)
	if err != nil {
		return fmt.Errorf("list files failed: %w", err)
	}

	if filesJSON {
		return outputJSON(cmd, files)
	}
	if len(files) == 0 {
		cmd.Println("No supported files found.")
		return nil
	}
	st := newStyles(cmd)
	for _, f := range files {
		cmd.Printf("%s  %s\n", f.ID, st.title.Render(f.Name))
		cmd.Printf("    %s\n", st.dim.Render(fmt.Sprintf("%s, %d bytes", f.MimeType, f.Size)))
	}
	cmd.Println()
	cmd.Printf("%d files\n", len(files))
	return nil
}
