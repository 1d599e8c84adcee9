// Package cli implements the askdoc command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"askdoc/internal/config"
	"askdoc/internal/logger"
)

var (
	cfgPath    string
	verbose    bool
	sourceType string
	userID     string
	credential string
)

// appConfig is loaded before every command runs.
var appConfig *config.AppConfig

var rootCmd = &cobra.Command{
	Use:   "askdoc",
	Short: "Ask questions about documents",
	Long: `askdoc answers natural-language questions about a single document.

The document is split into overlapping chunks, the chunks most similar to the
question are selected by TF-IDF cosine similarity, and only those chunks are
sent to the language model. Processed documents are cached for 30 minutes.

Documents are read from local text files or from Google Drive.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML or TOML config file (default ./config.yaml or ~/.config/askdoc/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&sourceType, "source", "", "document source: local or drive (overrides config)")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "user the cached index belongs to")
	rootCmd.PersistentFlags().StringVar(&credential, "token", "", "access token for the document source (drive)")
}

// Execute runs the root command. Command output goes to stdout.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath == "" {
		var path string
		cfg, path, err = config.LoadDefault()
		if err == nil {
			logger.Debug("Loaded config from %s", path)
		}
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if sourceType != "" {
		cfg.Source.Type = sourceType
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	appConfig = cfg
	return nil
}

var errNoConfig = errors.New("configuration not loaded")
