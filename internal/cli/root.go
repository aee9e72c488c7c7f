// Package cli implements the bookrag command line.
package cli

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bookrag/internal/app"
	"bookrag/internal/config"
	"bookrag/internal/logging"
)

var (
	cfgFile       string
	verbose       bool
	currentConfig *config.AppConfig
)

var (
	okText   = color.New(color.FgGreen).SprintFunc()
	warnText = color.New(color.FgYellow).SprintFunc()
	boldText = color.New(color.Bold).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "bookrag",
	Short: "Ask questions about a folder of plain-text books",
	Long: `bookrag loads plain-text books into a vector store and answers
questions using only passages retrieved from them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var (
			cfg  *config.AppConfig
			path string
			err  error
		)
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
			path = cfgFile
		} else {
			cfg, path, err = config.LoadDefault()
		}
		if err != nil {
			return err
		}
		logging.SetVerbose(verbose || cfg.Logging.Verbose)
		if err := logging.Init(cfg.Logging.File); err != nil {
			return err
		}
		logging.Debug("config loaded from %s", path)
		currentConfig = cfg
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Close()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./config.yaml or ~/.config/bookrag/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// openApp builds the application context from the loaded configuration.
func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, currentConfig)
}
