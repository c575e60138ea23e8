// Command llmapi serves a single language model over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"llmapi/internal/common/fsutil"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := loadDotEnv(os.Getenv("LLMAPI_ENV_FILE")); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadDotEnv loads path (default ".env") when it exists. Variables already set
// in the environment win.
func loadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	path, err := fsutil.Abs(path)
	if err != nil {
		return err
	}
	if !fsutil.IsFile(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func rootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "llmapi",
		Short:         "HTTP chat API in front of a single language model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("LLMAPI_CONFIG"), "Config file (yaml, json or toml); env LLMAPI_* overrides it")

	root.AddCommand(serveCmd(&configPath), benchCmd(&configPath), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
