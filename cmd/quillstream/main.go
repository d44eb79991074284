// Command quillstream drives the agent core from the shell: it replays
// recorded frame streams against a document, applies standalone update
// payloads, and serves the cancellation control API.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Global flags (persistent across all commands)
var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "quillstream",
	Short: "Streaming agent-interaction core for Quillflow documents",
	Long: `quillstream exercises the Quillflow agent core: it folds recorded
model event streams into conversation transcripts, resolves the document
updates they carry through the patch engine, and exposes the cancellation
control surface over HTTP.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
