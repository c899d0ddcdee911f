package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/resolvd/resolvd/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("resolvd %s\n", AppVersion)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration:")
		fmt.Printf("  Model: %s\n", cfg.FullModelName())
		fmt.Printf("  Embedder: %s (%d dimensions)\n", cfg.EmbedderModel, cfg.EmbeddingDimension)
		fmt.Printf("  Retrieval: top_k=%d floor=%.2f strong=%.2f margin=%.2f\n",
			cfg.Retrieval.TopK, cfg.Retrieval.MinSimilarity,
			cfg.Retrieval.StrongSimilarity, cfg.Retrieval.AcceptMargin)
		fmt.Printf("  Context budget: %d tokens\n", cfg.Context.Budget())
		fmt.Printf("  Database: %s:%d/%s\n", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDBName)

		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			fmt.Println("  GEMINI_API_KEY: configured")
		} else {
			fmt.Println("  GEMINI_API_KEY: not set")
			fmt.Println()
			fmt.Println("Hint: export GEMINI_API_KEY=your-api-key")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
