package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"searchkit/internal/analysis"
	"searchkit/internal/indexer"
)

var collectionPath string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the index from a tab-separated collection file",
	Long: `Build reads a collection file with one document per line, formatted
as "<id><TAB><text>", and writes the index image to the configured data
directory. The previous image, if any, is replaced atomically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := indexer.OpenTSV(collectionPath)
		if err != nil {
			return err
		}
		defer source.Close()

		builder := indexer.New(cfg.Index, analysis.New(analysis.DefaultOptions()), indexer.WithMetrics(collectors))
		report, err := builder.Build(cmd.Context(), source)
		if err != nil {
			return err
		}

		fmt.Printf("Indexed %d documents, %d terms, %d postings in %s\n",
			report.Docs, report.Terms, report.Postings, report.Elapsed.Round(time.Millisecond))
		fmt.Printf("Spilled runs: %d\n", report.Runs)
		if len(report.Skipped) > 0 {
			fmt.Printf("Skipped %d malformed documents (first: %v)\n",
				len(report.Skipped), report.Skipped[0])
		}
		fmt.Printf("Index written to %s\n", report.IndexPath)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&collectionPath, "collection", "", "path to the TSV collection file (required)")
	_ = buildCmd.MarkFlagRequired("collection")
	rootCmd.AddCommand(buildCmd)
}
