package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"searchkit/internal/analysis"
	"searchkit/internal/eval"
	"searchkit/internal/index"
	"searchkit/internal/search"
)

var (
	queriesPath string
	qrelsPath   string
	parallelism int
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Measure ranking quality with NDCG over a judged query set",
	Long: `Evaluate runs every query from the query file under all four
mode/scorer combinations and reports the average NDCG of the full rankings
against the relevance assessments. Queries without assessments are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		queries, err := eval.LoadQueries(queriesPath)
		if err != nil {
			return err
		}
		qrels, err := eval.LoadQrels(qrelsPath)
		if err != nil {
			return err
		}

		ix, err := index.Open(cfg.Index.IndexPath())
		if err != nil {
			return err
		}
		defer ix.Close()
		searcher := search.NewSearcher(ix, cfg.Scoring, search.WithMetrics(collectors))

		evaluator := eval.NewEvaluator(searcher, analysis.New(analysis.DefaultOptions()))
		if parallelism > 0 {
			evaluator.Parallelism = parallelism
		}
		report, err := evaluator.Run(cmd.Context(), queries, qrels)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(report))
		for name := range report {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Printf("%-24s %s\n", "combination", "avg NDCG")
		for _, name := range names {
			fmt.Printf("%-24s %.4f\n", name, report[name])
		}
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&queriesPath, "queries", "", "path to TSV query file (required)")
	evaluateCmd.Flags().StringVar(&qrelsPath, "qrels", "", "path to TREC qrels file (required)")
	evaluateCmd.Flags().IntVar(&parallelism, "parallelism", 0, "concurrent query evaluations (0 = default)")
	_ = evaluateCmd.MarkFlagRequired("queries")
	_ = evaluateCmd.MarkFlagRequired("qrels")
	rootCmd.AddCommand(evaluateCmd)
}
