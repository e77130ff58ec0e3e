package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"searchkit/internal/analysis"
	"searchkit/internal/docstore"
	"searchkit/internal/index"
	"searchkit/internal/search"
	"searchkit/pkg/logger"
)

var (
	searchMode   string
	searchScorer string
	searchLimit  int
	showSnippets bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query terms...]",
	Short: "Query the index, interactively or one-shot",
	Long: `Search answers ranked keyword queries against the built index. With
query terms as arguments it runs one query and exits; without arguments it
enters an interactive loop that reads one query per line until "exit".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := search.ParseMode(searchMode)
		if err != nil {
			return err
		}
		scorer, err := search.ParseScorer(searchScorer)
		if err != nil {
			return err
		}
		limit := searchLimit
		if limit == 0 {
			limit = cfg.Search.DefaultLimit
		}

		ix, err := index.Open(cfg.Index.IndexPath())
		if err != nil {
			return err
		}
		defer ix.Close()

		opts := []search.SearcherOption{search.WithMetrics(collectors)}
		if cfg.Search.CacheEnabled {
			cache, err := search.NewQueryCache(cfg.Search.CacheSize, collectors)
			if err != nil {
				return err
			}
			opts = append(opts, search.WithCache(cache))
		}
		searcher := search.NewSearcher(ix, cfg.Scoring, opts...)

		var store *docstore.Store
		if showSnippets {
			store, err = docstore.Open(cfg.Index.DocStorePath())
			if err != nil {
				return err
			}
			defer store.Close()
		}

		analyzer := analysis.New(analysis.DefaultOptions())
		queryNum := 0
		runQuery := func(text string) error {
			queryNum++
			ctx := logger.WithQueryID(cmd.Context(), fmt.Sprintf("q%d", queryNum))
			terms := analyzer.Terms(text)
			hits, err := searcher.Search(ctx, terms, mode, scorer, limit)
			if err != nil {
				return err
			}
			printHits(hits, store)
			return nil
		}

		if len(args) > 0 {
			return runQuery(strings.Join(args, " "))
		}

		fmt.Printf("Index: %d documents, %d terms. Mode=%s scorer=%s limit=%d. Type \"exit\" to quit.\n",
			ix.DocCount(), ix.TermCount(), mode, scorer, limit)
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("query> ")
			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" {
				return nil
			}
			if err := runQuery(line); err != nil {
				fmt.Fprintln(os.Stderr, "query error:", err)
			}
		}
	},
}

func printHits(hits []search.Hit, store *docstore.Store) {
	if len(hits) == 0 {
		fmt.Println("No results.")
		return
	}
	for i, hit := range hits {
		fmt.Printf("%2d. %-20s %.4f\n", i+1, hit.DocID, hit.Score)
		if store == nil {
			continue
		}
		text, ok, err := store.Get(hit.DocID)
		if err == nil && ok {
			fmt.Printf("    %s\n", snippet(text, 120))
		}
	}
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

func init() {
	searchCmd.Flags().StringVar(&searchMode, "mode", "conjunctive", "query mode: conjunctive or disjunctive")
	searchCmd.Flags().StringVar(&searchScorer, "scorer", "bm25", "scoring function: tfidf or bm25")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "k", 0, "number of results (0 = configured default, negative = all)")
	searchCmd.Flags().BoolVar(&showSnippets, "snippets", false, "show stored document text with each result")
	rootCmd.AddCommand(searchCmd)
}
