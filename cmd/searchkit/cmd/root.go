// Package cmd implements the searchkit command-line interface.
package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"searchkit/pkg/config"
	"searchkit/pkg/logger"
	"searchkit/pkg/metrics"
)

var (
	cfgPath string

	cfg             *config.Config
	collectors      *metrics.Metrics
	metricsShutdown func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "searchkit",
	Short: "Build and query a ranked full-text index",
	Long: `searchkit builds an inverted index over a tab-separated document
collection and answers ranked keyword queries against it, with TF-IDF and
BM25 scoring in conjunctive or disjunctive mode.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
		collectors = metrics.New()
		if cfg.Metrics.Enabled {
			metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if metricsShutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsShutdown(ctx)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config file")
}
