package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/chatcontext-mcp/internal/analyzer"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [file...]",
		Short: "Report the size of every chunk the indexer would cut",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := a.files(args)
			if err != nil {
				return err
			}
			pattern, err := a.config.Pattern()
			if err != nil {
				return err
			}

			report, err := analyzer.New(analyzer.Options{
				Pattern:     pattern,
				Granularity: a.config.Granularity(),
				OverlapDays: a.config.Chunking.OverlapDays,
				Workers:     a.config.Embedding.Workers,
			}, a.logger).AnalyzeChunkSizes(cmd.Context(), files)
			if err != nil {
				return err
			}
			return report.Print(cmd.OutOrStdout())
		},
	}
}

