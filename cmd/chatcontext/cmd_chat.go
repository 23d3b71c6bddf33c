package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/chatcontext-mcp/internal/culture"
	"github.com/dshills/chatcontext-mcp/internal/embedder"
	"github.com/dshills/chatcontext-mcp/internal/generator"
	"github.com/dshills/chatcontext-mcp/internal/indexer"
	"github.com/dshills/chatcontext-mcp/internal/prompt"
	"github.com/dshills/chatcontext-mcp/internal/retriever"
	"github.com/dshills/chatcontext-mcp/internal/storage"
)

func newCultureCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "culture [file...]",
		Short: "Summarize the team culture from the first day of each chat log",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := a.files(args)
			if err != nil {
				return err
			}
			pattern, err := a.config.Pattern()
			if err != nil {
				return err
			}
			gen, err := generator.New(a.config.Generation, a.config.Generation.Temperature, a.logger)
			if err != nil {
				return err
			}

			summary, err := culture.New(gen, pattern, a.config.PreviewGranularity(), a.logger).Summarize(cmd.Context(), files)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), summary)
			return err
		},
	}
}

func newAskCmd(a *app) *cobra.Command {
	var files []string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from the most relevant chat log windows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := a.files(files)
			if err != nil {
				return err
			}
			return runAsk(cmd, a, paths, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "chat log to search (repeatable, defaults to data.files)")
	return cmd
}

// runAsk indexes paths into a throwaway collection, retrieves the top k
// windows and streams the generated answer
func runAsk(cmd *cobra.Command, a *app, paths []string, question string) error {
	ctx := cmd.Context()

	r, closeIndex, err := openIndex(ctx, a, paths)
	if err != nil {
		return err
	}
	defer closeIndex()

	texts, err := r.SearchTexts(ctx, question)
	if err != nil {
		return err
	}

	p, err := prompt.Answer(strings.Join(texts, "\n"), question)
	if err != nil {
		return err
	}

	gen, err := generator.New(a.config.Generation, a.config.Generation.AnswerTemperature, a.logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	err = gen.Stream(ctx, p, func(delta string) error {
		_, err := fmt.Fprint(out, delta)
		return err
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out)
	return err
}

// openIndex builds an in-memory retriever holding the chunks of paths
func openIndex(ctx context.Context, a *app, paths []string) (*retriever.Retriever, func(), error) {
	store, err := storage.NewMemoryStore()
	if err != nil {
		return nil, nil, err
	}
	emb, err := embedder.New(embedder.FromConfig(a.config.Embedding))
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	closeAll := func() {
		_ = emb.Close()
		_ = store.Close()
	}

	r, err := retriever.New(ctx, store, emb, retriever.OptionsFromConfig(a.config), a.logger)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	idxCfg, err := indexer.ConfigFrom(a.config)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	norm, err := a.config.Normalizer()
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	stats, err := indexer.New(r, norm, idxCfg, a.logger).IndexFiles(ctx, paths)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	if stats.FilesIndexed == 0 {
		closeAll()
		return nil, nil, fmt.Errorf("no chat log could be indexed: %s", strings.Join(stats.ErrorMessages, "; "))
	}
	return r, closeAll, nil
}
