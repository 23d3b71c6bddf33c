package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/chatcontext-mcp/internal/generator"
	"github.com/dshills/chatcontext-mcp/internal/samples"
)

func newSamplesCmd(a *app) *cobra.Command {
	samplesCmd := &cobra.Command{
		Use:   "samples",
		Short: "Build evaluation samples from chat logs",
	}
	samplesCmd.AddCommand(
		newSamplesGenerateCmd(a),
		newSamplesQuestionsCmd(a),
		newSamplesAnswersCmd(a),
	)
	return samplesCmd
}

// builder returns a samples builder; gen may be nil for steps that never
// call the model
func (a *app) builder(gen generator.Generator) (*samples.Builder, error) {
	pattern, err := a.config.Pattern()
	if err != nil {
		return nil, err
	}
	return samples.New(gen, samples.Options{
		Pattern:        pattern,
		Granularity:    a.config.Granularity(),
		OverlapDays:    a.config.Chunking.OverlapDays,
		AnswerInterval: a.config.Samples.AnswerInterval,
	}, a.logger), nil
}

func newSamplesGenerateCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "generate [file...]",
		Short: "Write one sample per chunk with the chunk text as context",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := a.files(args)
			if err != nil {
				return err
			}
			b, err := a.builder(nil)
			if err != nil {
				return err
			}
			n, err := b.Generate(files, out)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d samples to %s\n", n, out)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "samples.json", "output file")
	return cmd
}

func newSamplesQuestionsCmd(a *app) *cobra.Command {
	var in, out string
	var queries []string

	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Pair every sample with every query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(queries) == 0 {
				queries = a.config.Samples.Queries
			}
			if len(queries) == 0 {
				return errors.New("no queries given: pass --query or set samples.queries in the config")
			}
			b, err := a.builder(nil)
			if err != nil {
				return err
			}
			n, err := b.AddQuestions(queries, in, out)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d samples with questions to %s\n", n, out)
			return err
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "samples.json", "samples file to read")
	cmd.Flags().StringVarP(&out, "out", "o", "samples_with_questions.json", "output file")
	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "query to pair with each sample (repeatable, defaults to samples.queries)")
	return cmd
}

func newSamplesAnswersCmd(a *app) *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "answers",
		Short: "Generate an answer for every sample question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := generator.New(a.config.Generation, a.config.Generation.AnswerTemperature, a.logger)
			if err != nil {
				return err
			}
			b, err := a.builder(gen)
			if err != nil {
				return err
			}
			n, err := b.AddAnswers(cmd.Context(), in, out)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d samples with answers to %s\n", n, out)
			return err
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "samples_with_questions.json", "samples file to read")
	cmd.Flags().StringVarP(&out, "out", "o", "samples_with_answers.json", "output file")
	return cmd
}
