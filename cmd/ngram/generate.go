package main

import (
	"fmt"
	"strings"

	"github.com/CTAG07/Dissociated/pkg/ngram"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [file|-]",
		Short: "Generate a passage by walking a model automatically",
		Long: `Build a model from the input text and walk it from --start, or from a random
key when --start is empty, until --words tokens have been produced or the
walk reaches a key with no successors.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, model, err := buildModel(cmd, args)
			if err != nil {
				return err
			}
			start, _ := cmd.Flags().GetString("start")
			words, _ := cmd.Flags().GetInt("words")
			if words < 0 {
				return fmt.Errorf("--words must not be negative, got %d", words)
			}

			opts := []ngram.GenerateOption{
				ngram.WithStartKey(start),
				ngram.WithWordLimit(words),
				ngram.WithLogger(commandLogger(cmd)),
			}
			if s := sampler(cmd); s != nil {
				opts = append(opts, ngram.WithSampler(s))
			}
			walker, err := ngram.NewWalker(model, opts...)
			if err != nil {
				return err
			}
			res := walker.Run()

			out := cmd.OutOrStdout()
			if raw, _ := cmd.Flags().GetBool("raw"); raw {
				fmt.Fprintln(out, strings.Join(res.Tokens, " "))
			} else {
				fmt.Fprintln(out, ngram.Detokenize(res.Tokens))
			}
			if res.Status == ngram.StatusDeadEnd {
				fmt.Fprintf(cmd.ErrOrStderr(), "stopped at a dead end after %d tokens\n", len(res.Tokens))
			}
			return nil
		},
	}
	addOrderFlag(cmd)
	cmd.Flags().StringP("start", "s", "", "Start key; its token count must match the model type")
	cmd.Flags().IntP("words", "n", ngram.DefaultWordLimit, "Maximum number of tokens to output")
	cmd.Flags().Uint64("seed", 0, "Seed for reproducible output")
	cmd.Flags().Bool("raw", false, "Print tokens with sentinels instead of punctuation")
	return cmd
}
