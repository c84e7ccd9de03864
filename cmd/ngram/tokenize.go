package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/CTAG07/Dissociated/pkg/ngram"
	"github.com/spf13/cobra"
)

func newTokenizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokenize [file|-]",
		Short: "Print the tokens of a text and their count",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, text, err := readText(cmd, args)
			if err != nil {
				return err
			}
			tokens, count := ngram.Tokenize(text)
			if tokens == nil {
				tokens = []string{}
			}

			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"tokens": tokens, "token_count": count})
			}
			fmt.Fprintln(out, strings.Join(tokens, " "))
			fmt.Fprintf(out, "%d tokens\n", count)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the tokens as JSON")
	return cmd
}
