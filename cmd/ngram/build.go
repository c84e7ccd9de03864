package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/CTAG07/Dissociated/pkg/ngram"
	"github.com/CTAG07/Dissociated/pkg/store"
	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [file|-]",
		Short: "Build a model and print it, or write it as a snapshot",
		Long: `Build a model from the input text. Without --out the model statistics and
its key -> successor table are printed. With --out the model is written as a
JSON snapshot that "ngram inspect" can read back.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, model, err := buildModel(cmd, args)
			if err != nil {
				return err
			}
			logger := commandLogger(cmd)
			logger.Debug("Model built",
				"order", model.Order().Label(),
				"keys", model.Len(),
				"token_count", model.TokenCount(),
			)

			out := cmd.OutOrStdout()
			if path, _ := cmd.Flags().GetString("out"); path != "" {
				snap := store.ExportedSnapshot{
					Name:       snapshotName(name),
					TokenCount: model.TokenCount(),
					Snapshot:   model.Export(),
				}
				if err = store.WriteSnapshotFile(path, snap); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %s model with %d keys to %s\n", model.Order().Label(), model.Len(), path)
				return nil
			}

			limit, _ := cmd.Flags().GetInt("limit")
			printStats(out, model.Stats())
			fmt.Fprintln(out)
			return printTable(out, model, limit)
		},
	}
	addOrderFlag(cmd)
	cmd.Flags().String("out", "", "Write the model as a JSON snapshot to this file")
	cmd.Flags().Int("limit", 0, "Print at most this many keys (0 prints all)")
	return cmd
}

// snapshotName derives a snapshot name from the input path.
func snapshotName(input string) string {
	if input == "-" {
		return "stdin"
	}
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func printStats(w io.Writer, st ngram.Stats) {
	fmt.Fprintf(w, "model:            %s\n", st.Order.Label())
	fmt.Fprintf(w, "tokens:           %d\n", st.TokenCount)
	fmt.Fprintf(w, "keys:             %d\n", st.Keys)
	fmt.Fprintf(w, "transitions:      %d\n", st.Transitions)
	fmt.Fprintf(w, "branching factor: %.3f\n", st.BranchingFactor)
}

// printTable writes one line per key in canonical order with its successors
// and their probabilities.
func printTable(w io.Writer, model *ngram.Model, limit int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSUCCESSORS")
	printed := 0
	model.Range(func(key string, d ngram.Distribution) bool {
		if limit > 0 && printed >= limit {
			return false
		}
		succ := make([]string, len(d))
		for i, s := range d {
			succ[i] = fmt.Sprintf("%s (%.2f)", s.Token, s.Probability)
		}
		fmt.Fprintf(tw, "%s\t%s\n", key, strings.Join(succ, ", "))
		printed++
		return true
	})
	if limit > 0 && model.Len() > limit {
		fmt.Fprintf(tw, "...\t%d more keys\n", model.Len()-limit)
	}
	return tw.Flush()
}
