package main

import (
	"fmt"

	"github.com/CTAG07/Dissociated/pkg/store"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect SNAPSHOT",
		Short: "Validate a model snapshot and print its contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, model, err := store.ReadSnapshotFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name:             %s\n", snap.Name)
			st := model.Stats()
			st.TokenCount = snap.TokenCount
			printStats(out, st)
			fmt.Fprintln(out)

			limit, _ := cmd.Flags().GetInt("limit")
			return printTable(out, model, limit)
		},
	}
	cmd.Flags().Int("limit", 0, "Print at most this many keys (0 prints all)")
	return cmd
}
