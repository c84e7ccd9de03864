package main

import (
	"fmt"
	"io"
	"os"

	"github.com/CTAG07/Dissociated/pkg/ngram"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// maxInputBytes caps how much text a command will read.
const maxInputBytes = 64 << 20

// readText reads the text named by args: a file path, or stdin for "-" or
// no argument.
func readText(cmd *cobra.Command, args []string) (string, string, error) {
	name := "-"
	if len(args) > 0 {
		name = args[0]
	}

	var r io.Reader
	if name == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(name)
		if err != nil {
			return "", "", fmt.Errorf("could not open input: %w", err)
		}
		defer func(f *os.File) {
			_ = f.Close()
		}(f)
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes+1))
	if err != nil {
		return "", "", fmt.Errorf("could not read input: %w", err)
	}
	if len(data) > maxInputBytes {
		return "", "", fmt.Errorf("input exceeds %d bytes", maxInputBytes)
	}
	return name, string(data), nil
}

// buildModel reads the input and builds a model of the order named by the
// --order flag.
func buildModel(cmd *cobra.Command, args []string) (string, *ngram.Model, error) {
	label, _ := cmd.Flags().GetString("order")
	order, err := ngram.ParseOrder(label)
	if err != nil {
		return "", nil, err
	}
	name, text, err := readText(cmd, args)
	if err != nil {
		return "", nil, err
	}
	model, err := ngram.BuildOrder(text, order)
	if err != nil {
		return "", nil, err
	}
	return name, model, nil
}

// addOrderFlag registers the --order flag shared by the model commands.
func addOrderFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("order", "o", ngram.BigramLabel, `Model type: "Bi-gram", "Tri-gram" or "Tetra-gram"`)
}

// sampler returns a seeded sampler when --seed was given and nil otherwise.
func sampler(cmd *cobra.Command) *ngram.Sampler {
	if !cmd.Flags().Changed("seed") {
		return nil
	}
	seed, _ := cmd.Flags().GetUint64("seed")
	return ngram.NewSeededSampler(seed)
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
