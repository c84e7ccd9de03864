package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Commands are built fresh on every call
// so tests can run them with their own arguments and streams.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ngram",
		Short: "Build n-gram models from text and generate passages from them",
		Long: `ngram tokenizes text, builds Bi-gram, Tri-gram or Tetra-gram models from it,
and generates new passages either automatically or one word at a time.

Text is read from the file named as the last argument, or from stdin when
the argument is "-" or missing.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log generation details to stderr")

	rootCmd.AddCommand(
		newTokenizeCmd(),
		newBuildCmd(),
		newGenerateCmd(),
		newManualCmd(),
		newInspectCmd(),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandLogger returns a stderr logger, at Debug when --verbose is set and
// Warn otherwise. The "error" key is standardized to "err".
func commandLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return newLogger(cmd.ErrOrStderr(), level)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}
