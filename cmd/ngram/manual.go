package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/CTAG07/Dissociated/pkg/ngram"
	"github.com/spf13/cobra"
)

func newManualCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manual FILE",
		Short: "Build a passage one word at a time",
		Long: `Build a model from FILE and walk it under your control. After every step the
possible next tokens are listed. Type one of them, "random" to let the model
choose, "reset" to start over from a random key, or "quit".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "-" {
				return errors.New("manual mode reads choices from stdin, so the text must come from a file")
			}
			_, model, err := buildModel(cmd, args)
			if err != nil {
				return err
			}

			session := ngram.NewSession(model, sampler(cmd))
			session.SetLogger(commandLogger(cmd))
			if start, _ := cmd.Flags().GetString("start"); start != "" {
				if err = session.Start(start); err != nil {
					return err
				}
			} else {
				session.Reset()
			}

			in := cmd.InOrStdin()
			return runManual(session, in, cmd.OutOrStdout(), isTerminal(in))
		},
	}
	addOrderFlag(cmd)
	cmd.Flags().StringP("start", "s", "", "Start key; a random key is used when empty")
	cmd.Flags().Uint64("seed", 0, "Seed for reproducible random choices")
	return cmd
}

// runManual drives session from the lines of in until "quit" or end of input.
// The prompt is only shown when prompt is true.
func runManual(session *ngram.Session, in io.Reader, out io.Writer, prompt bool) error {
	scanner := bufio.NewScanner(in)
	printSession(out, session)
	for {
		if prompt {
			fmt.Fprint(out, "choice> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return finishManual(out, session)
		case "reset":
			session.Reset()
		default:
			if _, err := session.Step(line); err != nil {
				switch {
				case errors.Is(err, ngram.ErrDeadEnd):
					fmt.Fprintln(out, `end of chain reached, type "reset" or "quit"`)
				case errors.Is(err, ngram.ErrInvalidChoice):
					fmt.Fprintf(out, "%q is not an option\n", line)
				default:
					return err
				}
				continue
			}
		}
		printSession(out, session)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("could not read choice: %w", err)
	}
	return finishManual(out, session)
}

func printSession(out io.Writer, session *ngram.Session) {
	view := session.View()
	fmt.Fprintf(out, "text: %s\n", ngram.Detokenize(view.Tokens))
	options := make([]string, len(view.Options))
	for i, opt := range view.Options {
		if view.State == ngram.SessionDeadEnd {
			options[i] = "[" + opt + "]"
		} else {
			options[i] = ngram.DisplayToken(opt)
		}
	}
	fmt.Fprintf(out, "options: %s\n", strings.Join(options, " | "))
}

func finishManual(out io.Writer, session *ngram.Session) error {
	fmt.Fprintf(out, "final (%d steps): %s\n", session.Steps(), ngram.Detokenize(session.View().Tokens))
	return nil
}
