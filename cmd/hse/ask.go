package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/hse-assistant/internal/present"
	"github.com/mike-a-ellis/hse-assistant/internal/rag"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question",
	Long: `Initializes the assistant (loading or building the index) and answers
a single question. With --json the raw result is printed as
{"answer", "sources"} or {"error"}.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the result as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	if err := present.ValidateQuestion(question); err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	mon := openMonitor(a.Config)
	defer mon.Close()

	ctx := cmd.Context()
	if !a.System.Initialize(ctx) {
		return fmt.Errorf("initialization failed: %s", a.System.Status().Error)
	}

	res := a.System.Query(ctx, question)
	if answer, ok := res.(rag.Answer); ok {
		mon.LogInteraction(ctx, question, answer.Answer, answer.Sources)
	}

	out := cmd.OutOrStdout()
	if askJSON {
		return printJSON(out, res)
	}
	return printResult(out, question, res)
}

func printJSON(w io.Writer, res rag.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if f, ok := res.(rag.Failure); ok {
		return errors.New(f.Message)
	}
	return nil
}

func printResult(w io.Writer, question string, res rag.Result) error {
	switch res := res.(type) {
	case rag.Answer:
		fmt.Fprintln(w, res.Answer)
		if sources := present.UniqueSources(res.Sources); len(sources) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Sources:")
			fmt.Fprint(w, present.FormatSources(sources))
		}
		if notice := present.SafetyNotice(question); notice != "" {
			fmt.Fprintln(w)
			fmt.Fprintln(w, notice)
		}
		return nil
	case rag.Failure:
		return fmt.Errorf("an error occurred: %s", res.Message)
	default:
		return fmt.Errorf("unexpected result %T", res)
	}
}
