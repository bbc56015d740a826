package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/hse-assistant/internal/app"
	"github.com/mike-a-ellis/hse-assistant/internal/document"
	"github.com/mike-a-ellis/hse-assistant/internal/indexer"
	"github.com/mike-a-ellis/hse-assistant/internal/present"
	"github.com/mike-a-ellis/hse-assistant/internal/rag"
)

const (
	probeK       = 5
	previewRunes = 100
)

var (
	probeQuery     string
	probeQuestions []string
	skipQuestions  bool
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Check sources, the persisted index and end-to-end answers",
	Long: `Runs three checks:

1. Each configured source exists (and its size)
2. The persisted index loads, and a probe query returns passages
3. The assistant initializes and answers the probe questions`,
	RunE: runDiagnose,
}

func init() {
	diagnoseCmd.Flags().StringVar(&probeQuery, "probe", "HSE regulations", "query for the index probe")
	diagnoseCmd.Flags().StringSliceVar(&probeQuestions, "question",
		[]string{"HSE regulations", "protective equipment", "mining safety", "procedures"},
		"probe question (repeatable)")
	diagnoseCmd.Flags().BoolVar(&skipQuestions, "skip-questions", false, "skip step 3 (no language model calls)")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	d := diagnosis{out: cmd.OutOrStdout(), app: a}
	ctx := cmd.Context()

	d.checkSources()
	d.probeIndex(ctx, probeQuery)
	if skipQuestions {
		return nil
	}
	return d.probeQuestions(ctx, probeQuestions)
}

type diagnosis struct {
	out io.Writer
	app *app.App
}

func (d diagnosis) checkSources() {
	fmt.Fprintln(d.out, "=== SOURCES ===")
	paths := append([]string{}, d.app.Config.Sources.Documents...)
	if d.app.Config.Sources.Records != "" {
		paths = append(paths, d.app.Config.Sources.Records)
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			fmt.Fprintf(d.out, "  MISSING %s\n", p)
			continue
		}
		fmt.Fprintf(d.out, "  OK      %s (%d bytes)\n", p, info.Size())
	}
	fmt.Fprintln(d.out)
}

// probeIndex searches the persisted index without building it.
func (d diagnosis) probeIndex(ctx context.Context, query string) {
	fmt.Fprintln(d.out, "=== INDEX ===")
	idx, err := d.app.Store.Load(ctx, indexer.ManifestFor(d.app.Embedder))
	if err != nil {
		fmt.Fprintf(d.out, "  No usable index: %v\n\n", err)
		return
	}
	defer idx.Close()

	m := idx.Manifest()
	fmt.Fprintf(d.out, "  Chunks: %d, model: %s, built: %s\n", idx.Len(), m.Model, m.BuiltAt.Format("2006-01-02 15:04:05"))

	vec, err := d.app.Embedder.Embed(ctx, query)
	if err != nil {
		fmt.Fprintf(d.out, "  Probe failed: %v\n\n", err)
		return
	}
	hits, err := idx.Search(ctx, vec, probeK)
	if err != nil {
		fmt.Fprintf(d.out, "  Probe failed: %v\n\n", err)
		return
	}
	fmt.Fprintf(d.out, "  Probe %q: %d passages\n", query, len(hits))
	for i, h := range hits {
		fmt.Fprintf(d.out, "\n  --- Passage %d (score %.3f) ---\n", i+1, h.Score)
		fmt.Fprintf(d.out, "  Source: %s\n", h.Chunk.Source())
		if page := h.Chunk.Metadata[document.MetaPage]; page != "" {
			fmt.Fprintf(d.out, "  Page: %s\n", page)
		}
		fmt.Fprintf(d.out, "  Content: %s...\n", preview(h.Chunk.Text, previewRunes))
	}
	fmt.Fprintln(d.out)
}

func (d diagnosis) probeQuestions(ctx context.Context, questions []string) error {
	fmt.Fprintln(d.out, "=== SYSTEM ===")
	if !d.app.System.Initialize(ctx) {
		fmt.Fprintf(d.out, "  Initialization failed: %s\n", d.app.System.Status().Error)
		return fmt.Errorf("initialization failed")
	}
	fmt.Fprintln(d.out, "  Initialized")

	failures := 0
	for _, q := range questions {
		fmt.Fprintf(d.out, "\n  Question: %s\n", q)
		switch res := d.app.System.Query(ctx, q).(type) {
		case rag.Answer:
			fmt.Fprintf(d.out, "  Answer found (%d characters)\n", len([]rune(res.Answer)))
			fmt.Fprintf(d.out, "  Sources: %s\n", strings.Join(present.UniqueSources(res.Sources), ", "))
		case rag.Failure:
			failures++
			fmt.Fprintf(d.out, "  Error: %s\n", res.Message)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d probe questions failed", failures, len(questions))
	}
	return nil
}

// preview returns the first n runes of s on one line.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
