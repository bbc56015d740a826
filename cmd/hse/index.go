package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/hse-assistant/internal/indexer"
)

var rebuild bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Load or build the document index",
	Long: `Loads the persisted index, building it from the configured sources if it
is missing, unreadable or built with another embedding model.

With --rebuild the persisted index is deleted and built again. Use it after
the source documents change: the index is never refreshed automatically.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&rebuild, "rebuild", false, "delete the persisted index and build it again")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()
	out := cmd.OutOrStdout()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if rebuild {
		fmt.Fprintln(out, "Removing persisted index...")
		if err := a.Store.Remove(ctx); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
		fmt.Fprintln(out, "Index removed")
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Initializing...")
	if !a.System.Initialize(ctx) {
		if build := a.System.BuildResult(); build != nil {
			printFailedSources(out, build)
		}
		return fmt.Errorf("indexing failed: %s", a.System.Status().Error)
	}

	st := a.System.Status()
	fmt.Fprintln(out)
	if build := a.System.BuildResult(); build != nil {
		fmt.Fprintln(out, "Index built!")
		fmt.Fprintf(out, "  Sources: %d\n", len(build.Sources))
		fmt.Fprintf(out, "  Documents: %d\n", build.TotalDocs)
		fmt.Fprintf(out, "  Chunks: %d\n", build.TotalChunks)
		fmt.Fprintf(out, "  Model: %s\n", build.Model)
		fmt.Fprintf(out, "  Duration: %s\n", build.Duration.Round(time.Millisecond))
		printFailedSources(out, build)
	} else {
		fmt.Fprintln(out, "Index loaded")
		fmt.Fprintf(out, "  Chunks: %d\n", st.Chunks)
		fmt.Fprintf(out, "  Model: %s\n", st.Model)
		fmt.Fprintf(out, "  Built: %s\n", st.BuiltAt.Format(time.RFC3339))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Total time: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func printFailedSources(w io.Writer, build *indexer.IndexResult) {
	if len(build.FailedSources) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Skipped sources:")
	for _, failed := range build.FailedSources {
		fmt.Fprintf(w, "  - %s: %s\n", failed.Path, failed.Reason)
	}
}
