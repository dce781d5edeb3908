package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kayz/inkwright/internal/summarize"
)

var (
	summarizeOverwrite bool
	summarizeQuiet     bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <chapter>",
	Short: "Batch-summarize a chapter's scenes",
	Long: `Summarize every scene of a chapter with the configured AI provider.
Scenes that already carry a summary are skipped unless --overwrite is set.
Ctrl-C stops the run after the current chunk; completed summaries are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().BoolVar(&summarizeOverwrite, "overwrite", false,
		"Re-summarize scenes that already have a summary")
	summarizeCmd.Flags().BoolVarP(&summarizeQuiet, "quiet", "q", false,
		"Suppress streaming output, print only the final report")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	w, err := openWorkspace()
	if err != nil {
		return err
	}
	defer w.Close()

	ch, err := w.store.FindChapter(args[0])
	if err != nil {
		return err
	}

	onEvent := func(ev summarize.Event) {
		if summarizeQuiet {
			return
		}
		switch ev.Kind {
		case "scene_started":
			fmt.Printf("[%d/%d] %s: ", ev.Index+1, ev.Total, ev.SceneName)
		case "chunk":
			fmt.Print(".")
		case "scene_completed":
			fmt.Println(" done")
		case "scene_skipped":
			fmt.Printf("[%d/%d] %s: skipped (%s)\n", ev.Index+1, ev.Total, ev.SceneName, ev.Reason)
		case "scene_failed":
			fmt.Printf(" failed: %s\n", ev.Reason)
		}
	}

	orch, err := w.orchestrator(onEvent)
	if err != nil {
		return err
	}

	// Ctrl-C requests a cooperative stop; a second Ctrl-C kills the process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			fmt.Fprintln(os.Stderr, "\nstopping after the current chunk...")
			orch.Stop()
			signal.Stop(sigCh)
		}
	}()

	policy := summarize.PolicySkipNonEmpty
	if summarizeOverwrite {
		policy = summarize.PolicyOverwriteAll
	}

	report, err := orch.Run(context.Background(), ch.ID, policy)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s: %d summarized, %d skipped, %d failed (%s)\n",
		report.State,
		len(report.Processed),
		len(report.SkippedExisting)+len(report.SkippedEmpty),
		len(report.Failures),
		report.Duration.Round(100*time.Millisecond))
	for _, f := range report.Failures {
		fmt.Printf("  %s: %v\n", f.SceneName, f.Err)
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d scene(s) failed", len(report.Failures))
	}
	return nil
}
