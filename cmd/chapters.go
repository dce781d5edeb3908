package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var chaptersCmd = &cobra.Command{
	Use:   "chapters",
	Short: "Manage chapters",
}

var chaptersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List chapters with summarization progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace()
		if err != nil {
			return err
		}
		defer w.Close()

		chapters, err := w.store.ListChapters()
		if err != nil {
			return err
		}
		if len(chapters) == 0 {
			fmt.Println("No chapters yet. Add one with: inkwright chapters add <name>")
			return nil
		}
		for _, ch := range chapters {
			scenes, err := w.store.LoadChapterScenes(ch.ID)
			if err != nil {
				return err
			}
			summarized := 0
			words := 0
			for _, sc := range scenes {
				if strings.TrimSpace(sc.Summary) != "" {
					summarized++
				}
				words += len(strings.Fields(sc.Body))
			}
			fmt.Printf("%2d. %-30s %d scenes, %d summarized, %s words  [%s]\n",
				ch.Position, ch.Name, len(scenes), summarized, humanize.Comma(int64(words)), ch.ID)
		}
		return nil
	},
}

var chaptersAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a chapter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace()
		if err != nil {
			return err
		}
		defer w.Close()

		ch, err := w.store.CreateChapter(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created chapter %q (%s)\n", ch.Name, ch.ID)
		return nil
	},
}

var chaptersSummaryCmd = &cobra.Command{
	Use:   "summary <chapter>",
	Short: "Print the chapter summary derived from its scene summaries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace()
		if err != nil {
			return err
		}
		defer w.Close()

		ch, err := w.store.FindChapter(args[0])
		if err != nil {
			return err
		}
		summary, err := w.store.ChapterSummary(ch.ID)
		if err != nil {
			return err
		}
		if summary == "" {
			fmt.Printf("%s has no scene summaries yet. Run: inkwright summarize %q\n", ch.Name, ch.Name)
			return nil
		}
		fmt.Println(summary)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chaptersCmd)
	chaptersCmd.AddCommand(chaptersListCmd)
	chaptersCmd.AddCommand(chaptersAddCmd)
	chaptersCmd.AddCommand(chaptersSummaryCmd)
}
