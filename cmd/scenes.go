package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	sceneBodyFile string
	scenePOV      string
	scenePOVChar  string
	sceneTense    string
)

var scenesCmd = &cobra.Command{
	Use:   "scenes",
	Short: "Manage scenes",
}

var scenesListCmd = &cobra.Command{
	Use:   "list <chapter>",
	Short: "List a chapter's scenes",
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
		scenes, err := w.store.LoadChapterScenes(ch.ID)
		if err != nil {
			return err
		}
		if len(scenes) == 0 {
			fmt.Printf("%s has no scenes yet.\n", ch.Name)
			return nil
		}
		for _, sc := range scenes {
			state := "draft"
			if strings.TrimSpace(sc.Summary) != "" {
				state = "summarized"
			}
			fmt.Printf("%2d. %-30s %s words, %s  [%s]\n",
				sc.Position, sc.Name,
				humanize.Comma(int64(len(strings.Fields(sc.Body)))), state, sc.ID)
		}
		return nil
	},
}

var scenesAddCmd = &cobra.Command{
	Use:   "add <chapter> <name>",
	Short: "Add a scene; the body is read from --body-file or stdin",
	Args:  cobra.ExactArgs(2),
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

		var body []byte
		if sceneBodyFile != "" {
			body, err = os.ReadFile(sceneBodyFile)
			if err != nil {
				return err
			}
		} else {
			body, err = io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
		}

		sc, err := w.store.CreateScene(ch.ID, args[1], string(body))
		if err != nil {
			return err
		}
		if scenePOV != "" || scenePOVChar != "" || sceneTense != "" {
			sc.POV = scenePOV
			sc.POVCharacter = scenePOVChar
			sc.Tense = sceneTense
			if err := w.store.SaveScene(sc); err != nil {
				return err
			}
		}
		fmt.Printf("Created scene %q (%s) in %q\n", sc.Name, sc.ID, ch.Name)
		return nil
	},
}

var scenesShowCmd = &cobra.Command{
	Use:   "show <scene-id>",
	Short: "Show a scene's body, summary, and narrative settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace()
		if err != nil {
			return err
		}
		defer w.Close()

		sc, err := w.store.LoadScene(args[0])
		if err != nil {
			return err
		}
		pov, povChar, tense, err := w.scenes.EffectivePOVTense(sc.ID)
		if err != nil {
			return err
		}

		fmt.Printf("Scene:   %s (position %d)\n", sc.Name, sc.Position)
		fmt.Printf("POV:     %s (%s), %s\n", pov, povChar, tense)
		fmt.Printf("Words:   %s\n", humanize.Comma(int64(len(strings.Fields(sc.Body)))))
		fmt.Printf("Updated: %s\n\n", humanize.Time(sc.UpdatedAt))
		if strings.TrimSpace(sc.Summary) != "" {
			fmt.Printf("Summary:\n%s\n\n", sc.Summary)
		}
		fmt.Println(sc.Body)
		return nil
	},
}

var scenesDeleteCmd = &cobra.Command{
	Use:   "delete <scene-id>",
	Short: "Delete a scene",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace()
		if err != nil {
			return err
		}
		defer w.Close()

		if err := w.store.DeleteScene(args[0]); err != nil {
			return err
		}
		fmt.Println("Scene deleted.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scenesCmd)
	scenesCmd.AddCommand(scenesListCmd)
	scenesCmd.AddCommand(scenesAddCmd)
	scenesCmd.AddCommand(scenesShowCmd)
	scenesCmd.AddCommand(scenesDeleteCmd)

	scenesAddCmd.Flags().StringVar(&sceneBodyFile, "body-file", "", "Read the scene body from a file instead of stdin")
	scenesAddCmd.Flags().StringVar(&scenePOV, "pov", "", "Point of view for this scene")
	scenesAddCmd.Flags().StringVar(&scenePOVChar, "pov-character", "", "POV character for this scene")
	scenesAddCmd.Flags().StringVar(&sceneTense, "tense", "", "Tense for this scene")
}
