package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kayz/inkwright/internal/prompt"
)

var (
	renderTemplate     string
	renderTemplateFile string
	renderSceneID      string
	renderVars         []string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a prompt template against project variables",
	Long: `Render a prompt template. Plain {{ name }} placeholders resolve from the
project variables; an unknown name renders an inline error marker instead of
failing the whole template.`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVar(&renderTemplate, "template", "", "Template text")
	renderCmd.Flags().StringVar(&renderTemplateFile, "template-file", "", "Read the template from a file")
	renderCmd.Flags().StringVar(&renderSceneID, "scene", "", "Scene id to overlay scene variables")
	renderCmd.Flags().StringArrayVar(&renderVars, "var", nil, "Extra variable as name=value (repeatable)")
}

func runRender(cmd *cobra.Command, args []string) error {
	template := renderTemplate
	if renderTemplateFile != "" {
		data, err := os.ReadFile(renderTemplateFile)
		if err != nil {
			return err
		}
		template = string(data)
	}
	if template == "" {
		return fmt.Errorf("provide --template or --template-file")
	}

	w, err := openWorkspace()
	if err != nil {
		return err
	}
	defer w.Close()

	renderCtx := w.registry.Snapshot()
	if renderSceneID != "" {
		vars, err := w.scenes.SceneVariables(renderSceneID)
		if err != nil {
			return err
		}
		for k, v := range vars {
			renderCtx[k] = v
		}
	}
	for _, kv := range renderVars {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --var %q, want name=value", kv)
		}
		renderCtx[name] = value
	}

	fmt.Println(prompt.NewRenderer(w.registry).Render(template, renderCtx))
	return nil
}
