package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kayz/inkwright/internal/config"
	"github.com/kayz/inkwright/internal/llm"
	"github.com/kayz/inkwright/internal/logger"
	"github.com/kayz/inkwright/internal/project"
	"github.com/kayz/inkwright/internal/prompt"
	"github.com/kayz/inkwright/internal/summarize"
)

var (
	logLevel   string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "inkwright",
	Short: "inkwright writing studio backend",
	Long: `inkwright keeps a novel project in a local database and drives its
prompt rendering and AI scene summarization.

Common commands:
  inkwright init          Create the config file and project database
  inkwright chapters      Manage chapters
  inkwright scenes        Manage scenes
  inkwright render        Render a prompt template
  inkwright summarize     Batch-summarize a chapter's scenes
  inkwright serve         Run the local studio server
  inkwright mcp           Expose the project over MCP (stdio)`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logLevel
		if !cmd.Flags().Changed("log") {
			if cfg, err := loadConfig(); err == nil && cfg.Logging.Level != "" {
				level = cfg.Logging.Level
			}
		}
		parsed, err := logger.ParseLevel(level)
		if err != nil {
			return err
		}
		logger.SetLevel(parsed)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level: trace, debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (default ~/.inkwright.yaml)")
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

// workspace bundles everything a project-facing command needs.
type workspace struct {
	cfg      *config.Config
	store    *project.Store
	scenes   *project.ContextProvider
	registry *prompt.Registry
}

func openWorkspace() (*workspace, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := project.NewStore(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	defaults := project.Defaults{
		POV:          cfg.Defaults.POV,
		POVCharacter: cfg.Defaults.POVCharacter,
		Tense:        cfg.Defaults.Tense,
	}
	return &workspace{
		cfg:      cfg,
		store:    store,
		scenes:   project.NewContextProvider(store, defaults),
		registry: project.BuildRegistry(cfg.Project.Name, defaults),
	}, nil
}

func (w *workspace) Close() {
	if err := w.store.Close(); err != nil {
		logger.Warnf("failed to close store: %v", err)
	}
}

// orchestrator builds a batch orchestrator over the workspace, with a live
// completion provider.
func (w *workspace) orchestrator(onEvent func(summarize.Event)) (*summarize.Orchestrator, error) {
	provider, err := llm.New(w.cfg.AI)
	if err != nil {
		return nil, err
	}
	return summarize.New(w.store, provider, w.scenes, w.registry, summarize.Options{
		Template:    w.cfg.Summary.Template,
		Model:       w.cfg.AI.Model,
		MaxTokens:   w.cfg.AI.MaxTokens,
		Temperature: w.cfg.AI.Temperature,
		OnEvent:     onEvent,
	}), nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
