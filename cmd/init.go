package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kayz/inkwright/internal/config"
	"github.com/kayz/inkwright/internal/project"
)

var initProjectName string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file and project database",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initProjectName, "project", "", "Project name")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := resolvedConfigPath()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if initProjectName != "" {
		cfg.Project.Name = initProjectName
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}

	store, err := project.NewStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Created %s\n", path)
	fmt.Printf("Project database at %s\n", cfg.Storage.Path)
	fmt.Println("Set INKWRIGHT_API_KEY (or ai.api_key in the config) before summarizing.")
	return nil
}
