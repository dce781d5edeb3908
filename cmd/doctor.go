package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the environment and configuration",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ok := true
	check := func(pass bool, format string, a ...any) {
		mark := "ok  "
		if !pass {
			mark = "FAIL"
			ok = false
		}
		fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, a...))
	}

	if info, err := host.Info(); err == nil {
		fmt.Printf("Host: %s %s %s, up %s\n", info.Hostname, info.Platform, info.PlatformVersion,
			(time.Duration(info.Uptime) * time.Second).Round(time.Minute))
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		check(vm.Available > 256<<20, "memory: %s available of %s (%.0f%% used)",
			humanize.IBytes(vm.Available), humanize.IBytes(vm.Total), vm.UsedPercent)
	}

	cfgPath := resolvedConfigPath()
	_, statErr := os.Stat(cfgPath)
	check(statErr == nil, "config file: %s", cfgPath)

	cfg, err := loadConfig()
	if err != nil {
		check(false, "config parse: %v", err)
		return fmt.Errorf("environment check failed")
	}

	check(cfg.AI.APIKey != "", "AI provider %q: API key %s", cfg.AI.Provider, presence(cfg.AI.APIKey))

	dbDir := filepath.Dir(cfg.Storage.Path)
	if usage, err := disk.Usage(existingDir(dbDir)); err == nil {
		check(usage.Free > 64<<20, "disk at %s: %s free of %s",
			dbDir, humanize.IBytes(usage.Free), humanize.IBytes(usage.Total))
	}
	if _, err := os.Stat(cfg.Storage.Path); err == nil {
		check(true, "project database: %s", cfg.Storage.Path)
	} else {
		fmt.Printf("[    ] project database not created yet (run: inkwright init)\n")
	}

	if !ok {
		return fmt.Errorf("environment check failed")
	}
	fmt.Println("Everything looks good.")
	return nil
}

func presence(s string) string {
	if s == "" {
		return "missing"
	}
	return "configured"
}

// existingDir walks up until a directory that exists, so disk usage works
// before the database directory is created.
func existingDir(dir string) string {
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
