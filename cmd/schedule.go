package cmd

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kayz/inkwright/internal/schedule"
	"github.com/kayz/inkwright/internal/summarize"
)

var (
	scheduleJobName string
	schedulePolicy  string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage recurring summarization jobs",
	Long: `Manage recurring summarization jobs. Jobs are stored in the project
database and execute while "inkwright serve" is running.`,
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <chapter> <cron>",
	Short: `Add a job, e.g.: schedule add "Chapter One" "0 3 * * *"`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace()
		if err != nil {
			return err
		}
		defer w.Close()

		policy, err := summarize.ParsePolicy(schedulePolicy)
		if err != nil {
			return err
		}
		store, err := schedule.NewStore(w.store.DB())
		if err != nil {
			return err
		}
		// The scheduler validates and persists; ticks only happen under
		// "serve", so it is never started here.
		scheduler := schedule.NewScheduler(store, w.store, nil)

		name := scheduleJobName
		if name == "" {
			name = fmt.Sprintf("summarize %s", args[0])
		}
		job, err := scheduler.AddJob(name, args[0], args[1], policy)
		if err != nil {
			return err
		}
		fmt.Printf("Created job %q (%s), schedule %q\n", job.Name, job.ID, job.Schedule)
		return nil
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace()
		if err != nil {
			return err
		}
		defer w.Close()

		store, err := schedule.NewStore(w.store.DB())
		if err != nil {
			return err
		}
		jobs, err := store.Load()
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Println("No scheduled jobs.")
			return nil
		}
		sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
		for _, job := range jobs {
			state := "enabled"
			if !job.Enabled {
				state = "paused"
			}
			lastRun := "never"
			if job.LastRun != nil {
				lastRun = humanize.Time(*job.LastRun)
			}
			fmt.Printf("%-30s %-14s %s, last run %s  [%s]\n", job.Name, job.Schedule, state, lastRun, job.ID)
			if job.LastError != "" {
				fmt.Printf("    last error: %s\n", job.LastError)
			}
		}
		return nil
	},
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove <job-id>",
	Short: "Remove a scheduled job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace()
		if err != nil {
			return err
		}
		defer w.Close()

		store, err := schedule.NewStore(w.store.DB())
		if err != nil {
			return err
		}
		if err := store.DeleteJob(args[0]); err != nil {
			return err
		}
		fmt.Println("Job removed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleRemoveCmd)

	scheduleAddCmd.Flags().StringVar(&scheduleJobName, "name", "", "Job name")
	scheduleAddCmd.Flags().StringVar(&schedulePolicy, "policy", "skip-if-non-empty",
		"skip-if-non-empty or overwrite-all")
}
