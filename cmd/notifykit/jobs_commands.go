package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"notifykit/internal/app"
	"notifykit/internal/schedule"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List configured jobs and their next run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				jobs := a.Scheduler().Jobs()
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs configured")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderJobs(jobs))
				if !a.Scheduler().Enabled() {
					fmt.Fprintln(cmd.OutOrStdout(), "Scheduler is disabled (scheduler.enabled=false)")
				}
				return nil
			})
		},
	}
	cmd.AddCommand(newJobsRunCommand(ctx))
	return cmd
}

func newJobsRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <job>",
		Short: "Run a job once now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				res, err := a.Scheduler().Trigger(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, res)
			})
		},
	}
}

func renderJobs(jobs []schedule.JobInfo) string {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		next := "-"
		if !j.Next.IsZero() {
			next = j.Next.Format("2006-01-02 15:04:05 MST")
		}
		rows = append(rows, []string{j.Name, j.Schedule, j.Tool, next, strconv.FormatUint(j.Runs, 10)})
	}
	return renderTable([]string{"Job", "Schedule", "Tool", "Next", "Runs"}, rows, 4)
}
