package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"notifykit/internal/app"
	"notifykit/internal/storage"
)

var errHistoryDisabled = errors.New("history storage is disabled (set storage.driver in the config)")

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent dispatch results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				st := a.Store()
				if st == nil {
					return errHistoryDisabled
				}
				recs, err := st.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, recs)
				}
				if len(recs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No history")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderHistory(recs))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete records older than a duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				st := a.Store()
				if st == nil {
					return errHistoryDisabled
				}
				n, err := st.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d record(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age threshold, e.g. 72h")
	return cmd
}

func renderHistory(recs []storage.Record) string {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		status := "ok"
		if !r.OK {
			status = r.Kind
		}
		code := ""
		if r.Status != 0 {
			code = strconv.Itoa(r.Status)
		}
		rows = append(rows, []string{
			r.At.Local().Format("2006-01-02 15:04:05"),
			r.Channel,
			status,
			code,
			strconv.FormatInt(r.TookMS, 10),
			r.Origin,
			r.Message,
		})
	}
	return renderTable([]string{"Time", "Channel", "Result", "HTTP", "ms", "Origin", "Message"}, rows, 3, 4)
}
