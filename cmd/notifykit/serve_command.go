package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"notifykit/internal/app"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled jobs and hot-reload the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(sigCtx)
			return ctx.withApp(cmd, func(a *app.App) error {
				return a.Serve(sigCtx)
			})
		},
	}
}
