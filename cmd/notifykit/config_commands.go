package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notifykit/internal/app"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration with secrets redacted",
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withApp(cmd, func(a *app.App) error {
					data, err := a.Config().Redacted().JSON()
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Load the configuration and check jobs against the tool registry",
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withApp(cmd, func(a *app.App) error {
					fmt.Fprintln(cmd.OutOrStdout(), "Configuration valid")
					return nil
				})
			},
		},
	)
	return cmd
}
