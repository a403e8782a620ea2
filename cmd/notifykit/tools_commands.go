package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"notifykit/internal/app"
	"notifykit/internal/notify"
)

func newToolsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List tool definitions as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				return writeJSON(cmd, a.Tools().Definitions())
			})
		},
	}
}

func newCallCommand(ctx *commandContext) *cobra.Command {
	var argsJSON string
	var argsFile string
	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke a tool by name with JSON arguments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := readToolArgs(argsJSON, argsFile)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				res := a.Call(notify.WithOrigin(cmd.Context(), "call"), args[0], toolArgs)
				return printResult(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&argsJSON, "args", "{}", "Tool arguments as a JSON object")
	cmd.Flags().StringVar(&argsFile, "args-file", "", "Read tool arguments from a JSON file")
	return cmd
}

func readToolArgs(raw, path string) (map[string]any, error) {
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read args file: %w", err)
		}
		raw = string(data)
	}
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("tool arguments must be a JSON object: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
