package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"notifykit/internal/app"
	"notifykit/internal/notify"
)

// errSendFailed marks a command whose result was printed but not OK.
var errSendFailed = errors.New("send failed")

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevelFlag: logLevelFlag}
}

func (c *commandContext) options(cmd *cobra.Command) app.Options {
	var opts app.Options
	if c.configFlag != nil {
		opts.ConfigPath = strings.TrimSpace(*c.configFlag)
	}
	if c.logLevelFlag != nil {
		opts.LogLevel = strings.TrimSpace(*c.logLevelFlag)
	}
	opts.Stdout = cmd.OutOrStdout()
	return opts
}

// withApp builds the app for one command and closes it afterwards.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(*app.App) error) error {
	a, err := app.New(cmd.Context(), c.options(cmd))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// printResult writes the caller-facing result text and turns a failed
// result into errSendFailed.
func printResult(cmd *cobra.Command, res notify.Result) error {
	fmt.Fprintln(cmd.OutOrStdout(), res.String())
	if !res.OK {
		return errSendFailed
	}
	return nil
}
