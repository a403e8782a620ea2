// Command notifykit sends notifications to Discord, Slack, Telegram, the
// console or a file, and can run them on a schedule.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		// failed sends already printed their "Error: ..." result
		if !errors.Is(err, context.Canceled) && !errors.Is(err, errSendFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
