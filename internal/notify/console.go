package notify

import (
	"context"
	"fmt"
	"strings"
)

var consoleRule = strings.Repeat("=", 50)

// ConsoleMessage is printed as a framed block; meant for local testing.
type ConsoleMessage struct {
	Message string `mapstructure:"message"`
	Title   string `mapstructure:"title"`
}

// SendConsole writes m to the dispatcher's stdout. It always succeeds.
func (d *Dispatcher) SendConsole(ctx context.Context, m ConsoleMessage) Result {
	return d.run(ctx, ChannelConsole, func(ctx context.Context) Result {
		title := firstNonEmpty(m.Title, d.defaults.ConsoleTitle)

		var b strings.Builder
		b.WriteString("\n")
		b.WriteString(consoleRule + "\n")
		b.WriteString("📧 " + title + "\n")
		b.WriteString(consoleRule + "\n")
		b.WriteString(m.Message + "\n")
		b.WriteString(consoleRule + "\n\n")
		_, _ = fmt.Fprint(d.stdout, b.String())

		return success(ChannelConsole, "Message displayed in console: "+title)
	})
}
