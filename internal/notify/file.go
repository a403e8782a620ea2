package notify

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// FileMessage writes one line to a local file.
type FileMessage struct {
	Message  string `mapstructure:"message"`
	Filename string `mapstructure:"filename"`
	// Append keeps existing content; otherwise the file is truncated.
	Append bool `mapstructure:"append"`
}

// SaveToFile writes m.Message plus a newline. Concurrent writers to the
// same file are not serialized.
func (d *Dispatcher) SaveToFile(ctx context.Context, m FileMessage) Result {
	return d.run(ctx, ChannelFile, func(ctx context.Context) Result {
		name := firstNonEmpty(m.Filename, d.defaults.Filename)
		if strings.TrimSpace(name) == "" {
			return invalid(ChannelFile, ErrMissingFilename)
		}
		if err := writeLine(name, m.Message, m.Append); err != nil {
			return failure(ChannelFile, KindIO, err, fmt.Sprintf("Error saving message to file: %v", err))
		}
		return success(ChannelFile, "Message saved to file: "+name)
	})
}

func writeLine(name, line string, appendMode bool) (err error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(name, flags, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = f.WriteString(line + "\n")
	return err
}
