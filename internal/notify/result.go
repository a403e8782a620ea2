package notify

import (
	"errors"
	"fmt"
	"time"
)

// Channel names a delivery channel.
type Channel string

const (
	ChannelDiscord  Channel = "discord"
	ChannelSlack    Channel = "slack"
	ChannelTelegram Channel = "telegram"
	ChannelConsole  Channel = "console"
	ChannelFile     Channel = "file"
)

// Kind classifies a failed dispatch.
type Kind int

const (
	KindNone Kind = iota
	// KindValidation: a required input was missing.
	KindValidation
	// KindTransport: the request could not be completed (DNS, timeout, reset).
	KindTransport
	// KindApplication: the provider answered and rejected the message.
	KindApplication
	// KindIO: a local file system error.
	KindIO
	// KindUnexpected: anything else, including recovered panics.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindApplication:
		return "application"
	case KindIO:
		return "io"
	case KindUnexpected:
		return "unexpected"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	ErrMissingWebhookURL = errors.New("webhook url is required")
	ErrMissingMessage    = errors.New("message is required")
	ErrMissingBotToken   = errors.New("bot token is required")
	ErrMissingChatID     = errors.New("chat id is required")
	ErrMissingFilename   = errors.New("filename is required")
)

// Result is the outcome of one dispatch.
//
// Message is the human-readable verdict without the "Error: " prefix;
// String() renders the caller-facing text.
type Result struct {
	Channel Channel
	OK      bool
	Kind    Kind
	Message string
	// Status is the HTTP status code, 0 when no response was received.
	Status int
	Err    error
	Took   time.Duration
}

// String returns the success phrase, or "Error: " followed by the details.
func (r Result) String() string {
	if r.OK {
		return r.Message
	}
	return "Error: " + r.Message
}

func success(ch Channel, msg string) Result {
	return Result{Channel: ch, OK: true, Kind: KindNone, Message: msg}
}

func failure(ch Channel, kind Kind, err error, msg string) Result {
	return Result{Channel: ch, Kind: kind, Err: err, Message: msg}
}

func invalid(ch Channel, err error) Result {
	return failure(ch, KindValidation, err, "Invalid "+string(ch)+" message: "+err.Error())
}
