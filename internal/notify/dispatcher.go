package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	logx "notifykit/pkg/logx"
)

const (
	DefaultTimeout        = 10 * time.Second
	DefaultUsername       = "Notifykit Bot"
	DefaultConsoleTitle   = "Notifykit Message"
	DefaultFilename       = "notifykit_message.txt"
	DefaultTelegramAPIURL = "https://api.telegram.org"
	DefaultUserAgent      = "notifykit/0.1"
)

// Defaults are applied to optional message fields left empty by the caller.
type Defaults struct {
	Username     string
	ConsoleTitle string
	Filename     string
}

func (d Defaults) withFallbacks() Defaults {
	if strings.TrimSpace(d.Username) == "" {
		d.Username = DefaultUsername
	}
	if strings.TrimSpace(d.ConsoleTitle) == "" {
		d.ConsoleTitle = DefaultConsoleTitle
	}
	if strings.TrimSpace(d.Filename) == "" {
		d.Filename = DefaultFilename
	}
	return d
}

// Recorder receives every Result produced by a Dispatcher.
// Implementations must not block for long; errors are theirs to handle.
type Recorder interface {
	Record(ctx context.Context, r Result)
}

// Dispatcher sends notifications. It holds no per-message state and is
// safe for concurrent use.
type Dispatcher struct {
	client      *http.Client
	telegramURL string
	userAgent   string
	stdout      io.Writer
	defaults    Defaults
	log         logx.Logger
	rec         Recorder
}

type Option func(*Dispatcher)

// WithHTTPClient replaces the HTTP client. Its Timeout bounds every request.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.client = &http.Client{Timeout: t}
		}
	}
}

// WithTelegramAPIURL points Telegram calls at another Bot API server.
func WithTelegramAPIURL(u string) Option {
	return func(d *Dispatcher) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			d.telegramURL = u
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(d *Dispatcher) {
		if ua = strings.TrimSpace(ua); ua != "" {
			d.userAgent = ua
		}
	}
}

// WithStdout sets the console notifier's output.
func WithStdout(w io.Writer) Option {
	return func(d *Dispatcher) {
		if w != nil {
			d.stdout = w
		}
	}
}

func WithDefaults(def Defaults) Option {
	return func(d *Dispatcher) { d.defaults = def.withFallbacks() }
}

func WithLogger(log logx.Logger) Option {
	return func(d *Dispatcher) {
		if !log.IsZero() {
			d.log = log
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.rec = r }
}

func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:      &http.Client{Timeout: DefaultTimeout},
		telegramURL: DefaultTelegramAPIURL,
		userAgent:   DefaultUserAgent,
		stdout:      logx.Stdout(),
		defaults:    Defaults{}.withFallbacks(),
		log:         logx.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Defaults returns the effective defaults for optional fields.
func (d *Dispatcher) Defaults() Defaults { return d.defaults }

// run executes one operation, converting a panic into KindUnexpected,
// then logs and records the verdict.
func (d *Dispatcher) run(ctx context.Context, ch Channel, op func(context.Context) Result) (res Result) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic: %v", p)
			res = failure(ch, KindUnexpected, err, "Unexpected error: "+err.Error())
		}
		res.Channel = ch
		res.Took = time.Since(start)
		d.report(ctx, res)
	}()
	return op(ctx)
}

func (d *Dispatcher) report(ctx context.Context, res Result) {
	log := d.log.With(
		logx.String("channel", string(res.Channel)),
		logx.Duration("took", res.Took),
	)
	if res.Status != 0 {
		log = log.With(logx.Int("status", res.Status))
	}
	if res.OK {
		log.Info(res.Message)
	} else {
		log.Error(res.Message, logx.String("kind", res.Kind.String()), logx.Err(res.Err))
	}
	if d.rec != nil {
		d.rec.Record(ctx, res)
	}
}

type originKey struct{}

// WithOrigin tags ctx with who triggered a dispatch ("cli", "schedule", ...).
// Recorders read it back with OriginFrom.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

func OriginFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(originKey{}).(string)
	return s
}
