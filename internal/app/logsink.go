package app

import (
	"context"
	"errors"
	"html"
	"sync"

	"notifykit/internal/config"
	"notifykit/internal/notify"
)

var errLogTargetUnset = errors.New("telegram log target not configured")

// logSender forwards log lines through the Telegram notifier. It uses its
// own dispatcher without logger or recorder so a failed forward cannot
// produce another log line to forward.
type logSender struct {
	mu     sync.RWMutex
	d      *notify.Dispatcher
	token  string
	chatID string
}

func newLogSender(cfg *config.Config) *logSender {
	s := &logSender{}
	s.update(cfg)
	return s
}

func (s *logSender) update(cfg *config.Config) {
	d := notify.New(dispatcherOptions(cfg, nil)...)
	s.mu.Lock()
	s.d = d
	s.token = cfg.Logging.Telegram.BotToken
	s.chatID = cfg.Logging.Telegram.ChatID
	s.mu.Unlock()
}

func (s *logSender) SendLog(ctx context.Context, text string) error {
	s.mu.RLock()
	d, token, chatID := s.d, s.token, s.chatID
	s.mu.RUnlock()
	if d == nil || token == "" || chatID == "" {
		return errLogTargetUnset
	}
	res := d.SendTelegram(notify.WithOrigin(ctx, "log"), notify.TelegramMessage{
		BotToken: token,
		ChatID:   chatID,
		Message:  "<pre>" + html.EscapeString(text) + "</pre>",
	})
	if !res.OK {
		return res.Err
	}
	return nil
}
