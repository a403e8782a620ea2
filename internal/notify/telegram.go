package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// TelegramMessage is one Bot API sendMessage call.
type TelegramMessage struct {
	BotToken string `mapstructure:"bot_token"`
	// ChatID is a numeric chat id or an @username.
	ChatID  string `mapstructure:"chat_id"`
	Message string `mapstructure:"message"`
}

type telegramReply struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendTelegram sends m as an HTML-formatted message. Success is signalled
// by the "ok" field of the JSON reply, not by the HTTP status.
func (d *Dispatcher) SendTelegram(ctx context.Context, m TelegramMessage) Result {
	return d.run(ctx, ChannelTelegram, func(ctx context.Context) Result {
		token := strings.TrimSpace(m.BotToken)
		chatID := strings.TrimSpace(m.ChatID)
		switch {
		case token == "":
			return invalid(ChannelTelegram, ErrMissingBotToken)
		case chatID == "":
			return invalid(ChannelTelegram, ErrMissingChatID)
		case m.Message == "":
			return invalid(ChannelTelegram, ErrMissingMessage)
		}

		// Offline skips getMe; the bot is only used as a typed Bot API client.
		bot, err := tele.NewBot(tele.Settings{
			URL:     d.telegramURL,
			Token:   token,
			Client:  d.client,
			Offline: true,
		})
		if err != nil {
			return failure(ChannelTelegram, KindUnexpected, err, fmt.Sprintf("Unexpected error: %v", err))
		}

		payload := map[string]string{
			"chat_id":    chatID,
			"text":       m.Message,
			"parse_mode": string(tele.ModeHTML),
		}
		data, err := rawCall(ctx, bot, "sendMessage", payload)
		if data == nil {
			if err == nil {
				err = errors.New("empty response")
			}
			err = redactToken(err, token)
			return failure(ChannelTelegram, KindTransport, err, fmt.Sprintf("Error sending Telegram message: %v", err))
		}

		var reply telegramReply
		if jerr := json.Unmarshal(data, &reply); jerr != nil {
			return failure(ChannelTelegram, KindApplication, fmt.Errorf("decode telegram reply: %w", jerr),
				fmt.Sprintf("Failed to send Telegram message: invalid response: %v", jerr))
		}
		if !reply.OK {
			desc := strings.TrimSpace(reply.Description)
			if desc == "" {
				desc = "Unknown error"
			}
			if err == nil {
				err = fmt.Errorf("telegram: %s", desc)
			}
			res := failure(ChannelTelegram, KindApplication, redactToken(err, token),
				"Failed to send Telegram message: "+desc)
			res.Status = reply.ErrorCode
			return res
		}
		return success(ChannelTelegram, "Telegram message sent successfully!")
	})
}

type rawResult struct {
	data []byte
	err  error
}

// rawCall runs bot.Raw but returns early when ctx is done. The abandoned
// request is still bounded by the HTTP client timeout.
func rawCall(ctx context.Context, bot *tele.Bot, method string, payload any) ([]byte, error) {
	ch := make(chan rawResult, 1)
	go func() {
		data, err := bot.Raw(method, payload)
		ch <- rawResult{data: data, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.data, r.err
	}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// redactToken keeps the bot token out of error text; transport errors
// from net/http embed the full request URL.
func redactToken(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<redacted>"), err: err}
}
