package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DiscordMessage is one Discord webhook post.
type DiscordMessage struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Message    string `mapstructure:"message"`
	// Username overrides the webhook's display name (default: Defaults.Username).
	Username  string `mapstructure:"username"`
	AvatarURL string `mapstructure:"avatar_url"`
}

type discordPayload struct {
	Content   string `json:"content"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// SendDiscord posts m to its webhook. Discord answers 204 No Content on success.
func (d *Dispatcher) SendDiscord(ctx context.Context, m DiscordMessage) Result {
	return d.run(ctx, ChannelDiscord, func(ctx context.Context) Result {
		url := strings.TrimSpace(m.WebhookURL)
		switch {
		case url == "":
			return invalid(ChannelDiscord, ErrMissingWebhookURL)
		case m.Message == "":
			return invalid(ChannelDiscord, ErrMissingMessage)
		}

		payload := discordPayload{
			Content:   m.Message,
			Username:  firstNonEmpty(m.Username, d.defaults.Username),
			AvatarURL: strings.TrimSpace(m.AvatarURL),
		}
		resp, err := d.postJSON(ctx, url, payload)
		if err != nil {
			return requestFailure(ChannelDiscord, "Discord", err)
		}
		if resp.status != http.StatusNoContent {
			res := failure(ChannelDiscord, KindApplication,
				fmt.Errorf("discord: unexpected status %d", resp.status),
				fmt.Sprintf("Failed to send Discord message. Status: %d", resp.status))
			res.Status = resp.status
			return res
		}
		res := success(ChannelDiscord, "Discord message sent successfully!")
		res.Status = resp.status
		return res
	})
}

// requestFailure maps a postJSON error to a transport or unexpected failure.
func requestFailure(ch Channel, provider string, err error) Result {
	var te *transportError
	if errors.As(err, &te) {
		return failure(ch, KindTransport, err, fmt.Sprintf("Error sending %s message: %v", provider, err))
	}
	return failure(ch, KindUnexpected, err, fmt.Sprintf("Unexpected error: %v", err))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
