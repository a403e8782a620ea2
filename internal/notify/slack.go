package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// SlackMessage is one Slack incoming-webhook post.
type SlackMessage struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Message    string `mapstructure:"message"`
	// Channel is the channel name without the leading '#'.
	Channel  string `mapstructure:"channel"`
	Username string `mapstructure:"username"`
}

type slackPayload struct {
	Text     string `json:"text"`
	Username string `json:"username"`
	Channel  string `json:"channel,omitempty"`
}

// SendSlack posts m to its webhook. Slack answers 200 with the literal body
// "ok" on success; anything else is a rejection.
func (d *Dispatcher) SendSlack(ctx context.Context, m SlackMessage) Result {
	return d.run(ctx, ChannelSlack, func(ctx context.Context) Result {
		url := strings.TrimSpace(m.WebhookURL)
		switch {
		case url == "":
			return invalid(ChannelSlack, ErrMissingWebhookURL)
		case m.Message == "":
			return invalid(ChannelSlack, ErrMissingMessage)
		}

		payload := slackPayload{
			Text:     m.Message,
			Username: firstNonEmpty(m.Username, d.defaults.Username),
		}
		if ch := strings.TrimSpace(m.Channel); ch != "" {
			payload.Channel = "#" + strings.TrimPrefix(ch, "#")
		}

		resp, err := d.postJSON(ctx, url, payload)
		if err != nil {
			return requestFailure(ChannelSlack, "Slack", err)
		}
		body := string(resp.body)
		if resp.status != http.StatusOK || body != "ok" {
			res := failure(ChannelSlack, KindApplication,
				fmt.Errorf("slack: status %d: %s", resp.status, body),
				fmt.Sprintf("Failed to send Slack message. Status: %d, Response: %s", resp.status, body))
			res.Status = resp.status
			return res
		}
		res := success(ChannelSlack, "Slack message sent successfully!")
		res.Status = resp.status
		return res
	})
}
