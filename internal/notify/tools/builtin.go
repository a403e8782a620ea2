package tools

import (
	"context"

	"notifykit/internal/notify"
)

type builtin struct {
	def  Definition
	call handler
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func requiredStr(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc, "minLength": 1}
}

func withDefault(p map[string]any, def any) map[string]any {
	p["default"] = def
	return p
}

func object(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func builtins(def notify.Defaults) []builtin {
	return []builtin{
		{
			def: Definition{
				Name:        SendDiscord,
				Description: "Send a message to a Discord channel using a webhook URL.",
				Parameters: object([]string{"webhook_url", "message"}, map[string]any{
					"webhook_url": requiredStr("Discord webhook URL"),
					"message":     requiredStr("Message content to send"),
					"username":    withDefault(str("Custom username for the message (optional)"), def.Username),
					"avatar_url":  str("Avatar URL for the message (optional)"),
				}),
			},
			call: func(ctx context.Context, d *notify.Dispatcher, args map[string]any) (notify.Result, error) {
				var m notify.DiscordMessage
				if err := decode(args, &m); err != nil {
					return notify.Result{}, err
				}
				return d.SendDiscord(ctx, m), nil
			},
		},
		{
			def: Definition{
				Name:        SendSlack,
				Description: "Send a message to a Slack channel using a webhook URL.",
				Parameters: object([]string{"webhook_url", "message"}, map[string]any{
					"webhook_url": requiredStr("Slack webhook URL"),
					"message":     requiredStr("Message content to send"),
					"channel":     str("Channel name (optional, without #)"),
					"username":    withDefault(str("Custom username for the message (optional)"), def.Username),
				}),
			},
			call: func(ctx context.Context, d *notify.Dispatcher, args map[string]any) (notify.Result, error) {
				var m notify.SlackMessage
				if err := decode(args, &m); err != nil {
					return notify.Result{}, err
				}
				return d.SendSlack(ctx, m), nil
			},
		},
		{
			def: Definition{
				Name:        SendTelegram,
				Description: "Send a message via Telegram bot.",
				Parameters: object([]string{"bot_token", "chat_id", "message"}, map[string]any{
					"bot_token": requiredStr("Telegram bot token"),
					"chat_id": map[string]any{
						"type":        []string{"string", "integer"},
						"description": "Chat ID or username (with @)",
						"minLength":   1,
					},
					"message": requiredStr("Message content to send"),
				}),
			},
			call: func(ctx context.Context, d *notify.Dispatcher, args map[string]any) (notify.Result, error) {
				var m notify.TelegramMessage
				if err := decode(args, &m); err != nil {
					return notify.Result{}, err
				}
				return d.SendTelegram(ctx, m), nil
			},
		},
		{
			def: Definition{
				Name:        SendConsole,
				Description: "Display a message in the console (for testing purposes).",
				Parameters: object([]string{"message"}, map[string]any{
					"message": str("Message content to display"),
					"title":   withDefault(str("Message title (optional)"), def.ConsoleTitle),
				}),
			},
			call: func(ctx context.Context, d *notify.Dispatcher, args map[string]any) (notify.Result, error) {
				var m notify.ConsoleMessage
				if err := decode(args, &m); err != nil {
					return notify.Result{}, err
				}
				return d.SendConsole(ctx, m), nil
			},
		},
		{
			def: Definition{
				Name:        SaveToFile,
				Description: "Save a message to a text file.",
				Parameters: object([]string{"message"}, map[string]any{
					"message":  str("Message content to save"),
					"filename": withDefault(str("Filename to save the message to"), def.Filename),
					"append": map[string]any{
						"type":        "boolean",
						"description": "Append to existing file (default: false)",
						"default":     false,
					},
				}),
			},
			call: func(ctx context.Context, d *notify.Dispatcher, args map[string]any) (notify.Result, error) {
				var m notify.FileMessage
				if err := decode(args, &m); err != nil {
					return notify.Result{}, err
				}
				return d.SaveToFile(ctx, m), nil
			},
		},
	}
}
