package main

import (
	"context"

	"github.com/spf13/cobra"

	"notifykit/internal/app"
	"notifykit/internal/notify"
)

const originCLI = "cli"

func newSendCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one notification",
	}
	cmd.AddCommand(
		newSendDiscordCommand(ctx),
		newSendSlackCommand(ctx),
		newSendTelegramCommand(ctx),
		newSendConsoleCommand(ctx),
		newSendFileCommand(ctx),
	)
	return cmd
}

// sendWith runs send against the app's dispatcher and prints the result.
func sendWith(ctx *commandContext, cmd *cobra.Command, send func(context.Context, *notify.Dispatcher) notify.Result) error {
	return ctx.withApp(cmd, func(a *app.App) error {
		res := send(notify.WithOrigin(cmd.Context(), originCLI), a.Dispatcher())
		return printResult(cmd, res)
	})
}

func newSendDiscordCommand(ctx *commandContext) *cobra.Command {
	var m notify.DiscordMessage
	cmd := &cobra.Command{
		Use:   "discord",
		Short: "Post to a Discord webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendWith(ctx, cmd, func(c context.Context, d *notify.Dispatcher) notify.Result {
				return d.SendDiscord(c, m)
			})
		},
	}
	cmd.Flags().StringVar(&m.WebhookURL, "webhook-url", "", "Discord webhook URL")
	cmd.Flags().StringVarP(&m.Message, "message", "m", "", "Message content")
	cmd.Flags().StringVar(&m.Username, "username", "", "Display name override")
	cmd.Flags().StringVar(&m.AvatarURL, "avatar-url", "", "Avatar image URL")
	_ = cmd.MarkFlagRequired("webhook-url")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newSendSlackCommand(ctx *commandContext) *cobra.Command {
	var m notify.SlackMessage
	cmd := &cobra.Command{
		Use:   "slack",
		Short: "Post to a Slack incoming webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendWith(ctx, cmd, func(c context.Context, d *notify.Dispatcher) notify.Result {
				return d.SendSlack(c, m)
			})
		},
	}
	cmd.Flags().StringVar(&m.WebhookURL, "webhook-url", "", "Slack webhook URL")
	cmd.Flags().StringVarP(&m.Message, "message", "m", "", "Message text")
	cmd.Flags().StringVar(&m.Channel, "channel", "", "Channel name without '#'")
	cmd.Flags().StringVar(&m.Username, "username", "", "Display name override")
	_ = cmd.MarkFlagRequired("webhook-url")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newSendTelegramCommand(ctx *commandContext) *cobra.Command {
	var m notify.TelegramMessage
	cmd := &cobra.Command{
		Use:   "telegram",
		Short: "Send a Telegram bot message (HTML parse mode)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendWith(ctx, cmd, func(c context.Context, d *notify.Dispatcher) notify.Result {
				return d.SendTelegram(c, m)
			})
		},
	}
	cmd.Flags().StringVar(&m.BotToken, "bot-token", "", "Bot API token")
	cmd.Flags().StringVar(&m.ChatID, "chat-id", "", "Chat id or @channel username")
	cmd.Flags().StringVarP(&m.Message, "message", "m", "", "Message text")
	_ = cmd.MarkFlagRequired("bot-token")
	_ = cmd.MarkFlagRequired("chat-id")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newSendConsoleCommand(ctx *commandContext) *cobra.Command {
	var m notify.ConsoleMessage
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Print a framed message to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendWith(ctx, cmd, func(c context.Context, d *notify.Dispatcher) notify.Result {
				return d.SendConsole(c, m)
			})
		},
	}
	cmd.Flags().StringVarP(&m.Message, "message", "m", "", "Message text")
	cmd.Flags().StringVar(&m.Title, "title", "", "Frame title")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newSendFileCommand(ctx *commandContext) *cobra.Command {
	var m notify.FileMessage
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Write a message line to a local file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendWith(ctx, cmd, func(c context.Context, d *notify.Dispatcher) notify.Result {
				return d.SaveToFile(c, m)
			})
		},
	}
	cmd.Flags().StringVarP(&m.Message, "message", "m", "", "Message text")
	cmd.Flags().StringVarP(&m.Filename, "filename", "f", "", "Target file")
	cmd.Flags().BoolVarP(&m.Append, "append", "a", false, "Append instead of overwrite")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}
