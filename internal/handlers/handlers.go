// Package handlers implements the bot's command, upload, free-text and
// button-press handlers over the store and the outbound gateway.
package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/depotbot/depotbot/internal/channel"
	"github.com/depotbot/depotbot/internal/config"
	"github.com/depotbot/depotbot/internal/router"
	"github.com/depotbot/depotbot/internal/store"
)

const unavailableReply = "The service is temporarily unavailable, please try again."

// Bot holds the dependencies shared by every handler.
type Bot struct {
	logger  *slog.Logger
	store   *store.Store
	gateway channel.Gateway
	cfg     config.BotConfig
}

// New builds the handler set.
func New(log *slog.Logger, st *store.Store, gateway channel.Gateway, cfg config.BotConfig) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{
		logger:  log.With(slog.String("component", "handlers")),
		store:   st,
		gateway: gateway,
		cfg:     cfg,
	}
}

// Routes returns the dispatch table wiring every command, free-text
// route and callback action to its handler.
func (b *Bot) Routes() router.Routes {
	return router.Routes{
		Commands: map[string]router.HandlerFunc{
			"start":          b.Start,
			"help":           b.Help,
			"profile":        b.Profile,
			"update_profile": b.UpdateProfile,
			"upload":         b.Upload,
			"my_files":       b.MyFiles,
			"send_photo":     b.SendPhoto,
			"create_poll":    b.CreatePoll,
			"polls":          b.Polls,
			"view_database":  b.ViewDatabase,
			"admin_stats":    b.AdminStats,
		},
		Callbacks: map[string]router.CallbackFunc{
			"profile":       b.commandCallback(b.Profile),
			"my_files":      b.commandCallback(b.MyFiles),
			"create_poll":   b.commandCallback(b.CreatePoll),
			"view_db":       b.commandCallback(b.ViewDatabase),
			"edit_profile":  b.commandCallback(b.UpdateProfile),
			"send_photo":    b.SendStoredPhoto,
			"download_menu": b.DownloadMenu,
			"delete_menu":   b.DeleteMenu,
			"download":      b.DownloadObject,
			"delete":        b.DeleteObject,
			"vote":          b.Vote,
			"list_users":    b.ListUsers,
			"list_files":    b.ListFiles,
			"list_polls":    b.ListPolls,
		},
		Document:       b.Document,
		Photo:          b.Photo,
		ProfileText:    b.ProfileText,
		PollText:       b.PollText,
		Unrecognized:   b.Unrecognized,
		UnknownCommand: b.UnknownCommand,
	}
}

// commandCallback adapts a command handler so menu buttons can reuse it.
func (b *Bot) commandCallback(handler router.HandlerFunc) router.CallbackFunc {
	return func(ctx context.Context, event channel.Event, _ string) error {
		return handler(ctx, event, router.Classified{})
	}
}

// reply sends a plain text response. A transport failure is logged and
// swallowed: the event still counts as handled.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.replyKeyboard(ctx, chatID, text, nil)
}

func (b *Bot) replyKeyboard(ctx context.Context, chatID int64, text string, keyboard channel.Keyboard) {
	if _, err := b.gateway.SendText(ctx, chatID, text, keyboard); err != nil {
		b.logger.Warn("send reply failed",
			slog.Int64("chat_id", chatID),
			slog.Any("error", err))
	}
}

// storeFail reports a storage failure to the user and returns the
// wrapped error for the dispatcher's log.
func (b *Bot) storeFail(ctx context.Context, event channel.Event, op string, err error) error {
	b.reply(ctx, event.ChatID, unavailableReply)
	return fmt.Errorf("%s: %w", op, err)
}

// mintButton creates an inline button whose token resolves to the given
// action and payload on press.
func (b *Bot) mintButton(ctx context.Context, label, action, payload string) (channel.Button, error) {
	token, err := b.store.PutCallbackToken(ctx, action, payload)
	if err != nil {
		return channel.Button{}, fmt.Errorf("mint %s button: %w", action, err)
	}
	return channel.Button{Label: label, Token: token}, nil
}
