// Package telegram adapts the Telegram Bot API to the channel event
// model and gateway.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/depotbot/depotbot/internal/channel"
	"github.com/depotbot/depotbot/internal/config"
)

// Adapter implements channel.Source and channel.Gateway over a single
// bot account. Outbound calls share a rate limiter so bursts of
// handler replies stay under the platform's send limits.
type Adapter struct {
	bot         *tgbotapi.BotAPI
	logger      *slog.Logger
	limiter     *rate.Limiter
	pollTimeout int
}

// New connects to the Bot API with the configured token.
func New(log *slog.Logger, cfg config.TelegramConfig) (*Adapter, error) {
	if log == nil {
		log = slog.Default()
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	perSecond := cfg.SendRatePerSecond
	if perSecond <= 0 {
		perSecond = config.DefaultSendRatePerSec
	}
	pollTimeout := cfg.PollTimeoutSeconds
	if pollTimeout <= 0 {
		pollTimeout = config.DefaultPollTimeout
	}

	return &Adapter{
		bot:         bot,
		logger:      log.With(slog.String("component", "telegram")),
		limiter:     rate.NewLimiter(rate.Limit(perSecond), perSecond),
		pollTimeout: pollTimeout,
	}, nil
}

// Username returns the bot account's username.
func (a *Adapter) Username() string {
	return a.bot.Self.UserName
}

// FetchEvents long-polls for the next batch of updates starting at
// cursor and returns the mapped events plus the cursor to resume from.
func (a *Adapter) FetchEvents(ctx context.Context, cursor int) ([]channel.Event, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, cursor, err
	}

	updateConfig := tgbotapi.NewUpdate(cursor)
	updateConfig.Timeout = a.pollTimeout

	// The Bot API client has no context support, so the long poll runs
	// in a goroutine and is abandoned on cancel. The cursor does not
	// advance, so any updates the abandoned request carried are
	// re-fetched on the next start.
	type pollResult struct {
		updates []tgbotapi.Update
		err     error
	}
	result := make(chan pollResult, 1)
	go func() {
		updates, err := a.bot.GetUpdates(updateConfig)
		result <- pollResult{updates: updates, err: err}
	}()

	var updates []tgbotapi.Update
	select {
	case <-ctx.Done():
		return nil, cursor, ctx.Err()
	case res := <-result:
		if res.err != nil {
			return nil, cursor, fmt.Errorf("get updates: %w", res.err)
		}
		updates = res.updates
	}

	next := cursor
	events := make([]channel.Event, 0, len(updates))
	for _, update := range updates {
		if update.UpdateID >= next {
			next = update.UpdateID + 1
		}
		if event, ok := mapUpdate(update); ok {
			events = append(events, event)
		}
	}
	return events, next, nil
}

func mapUpdate(update tgbotapi.Update) (channel.Event, bool) {
	if update.CallbackQuery != nil {
		return mapCallback(update.CallbackQuery)
	}
	if update.Message != nil {
		return mapMessage(update.Message)
	}
	return channel.Event{}, false
}

func mapMessage(msg *tgbotapi.Message) (channel.Event, bool) {
	event := channel.Event{
		MessageID:  msg.MessageID,
		Sender:     mapSender(msg.From),
		Text:       msg.Text,
		ReceivedAt: time.Unix(int64(msg.Date), 0).UTC(),
	}
	if msg.Chat != nil {
		event.ChatID = msg.Chat.ID
	}

	switch {
	case msg.Document != nil:
		event.Document = &channel.ObjectMeta{
			Name:      msg.Document.FileName,
			MediaType: msg.Document.MimeType,
			SizeBytes: int64(msg.Document.FileSize),
			RemoteRef: msg.Document.FileID,
		}
	case len(msg.Photo) > 0:
		photo := pickPhoto(msg.Photo)
		// Telegram supplies no name for photos; the upload handler
		// synthesizes one from the timestamp.
		event.Photo = &channel.ObjectMeta{
			MediaType: "image/jpeg",
			SizeBytes: int64(photo.FileSize),
			RemoteRef: photo.FileID,
		}
	case msg.Text == "":
		return channel.Event{}, false
	}
	return event, true
}

func mapCallback(query *tgbotapi.CallbackQuery) (channel.Event, bool) {
	event := channel.Event{
		Sender: mapSender(query.From),
		Press: &channel.ButtonPress{
			PressID: query.ID,
			Token:   query.Data,
		},
		ReceivedAt: time.Now().UTC(),
	}
	if query.Message != nil {
		event.Press.MessageID = query.Message.MessageID
		if query.Message.Chat != nil {
			event.ChatID = query.Message.Chat.ID
		}
	}
	return event, true
}

func mapSender(user *tgbotapi.User) channel.Sender {
	if user == nil {
		return channel.Sender{}
	}
	return channel.Sender{
		ID:        user.ID,
		Handle:    user.UserName,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}

// pickPhoto chooses the largest rendition of a photo message.
func pickPhoto(items []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := items[0]
	for _, item := range items[1:] {
		if item.FileSize > best.FileSize {
			best = item
			continue
		}
		if item.Width*item.Height > best.Width*best.Height {
			best = item
		}
	}
	return best
}

// SendText sends a text message, optionally with an inline keyboard,
// and returns the sent message's reference.
func (a *Adapter) SendText(ctx context.Context, chatID int64, text string, keyboard channel.Keyboard) (channel.MessageRef, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if markup, ok := mapKeyboard(keyboard); ok {
		msg.ReplyMarkup = markup
	}
	sent, err := a.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send text: %w", err)
	}
	return channel.MessageRef(sent.MessageID), nil
}

// SendDocument re-sends a previously uploaded document by its remote
// reference. No bytes pass through the bot.
func (a *Adapter) SendDocument(ctx context.Context, chatID int64, remoteRef, caption string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(remoteRef))
	doc.Caption = caption
	if _, err := a.bot.Send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// SendPhoto re-sends a previously uploaded photo by its remote
// reference.
func (a *Adapter) SendPhoto(ctx context.Context, chatID int64, remoteRef, caption string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(remoteRef))
	photo.Caption = caption
	if _, err := a.bot.Send(photo); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

// EditMessage replaces the text and keyboard of an earlier message.
func (a *Adapter) EditMessage(ctx context.Context, chatID int64, ref channel.MessageRef, text string, keyboard channel.Keyboard) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(chatID, int(ref), text)
	if markup, ok := mapKeyboard(keyboard); ok {
		edit.ReplyMarkup = &markup
	}
	if _, err := a.bot.Send(edit); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// AnswerButtonPress acknowledges a button press, optionally with a
// short notification text.
func (a *Adapter) AnswerButtonPress(ctx context.Context, pressID, text string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	callback := tgbotapi.NewCallback(pressID, text)
	if _, err := a.bot.Request(callback); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func mapKeyboard(keyboard channel.Keyboard) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(keyboard) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, button := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(button.Label, button.Token))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
