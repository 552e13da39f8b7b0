package handlers

import (
	"context"

	"github.com/depotbot/depotbot/internal/channel"
	"github.com/depotbot/depotbot/internal/parse"
	"github.com/depotbot/depotbot/internal/router"
	"github.com/depotbot/depotbot/internal/store"
)

// ProfileText applies a free-text profile update (email:/phone: lines).
func (b *Bot) ProfileText(ctx context.Context, event channel.Event, cl router.Classified) error {
	update := parse.Profile(cl.Text)
	if update.Empty() {
		b.reply(ctx, event.ChatID, "❌ I could not read any details. Use the format:\n\nemail: you@example.com\nphone: +1234567890")
		return nil
	}

	if err := b.store.UpdateProfileFields(ctx, event.Sender.ID, update.Email, update.Phone); err != nil {
		return b.storeFail(ctx, event, "profile update", err)
	}
	b.reply(ctx, event.ChatID, "✅ Profile updated.")
	return nil
}

// PollText creates a poll from a question:/option: draft.
func (b *Bot) PollText(ctx context.Context, event channel.Event, cl router.Classified) error {
	draft := parse.Poll(cl.Text)
	if !draft.Valid() {
		b.reply(ctx, event.ChatID, "❌ A poll needs a question and at least two options:\n\nquestion: Your question?\noption: First answer\noption: Second answer")
		return nil
	}

	if _, err := b.store.InsertPoll(ctx, store.Poll{
		IdentityID: event.Sender.ID,
		Question:   draft.Question,
		Options:    draft.Options,
	}); err != nil {
		return b.storeFail(ctx, event, "create poll", err)
	}
	b.reply(ctx, event.ChatID, "✅ Poll created. Use /polls to share and vote.")
	return nil
}

// Unrecognized replies to free text that matches no known format.
func (b *Bot) Unrecognized(ctx context.Context, event channel.Event, _ router.Classified) error {
	b.reply(ctx, event.ChatID, "❓ I didn't understand that. Send /help for the command list.")
	return nil
}

// UnknownCommand replies to a slash command that isn't registered.
func (b *Bot) UnknownCommand(ctx context.Context, event channel.Event, cl router.Classified) error {
	b.reply(ctx, event.ChatID, "❓ Unknown command /"+cl.Command+". Send /help for the command list.")
	return nil
}
