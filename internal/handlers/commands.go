package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/depotbot/depotbot/internal/channel"
	"github.com/depotbot/depotbot/internal/router"
	"github.com/depotbot/depotbot/internal/store"
)

// notRegisteredReply answers a lookup for a sender the store has no row
// for. Registration happens on any contact, so this normally means the
// database was reset mid-conversation.
const notRegisteredReply = "❓ I could not find your registration. Send any message and try again."

// Start greets the sender and renders the main menu.
func (b *Bot) Start(ctx context.Context, event channel.Event, _ router.Classified) error {
	identity, err := b.store.GetIdentity(ctx, event.Sender.ID)
	if errors.Is(err, store.ErrNotFound) {
		b.reply(ctx, event.ChatID, notRegisteredReply)
		return nil
	}
	if err != nil {
		return b.storeFail(ctx, event, "start: get identity", err)
	}

	keyboard, err := b.mainMenu(ctx)
	if err != nil {
		return b.storeFail(ctx, event, "start: build menu", err)
	}

	text := fmt.Sprintf("👋 Hello %s!\n\nI can keep your profile, files, photos and polls. Pick an option below or send /help for the command list.", identity.DisplayName())
	b.replyKeyboard(ctx, event.ChatID, text, keyboard)
	return nil
}

func (b *Bot) mainMenu(ctx context.Context) (channel.Keyboard, error) {
	var keyboard channel.Keyboard
	rows := []struct {
		label  string
		action string
	}{
		{"📝 My profile", "profile"},
		{"📁 My files", "my_files"},
		{"📊 Create a poll", "create_poll"},
		{"🗄 View database", "view_db"},
	}
	for _, row := range rows {
		button, err := b.mintButton(ctx, row.label, row.action, "")
		if err != nil {
			return nil, err
		}
		keyboard = append(keyboard, []channel.Button{button})
	}
	return keyboard, nil
}

// Help lists the available commands.
func (b *Bot) Help(ctx context.Context, event channel.Event, _ router.Classified) error {
	b.reply(ctx, event.ChatID, strings.Join([]string{
		"📖 Commands:",
		"",
		"/start - main menu",
		"/profile - show your profile",
		"/update_profile - update email or phone",
		"/upload - store a file or photo",
		"/my_files - list your files",
		"/send_photo - resend a stored photo",
		"/create_poll - create a poll",
		"/polls - list polls and vote",
		"/view_database - database overview",
		"",
		"You can also just send a document or photo to store it.",
	}, "\n"))
	return nil
}

// Profile shows the sender's stored profile with an edit button.
func (b *Bot) Profile(ctx context.Context, event channel.Event, _ router.Classified) error {
	identity, err := b.store.GetIdentity(ctx, event.Sender.ID)
	if errors.Is(err, store.ErrNotFound) {
		b.reply(ctx, event.ChatID, notRegisteredReply)
		return nil
	}
	if err != nil {
		return b.storeFail(ctx, event, "profile: get identity", err)
	}

	edit, err := b.mintButton(ctx, "✏️ Edit profile", "edit_profile", "")
	if err != nil {
		return b.storeFail(ctx, event, "profile: build keyboard", err)
	}

	text := fmt.Sprintf("📝 Your profile:\n\nName: %s\nEmail: %s\nPhone: %s\nRegistered: %s",
		identity.DisplayName(),
		orNotSet(identity.Email),
		orNotSet(identity.Phone),
		identity.RegisteredAt.Format("2006-01-02"))
	b.replyKeyboard(ctx, event.ChatID, text, channel.Keyboard{{edit}})
	return nil
}

// UpdateProfile prompts for the profile key/value format.
func (b *Bot) UpdateProfile(ctx context.Context, event channel.Event, _ router.Classified) error {
	b.reply(ctx, event.ChatID, "✏️ Send your new details, one per line:\n\nemail: you@example.com\nphone: +1234567890\n\nYou can send either line or both.")
	return nil
}

// Upload prompts the sender to send a document or photo.
func (b *Bot) Upload(ctx context.Context, event channel.Event, _ router.Classified) error {
	b.reply(ctx, event.ChatID, fmt.Sprintf("📤 Send me a document or photo and I will store it (up to %d MB).", b.cfg.MaxFileSizeMB))
	return nil
}

// MyFiles lists the sender's stored objects with download/delete menus.
func (b *Bot) MyFiles(ctx context.Context, event channel.Event, _ router.Classified) error {
	objects, err := b.store.ListStoredObjects(ctx, event.Sender.ID, "")
	if err != nil {
		return b.storeFail(ctx, event, "my_files: list objects", err)
	}
	if len(objects) == 0 {
		b.reply(ctx, event.ChatID, "📭 You have no stored files yet. Send me a document or photo to store one.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("📁 Your files:\n\n")
	for i, obj := range objects {
		fmt.Fprintf(&sb, "%d. %s (%s, %s)\n", i+1, obj.Name, obj.MediaType, formatSize(obj.SizeBytes))
	}

	download, err := b.mintButton(ctx, "📥 Download a file", "download_menu", "")
	if err != nil {
		return b.storeFail(ctx, event, "my_files: build keyboard", err)
	}
	remove, err := b.mintButton(ctx, "🗑 Delete a file", "delete_menu", "")
	if err != nil {
		return b.storeFail(ctx, event, "my_files: build keyboard", err)
	}
	b.replyKeyboard(ctx, event.ChatID, sb.String(), channel.Keyboard{{download}, {remove}})
	return nil
}

// SendPhoto renders a gallery of the sender's stored photos.
func (b *Bot) SendPhoto(ctx context.Context, event channel.Event, _ router.Classified) error {
	photos, err := b.store.ListStoredObjects(ctx, event.Sender.ID, "image/")
	if err != nil {
		return b.storeFail(ctx, event, "send_photo: list photos", err)
	}
	if len(photos) == 0 {
		b.reply(ctx, event.ChatID, "📭 You have no stored photos yet.")
		return nil
	}

	var keyboard channel.Keyboard
	for i, photo := range photos {
		if i >= galleryLimit {
			break
		}
		button, err := b.mintButton(ctx, fmt.Sprintf("📸 %s", photo.Name), "send_photo", photo.RemoteRef)
		if err != nil {
			return b.storeFail(ctx, event, "send_photo: build keyboard", err)
		}
		keyboard = append(keyboard, []channel.Button{button})
	}
	b.replyKeyboard(ctx, event.ChatID, "📸 Pick a photo to resend:", keyboard)
	return nil
}

// CreatePoll prompts for the poll draft format.
func (b *Bot) CreatePoll(ctx context.Context, event channel.Event, _ router.Classified) error {
	b.reply(ctx, event.ChatID, "📊 Send your poll in this format:\n\nquestion: Your question?\noption: First answer\noption: Second answer\n\nAt least two options are required.")
	return nil
}

// Polls lists the existing polls with a vote button per option.
func (b *Bot) Polls(ctx context.Context, event channel.Event, _ router.Classified) error {
	polls, err := b.store.ListPolls(ctx)
	if err != nil {
		return b.storeFail(ctx, event, "polls: list", err)
	}
	if len(polls) == 0 {
		b.reply(ctx, event.ChatID, "📭 No polls yet. Use /create_poll to start one.")
		return nil
	}

	for _, poll := range polls {
		responses, err := b.store.ListPollResponses(ctx, poll.ID)
		if err != nil {
			return b.storeFail(ctx, event, "polls: list responses", err)
		}

		var keyboard channel.Keyboard
		for _, option := range poll.Options {
			button, err := b.mintButton(ctx, option, "vote", votePayload(poll.ID, option))
			if err != nil {
				return b.storeFail(ctx, event, "polls: build keyboard", err)
			}
			keyboard = append(keyboard, []channel.Button{button})
		}
		text := fmt.Sprintf("📊 %s\n%d vote(s) so far.", poll.Question, len(responses))
		b.replyKeyboard(ctx, event.ChatID, text, keyboard)
	}
	return nil
}

// ViewDatabase shows aggregate counts with drill-down buttons.
func (b *Bot) ViewDatabase(ctx context.Context, event channel.Event, _ router.Classified) error {
	stats, err := b.store.Stats(ctx)
	if err != nil {
		return b.storeFail(ctx, event, "view_database: stats", err)
	}

	var keyboard channel.Keyboard
	rows := []struct {
		label  string
		action string
	}{
		{"👥 List users", "list_users"},
		{"📁 List files", "list_files"},
		{"📊 List polls", "list_polls"},
	}
	for _, row := range rows {
		button, err := b.mintButton(ctx, row.label, row.action, "")
		if err != nil {
			return b.storeFail(ctx, event, "view_database: build keyboard", err)
		}
		keyboard = append(keyboard, []channel.Button{button})
	}

	text := fmt.Sprintf("🗄 Database overview:\n\nUsers: %d\nFiles: %d\nPolls: %d",
		stats.IdentityCount, stats.ObjectCount, stats.PollCount)
	b.replyKeyboard(ctx, event.ChatID, text, keyboard)
	return nil
}

// AdminStats shows the full statistics. Only identities on the
// configured admin allow-list may use it.
func (b *Bot) AdminStats(ctx context.Context, event channel.Event, _ router.Classified) error {
	if !b.cfg.IsAdmin(event.Sender.ID) {
		b.reply(ctx, event.ChatID, "⛔ This command is restricted to administrators.")
		return nil
	}

	stats, err := b.store.Stats(ctx)
	if err != nil {
		return b.storeFail(ctx, event, "admin_stats: stats", err)
	}

	b.reply(ctx, event.ChatID, fmt.Sprintf(
		"🔧 Admin statistics:\n\nUsers: %d (%d active)\nFiles: %d (%d today)\nPolls: %d (%d active)\nStorage: %s",
		stats.IdentityCount, stats.ActiveIdentityCount,
		stats.ObjectCount, stats.ObjectsCreatedToday,
		stats.PollCount, stats.ActivePollCount,
		formatSize(stats.StorageSizeBytes)))
	return nil
}

// galleryLimit caps the buttons rendered in the photo gallery and the
// download/delete menus.
const galleryLimit = 10

func votePayload(pollID int64, option string) string {
	return fmt.Sprintf("%d|%s", pollID, option)
}

func orNotSet(value string) string {
	if value == "" {
		return "not set"
	}
	return value
}

func formatSize(bytes int64) string {
	switch {
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(bytes)/(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
