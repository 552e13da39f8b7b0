package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/depotbot/depotbot/internal/channel"
	"github.com/depotbot/depotbot/internal/store"
)

// SendStoredPhoto resends a stored photo by its remote reference.
func (b *Bot) SendStoredPhoto(ctx context.Context, event channel.Event, remoteRef string) error {
	if err := b.gateway.SendPhoto(ctx, event.ChatID, remoteRef, "📸 From your gallery."); err != nil {
		b.logger.Warn("send stored photo failed",
			slog.Int64("chat_id", event.ChatID),
			slog.Any("error", err))
		b.reply(ctx, event.ChatID, "❌ Could not send that photo. It may no longer be available.")
	}
	return nil
}

// DownloadMenu lists the sender's files with a download button each.
func (b *Bot) DownloadMenu(ctx context.Context, event channel.Event, _ string) error {
	return b.objectMenu(ctx, event, "📥 Pick a file to download:", "download")
}

// DeleteMenu lists the sender's files with a delete button each.
func (b *Bot) DeleteMenu(ctx context.Context, event channel.Event, _ string) error {
	return b.objectMenu(ctx, event, "🗑 Pick a file to delete:", "delete")
}

func (b *Bot) objectMenu(ctx context.Context, event channel.Event, prompt, action string) error {
	objects, err := b.store.ListStoredObjects(ctx, event.Sender.ID, "")
	if err != nil {
		return b.storeFail(ctx, event, action+" menu: list objects", err)
	}
	if len(objects) == 0 {
		b.reply(ctx, event.ChatID, "📭 You have no stored files.")
		return nil
	}

	var keyboard channel.Keyboard
	for i, obj := range objects {
		if i >= galleryLimit {
			break
		}
		button, err := b.mintButton(ctx, obj.Name, action, obj.RemoteRef)
		if err != nil {
			return b.storeFail(ctx, event, action+" menu: build keyboard", err)
		}
		keyboard = append(keyboard, []channel.Button{button})
	}
	b.renderMenu(ctx, event, prompt, keyboard)
	return nil
}

// renderMenu edits the pressed message in place when the menu was
// opened from a button, and falls back to a fresh message otherwise.
func (b *Bot) renderMenu(ctx context.Context, event channel.Event, text string, keyboard channel.Keyboard) {
	if event.Press != nil && event.Press.MessageID != 0 {
		ref := channel.MessageRef(event.Press.MessageID)
		if err := b.gateway.EditMessage(ctx, event.ChatID, ref, text, keyboard); err == nil {
			return
		}
	}
	b.replyKeyboard(ctx, event.ChatID, text, keyboard)
}

// DownloadObject resends a stored object as a document.
func (b *Bot) DownloadObject(ctx context.Context, event channel.Event, remoteRef string) error {
	obj, err := b.store.GetStoredObjectByRemoteRef(ctx, remoteRef)
	if errors.Is(err, store.ErrNotFound) {
		b.reply(ctx, event.ChatID, "❌ That file no longer exists.")
		return nil
	}
	if err != nil {
		return b.storeFail(ctx, event, "download: get object", err)
	}

	if err := b.gateway.SendDocument(ctx, event.ChatID, obj.RemoteRef, "📥 "+obj.Name); err != nil {
		b.logger.Warn("send document failed",
			slog.Int64("chat_id", event.ChatID),
			slog.Any("error", err))
		b.reply(ctx, event.ChatID, "❌ Could not send that file. It may no longer be available.")
	}
	return nil
}

// DeleteObject removes a stored object. Deleting an already-deleted
// reference still confirms, matching the store's idempotent delete.
func (b *Bot) DeleteObject(ctx context.Context, event channel.Event, remoteRef string) error {
	if err := b.store.DeleteStoredObjectByRemoteRef(ctx, remoteRef); err != nil {
		return b.storeFail(ctx, event, "delete object", err)
	}
	b.reply(ctx, event.ChatID, "🗑 File deleted.")
	return nil
}

// Vote records a poll response. Re-voting overwrites the previous answer.
func (b *Bot) Vote(ctx context.Context, event channel.Event, payload string) error {
	pollID, option, err := parseVotePayload(payload)
	if err != nil {
		return err
	}

	err = b.store.InsertPollResponse(ctx, pollID, event.Sender.ID, option)
	if errors.Is(err, store.ErrNotFound) {
		b.reply(ctx, event.ChatID, "❌ That poll no longer exists.")
		return nil
	}
	if err != nil {
		return b.storeFail(ctx, event, "record vote", err)
	}
	b.reply(ctx, event.ChatID, fmt.Sprintf("✅ Vote recorded: %s", option))
	return nil
}

func parseVotePayload(payload string) (int64, string, error) {
	raw, option, ok := strings.Cut(payload, "|")
	if !ok {
		return 0, "", fmt.Errorf("malformed vote payload %q", payload)
	}
	pollID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed vote payload %q: %w", payload, err)
	}
	return pollID, option, nil
}

// ListUsers renders the registered identities.
func (b *Bot) ListUsers(ctx context.Context, event channel.Event, _ string) error {
	identities, err := b.store.ListIdentities(ctx)
	if err != nil {
		return b.storeFail(ctx, event, "list users", err)
	}
	if len(identities) == 0 {
		b.reply(ctx, event.ChatID, "📭 No registered users.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("👥 Users:\n\n")
	for i, identity := range identities {
		status := "active"
		if !identity.IsActive {
			status = "inactive"
		}
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, identity.DisplayName(), status)
	}
	b.reply(ctx, event.ChatID, sb.String())
	return nil
}

// ListFiles renders every stored object across identities.
func (b *Bot) ListFiles(ctx context.Context, event channel.Event, _ string) error {
	objects, err := b.store.ListAllStoredObjects(ctx)
	if err != nil {
		return b.storeFail(ctx, event, "list files", err)
	}
	if len(objects) == 0 {
		b.reply(ctx, event.ChatID, "📭 No stored files.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("📁 Files:\n\n")
	for i, obj := range objects {
		fmt.Fprintf(&sb, "%d. %s (%s, %s)\n", i+1, obj.Name, obj.MediaType, formatSize(obj.SizeBytes))
	}
	b.reply(ctx, event.ChatID, sb.String())
	return nil
}

// ListPolls renders every poll with its vote count.
func (b *Bot) ListPolls(ctx context.Context, event channel.Event, _ string) error {
	polls, err := b.store.ListPolls(ctx)
	if err != nil {
		return b.storeFail(ctx, event, "list polls", err)
	}
	if len(polls) == 0 {
		b.reply(ctx, event.ChatID, "📭 No polls.")
		return nil
	}

	var sb strings.Builder
	sb.WriteString("📊 Polls:\n\n")
	for i, poll := range polls {
		responses, err := b.store.ListPollResponses(ctx, poll.ID)
		if err != nil {
			return b.storeFail(ctx, event, "list polls: responses", err)
		}
		fmt.Fprintf(&sb, "%d. %s - %d vote(s)\n", i+1, poll.Question, len(responses))
	}
	b.reply(ctx, event.ChatID, sb.String())
	return nil
}
