package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/depotbot/depotbot/internal/channel"
	"github.com/depotbot/depotbot/internal/router"
	"github.com/depotbot/depotbot/internal/store"
)

// Document stores an uploaded document's metadata.
func (b *Bot) Document(ctx context.Context, event channel.Event, _ router.Classified) error {
	return b.storeUpload(ctx, event, *event.Document, event.Document.Name)
}

// Photo stores an uploaded photo. The platform does not name photos, so
// the name is synthesized from the receive time.
func (b *Bot) Photo(ctx context.Context, event channel.Event, _ router.Classified) error {
	meta := *event.Photo
	name := meta.Name
	if name == "" {
		name = photoName(event.ReceivedAt)
	}
	return b.storeUpload(ctx, event, meta, name)
}

func (b *Bot) storeUpload(ctx context.Context, event channel.Event, meta channel.ObjectMeta, name string) error {
	if limit := int64(b.cfg.MaxFileSizeMB) << 20; limit > 0 && meta.SizeBytes > limit {
		b.reply(ctx, event.ChatID, fmt.Sprintf("⚠️ That file is too large. The limit is %d MB.", b.cfg.MaxFileSizeMB))
		return nil
	}

	_, err := b.store.InsertStoredObject(ctx, store.StoredObject{
		IdentityID: event.Sender.ID,
		Name:       name,
		MediaType:  meta.MediaType,
		SizeBytes:  meta.SizeBytes,
		RemoteRef:  meta.RemoteRef,
		UploadedAt: event.ReceivedAt,
	})
	if err != nil {
		return b.storeFail(ctx, event, "store upload", err)
	}

	b.reply(ctx, event.ChatID, fmt.Sprintf("✅ Stored %s (%s).\nUse /my_files to manage your files.", name, formatSize(meta.SizeBytes)))
	return nil
}

func photoName(receivedAt time.Time) string {
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	return "photo_" + receivedAt.UTC().Format("20060102_150405") + ".jpg"
}
