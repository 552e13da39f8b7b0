package handlers

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depotbot/depotbot/db"
	"github.com/depotbot/depotbot/internal/channel"
	"github.com/depotbot/depotbot/internal/config"
	"github.com/depotbot/depotbot/internal/router"
	"github.com/depotbot/depotbot/internal/store"
)

type sentMessage struct {
	ChatID   int64
	Text     string
	Keyboard channel.Keyboard
}

type fakeGateway struct {
	mu        sync.Mutex
	texts     []sentMessage
	documents []string
	photos    []string
}

func (g *fakeGateway) SendText(_ context.Context, chatID int64, text string, keyboard channel.Keyboard) (channel.MessageRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.texts = append(g.texts, sentMessage{ChatID: chatID, Text: text, Keyboard: keyboard})
	return channel.MessageRef(len(g.texts)), nil
}

func (g *fakeGateway) SendDocument(_ context.Context, _ int64, remoteRef, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.documents = append(g.documents, remoteRef)
	return nil
}

func (g *fakeGateway) SendPhoto(_ context.Context, _ int64, remoteRef, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.photos = append(g.photos, remoteRef)
	return nil
}

func (g *fakeGateway) EditMessage(context.Context, int64, channel.MessageRef, string, channel.Keyboard) error {
	return nil
}

func (g *fakeGateway) AnswerButtonPress(context.Context, string, string) error { return nil }

func (g *fakeGateway) lastText() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.texts) == 0 {
		return ""
	}
	return g.texts[len(g.texts)-1].Text
}

func (g *fakeGateway) lastKeyboard() channel.Keyboard {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.texts) == 0 {
		return nil
	}
	return g.texts[len(g.texts)-1].Keyboard
}

type fixture struct {
	store      *store.Store
	gateway    *fakeGateway
	bot        *Bot
	dispatcher *router.Dispatcher
}

func newFixture(t *testing.T, cfg config.BotConfig) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handlers.db")
	migrations, err := fs.Sub(db.MigrationsFS, "migrations")
	require.NoError(t, err)
	require.NoError(t, store.RunMigrate(slog.Default(), path, migrations, "up", nil))

	st, err := store.Open(slog.Default(), config.DatabaseConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	gw := &fakeGateway{}
	bot := New(slog.Default(), st, gw, cfg)
	return &fixture{
		store:      st,
		gateway:    gw,
		bot:        bot,
		dispatcher: router.NewDispatcher(slog.Default(), st, gw, bot.Routes()),
	}
}

func textEvent(id int64, text string) channel.Event {
	return channel.Event{
		ChatID: id,
		Sender: channel.Sender{ID: id, Handle: "user", FirstName: "Test"},
		Text:   text,
	}
}

func (f *fixture) press(t *testing.T, id int64, action, payload string) {
	t.Helper()
	token, err := f.store.PutCallbackToken(context.Background(), action, payload)
	require.NoError(t, err)
	event := channel.Event{
		ChatID: id,
		Sender: channel.Sender{ID: id},
		Press:  &channel.ButtonPress{PressID: "p", Token: token},
	}
	require.NoError(t, f.dispatcher.Dispatch(context.Background(), event))
}

func TestStartRegistersAndUploadsFlow(t *testing.T) {
	f := newFixture(t, config.BotConfig{MaxFileSizeMB: 50})
	ctx := context.Background()

	// /start registers the sender and renders the main menu.
	require.NoError(t, f.dispatcher.Dispatch(ctx, textEvent(42, "/start")))
	identity, err := f.store.GetIdentity(ctx, 42)
	require.NoError(t, err)
	assert.True(t, identity.IsActive)
	assert.Len(t, f.gateway.lastKeyboard(), 4)

	// Uploading a document stores one metadata row.
	upload := channel.Event{
		ChatID: 42,
		Sender: channel.Sender{ID: 42, Handle: "user"},
		Document: &channel.ObjectMeta{
			Name:      "report.pdf",
			MediaType: "application/pdf",
			SizeBytes: 1024,
			RemoteRef: "ref-report",
		},
	}
	require.NoError(t, f.dispatcher.Dispatch(ctx, upload))
	objects, err := f.store.ListStoredObjects(ctx, 42, "")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "report.pdf", objects[0].Name)
	assert.Equal(t, int64(1024), objects[0].SizeBytes)

	// A free-text profile line updates email and leaves phone unset.
	require.NoError(t, f.dispatcher.Dispatch(ctx, textEvent(42, "email: x@y.com")))
	identity, err = f.store.GetIdentity(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "x@y.com", identity.Email)
	assert.Empty(t, identity.Phone)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	f := newFixture(t, config.BotConfig{MaxFileSizeMB: 1})
	ctx := context.Background()

	upload := channel.Event{
		ChatID: 7,
		Sender: channel.Sender{ID: 7},
		Document: &channel.ObjectMeta{
			Name:      "huge.bin",
			MediaType: "application/octet-stream",
			SizeBytes: 2 << 20,
			RemoteRef: "ref-huge",
		},
	}
	require.NoError(t, f.dispatcher.Dispatch(ctx, upload))

	objects, err := f.store.ListStoredObjects(ctx, 7, "")
	require.NoError(t, err)
	assert.Empty(t, objects)
	assert.Contains(t, f.gateway.lastText(), "too large")
}

func TestPhotoNameSynthesized(t *testing.T) {
	f := newFixture(t, config.BotConfig{MaxFileSizeMB: 50})
	ctx := context.Background()

	photo := channel.Event{
		ChatID: 7,
		Sender: channel.Sender{ID: 7},
		Photo: &channel.ObjectMeta{
			MediaType: "image/jpeg",
			SizeBytes: 2048,
			RemoteRef: "ref-photo",
		},
	}
	require.NoError(t, f.dispatcher.Dispatch(ctx, photo))

	objects, err := f.store.ListStoredObjects(ctx, 7, "image/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.True(t, strings.HasPrefix(objects[0].Name, "photo_"), "name = %q", objects[0].Name)
	assert.True(t, strings.HasSuffix(objects[0].Name, ".jpg"), "name = %q", objects[0].Name)
}

func TestAdminStatsGated(t *testing.T) {
	f := newFixture(t, config.BotConfig{AdminIDs: []int64{100}})
	ctx := context.Background()

	require.NoError(t, f.dispatcher.Dispatch(ctx, textEvent(7, "/admin_stats")))
	assert.Contains(t, f.gateway.lastText(), "restricted")

	require.NoError(t, f.dispatcher.Dispatch(ctx, textEvent(100, "/admin_stats")))
	assert.Contains(t, f.gateway.lastText(), "Admin statistics")
}

func TestPollDraftFlow(t *testing.T) {
	f := newFixture(t, config.BotConfig{})
	ctx := context.Background()

	// Too few options is a format error, not a poll.
	require.NoError(t, f.dispatcher.Dispatch(ctx, textEvent(9, "question: Lunch?\noption: Pizza")))
	assert.Contains(t, f.gateway.lastText(), "at least two options")
	polls, err := f.store.ListPolls(ctx)
	require.NoError(t, err)
	assert.Empty(t, polls)

	require.NoError(t, f.dispatcher.Dispatch(ctx, textEvent(9, "question: Lunch?\noption: Pizza\noption: Salad")))
	polls, err = f.store.ListPolls(ctx)
	require.NoError(t, err)
	require.Len(t, polls, 1)
	assert.Equal(t, "Lunch?", polls[0].Question)
	assert.Equal(t, []string{"Pizza", "Salad"}, polls[0].Options)
}

func TestVoteOverwrites(t *testing.T) {
	f := newFixture(t, config.BotConfig{})
	ctx := context.Background()

	require.NoError(t, f.dispatcher.Dispatch(ctx, textEvent(9, "question: Lunch?\noption: Pizza\noption: Salad")))
	polls, err := f.store.ListPolls(ctx)
	require.NoError(t, err)
	require.Len(t, polls, 1)
	pollID := polls[0].ID

	f.press(t, 9, "vote", votePayload(pollID, "Pizza"))
	f.press(t, 9, "vote", votePayload(pollID, "Salad"))

	responses, err := f.store.ListPollResponses(ctx, pollID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "Salad", responses[0].Option)
}

func TestDownloadAndDeleteCallbacks(t *testing.T) {
	f := newFixture(t, config.BotConfig{MaxFileSizeMB: 50})
	ctx := context.Background()

	upload := channel.Event{
		ChatID: 5,
		Sender: channel.Sender{ID: 5},
		Document: &channel.ObjectMeta{
			Name:      "notes.txt",
			MediaType: "text/plain",
			SizeBytes: 10,
			RemoteRef: "ref-notes",
		},
	}
	require.NoError(t, f.dispatcher.Dispatch(ctx, upload))

	f.press(t, 5, "download", "ref-notes")
	assert.Equal(t, []string{"ref-notes"}, f.gateway.documents)

	f.press(t, 5, "delete", "ref-notes")
	objects, err := f.store.ListStoredObjects(ctx, 5, "")
	require.NoError(t, err)
	assert.Empty(t, objects)

	// Deleting again still confirms.
	f.press(t, 5, "delete", "ref-notes")
	assert.Contains(t, f.gateway.lastText(), "deleted")

	// Downloading the removed file reports it gone.
	f.press(t, 5, "download", "ref-notes")
	assert.Contains(t, f.gateway.lastText(), "no longer exists")
}

func TestSendStoredPhotoCallback(t *testing.T) {
	f := newFixture(t, config.BotConfig{MaxFileSizeMB: 50})
	ctx := context.Background()

	photo := channel.Event{
		ChatID: 5,
		Sender: channel.Sender{ID: 5},
		Photo: &channel.ObjectMeta{
			MediaType: "image/jpeg",
			SizeBytes: 100,
			RemoteRef: "ref-pic",
		},
	}
	require.NoError(t, f.dispatcher.Dispatch(ctx, photo))

	f.press(t, 5, "send_photo", "ref-pic")
	assert.Equal(t, []string{"ref-pic"}, f.gateway.photos)
}

func TestProfileLookupForUnknownSender(t *testing.T) {
	f := newFixture(t, config.BotConfig{})
	ctx := context.Background()

	// Handlers normally run after registration; call them directly so
	// the identity row is genuinely missing.
	event := channel.Event{ChatID: 8, Sender: channel.Sender{ID: 8}}

	require.NoError(t, f.bot.Profile(ctx, event, router.Classified{}))
	assert.Contains(t, f.gateway.lastText(), "could not find your registration")
	assert.NotContains(t, f.gateway.lastText(), "temporarily unavailable")

	require.NoError(t, f.bot.Start(ctx, event, router.Classified{}))
	assert.Contains(t, f.gateway.lastText(), "could not find your registration")
}

func TestHelpUsesPlainHyphenBullets(t *testing.T) {
	f := newFixture(t, config.BotConfig{})
	require.NoError(t, f.dispatcher.Dispatch(context.Background(), textEvent(3, "/help")))

	help := f.gateway.lastText()
	assert.Contains(t, help, "/start - main menu")
	assert.NotContains(t, help, "—")
}

func TestUnknownCommandReply(t *testing.T) {
	f := newFixture(t, config.BotConfig{})
	require.NoError(t, f.dispatcher.Dispatch(context.Background(), textEvent(3, "/bogus")))
	assert.Contains(t, f.gateway.lastText(), "Unknown command /bogus")
}
