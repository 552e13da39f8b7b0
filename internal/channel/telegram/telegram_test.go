package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/depotbot/depotbot/internal/channel"
)

func TestMapMessageText(t *testing.T) {
	t.Parallel()

	msg := &tgbotapi.Message{
		MessageID: 12,
		Text:      "/start",
		From:      &tgbotapi.User{ID: 42, UserName: "alice", FirstName: "Alice"},
		Chat:      &tgbotapi.Chat{ID: 42},
		Date:      1700000000,
	}
	event, ok := mapMessage(msg)
	if !ok {
		t.Fatal("expected event")
	}
	if event.Text != "/start" || event.ChatID != 42 || event.Sender.ID != 42 {
		t.Errorf("unexpected event: %+v", event)
	}
	if event.Document != nil || event.Photo != nil || event.Press != nil {
		t.Errorf("text event should carry only text: %+v", event)
	}
}

func TestMapMessageDocument(t *testing.T) {
	t.Parallel()

	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: 1},
		Chat: &tgbotapi.Chat{ID: 1},
		Document: &tgbotapi.Document{
			FileID:   "doc-ref",
			FileName: "report.pdf",
			MimeType: "application/pdf",
			FileSize: 1024,
		},
	}
	event, ok := mapMessage(msg)
	if !ok {
		t.Fatal("expected event")
	}
	if event.Document == nil {
		t.Fatal("expected document meta")
	}
	if event.Document.Name != "report.pdf" || event.Document.SizeBytes != 1024 || event.Document.RemoteRef != "doc-ref" {
		t.Errorf("unexpected meta: %+v", event.Document)
	}
}

func TestMapMessagePhotoPicksLargest(t *testing.T) {
	t.Parallel()

	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: 1},
		Chat: &tgbotapi.Chat{ID: 1},
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", FileSize: 100, Width: 90, Height: 90},
			{FileID: "large", FileSize: 9000, Width: 800, Height: 600},
			{FileID: "medium", FileSize: 1000, Width: 320, Height: 240},
		},
	}
	event, ok := mapMessage(msg)
	if !ok {
		t.Fatal("expected event")
	}
	if event.Photo == nil {
		t.Fatal("expected photo meta")
	}
	if event.Photo.RemoteRef != "large" || event.Photo.MediaType != "image/jpeg" {
		t.Errorf("unexpected meta: %+v", event.Photo)
	}
	if event.Photo.Name != "" {
		t.Errorf("photo name should be left for the handler to synthesize, got %q", event.Photo.Name)
	}
}

func TestMapMessageEmptyDropped(t *testing.T) {
	t.Parallel()

	if _, ok := mapMessage(&tgbotapi.Message{From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 1}}); ok {
		t.Error("empty message should be dropped")
	}
}

func TestMapCallback(t *testing.T) {
	t.Parallel()

	query := &tgbotapi.CallbackQuery{
		ID:   "press-1",
		Data: "opaque-token",
		From: &tgbotapi.User{ID: 7, FirstName: "Bob"},
		Message: &tgbotapi.Message{
			MessageID: 33,
			Chat:      &tgbotapi.Chat{ID: 7},
		},
	}
	event, ok := mapCallback(query)
	if !ok {
		t.Fatal("expected event")
	}
	if event.Press == nil || event.Press.Token != "opaque-token" || event.Press.PressID != "press-1" {
		t.Errorf("unexpected press: %+v", event.Press)
	}
	if event.ChatID != 7 || event.Press.MessageID != 33 {
		t.Errorf("unexpected routing fields: %+v", event)
	}
}

func TestMapKeyboard(t *testing.T) {
	t.Parallel()

	if _, ok := mapKeyboard(nil); ok {
		t.Error("empty keyboard should map to no markup")
	}

	keyboard := channel.Keyboard{
		{{Label: "Profile", Token: "t1"}, {Label: "Files", Token: "t2"}},
		{{Label: "Polls", Token: "t3"}},
	}
	markup, ok := mapKeyboard(keyboard)
	if !ok {
		t.Fatal("expected markup")
	}
	if len(markup.InlineKeyboard) != 2 || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("unexpected shape: %+v", markup.InlineKeyboard)
	}
	button := markup.InlineKeyboard[0][0]
	if button.Text != "Profile" || button.CallbackData == nil || *button.CallbackData != "t1" {
		t.Errorf("unexpected button: %+v", button)
	}
}

func TestFetchEventsReturnsOnCancel(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"depot","username":"depot_bot"}}`)
			return
		}
		// Hold the long poll open like the real platform does.
		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
		}
		io.WriteString(w, `{"ok":true,"result":[]}`)
	}))
	defer srv.Close()

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint("42:token", srv.URL+"/bot%s/%s")
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	a := &Adapter{
		bot:         bot,
		logger:      slog.Default(),
		limiter:     rate.NewLimiter(1, 1),
		pollTimeout: 30,
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, _, err = a.FetchEvents(ctx, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("fetch returned %v after cancel, should be immediate", elapsed)
	}
}
