// Package channel defines the inbound event model and the outbound
// gateway consumed by handlers. The telegram subpackage implements both
// sides over the Bot API; everything above this package is
// transport-agnostic.
package channel

import (
	"context"
	"time"
)

// Sender identifies the account behind an inbound event.
type Sender struct {
	ID        int64
	Handle    string
	FirstName string
	LastName  string
}

// ObjectMeta describes an uploaded file or photo. RemoteRef is the
// platform's opaque token for re-fetching the bytes; the bot never
// stores content itself.
type ObjectMeta struct {
	Name      string
	MediaType string
	SizeBytes int64
	RemoteRef string
}

// ButtonPress is an inline-button press echoing back the opaque token
// the button was rendered with. PressID is needed to acknowledge the
// press so the client stops its spinner.
type ButtonPress struct {
	PressID   string
	Token     string
	MessageID int
}

// Event is one inbound update. Exactly one of Text, Document, Photo, or
// Press carries the payload; Sender and ChatID are always set when the
// platform supplies them.
type Event struct {
	ChatID     int64
	MessageID  int
	Sender     Sender
	Text       string
	Document   *ObjectMeta
	Photo      *ObjectMeta
	Press      *ButtonPress
	ReceivedAt time.Time
}

// Button is one inline keyboard button. Token is opaque to the
// transport; the dispatcher resolves it on press.
type Button struct {
	Label string
	Token string
}

// Keyboard is an inline keyboard: rows of buttons.
type Keyboard [][]Button

// MessageRef identifies a sent message for later editing.
type MessageRef int

// Gateway is the outbound side: everything a handler can do in
// response to an event.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string, keyboard Keyboard) (MessageRef, error)
	SendDocument(ctx context.Context, chatID int64, remoteRef, caption string) error
	SendPhoto(ctx context.Context, chatID int64, remoteRef, caption string) error
	EditMessage(ctx context.Context, chatID int64, ref MessageRef, text string, keyboard Keyboard) error
	AnswerButtonPress(ctx context.Context, pressID, text string) error
}

// Source is the inbound side: a long-poll fetch returning the next
// batch of events and the cursor to resume from. The cursor lives only
// in the caller's memory; a restart resumes from the platform default,
// which is why every write downstream is safe to replay.
type Source interface {
	FetchEvents(ctx context.Context, cursor int) ([]Event, int, error)
}
