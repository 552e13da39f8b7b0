package router

import (
	"testing"

	"github.com/depotbot/depotbot/internal/channel"
)

func TestClassifyText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		kind    Kind
		command string
		args    string
	}{
		{"bare command", "/start", KindCommand, "start", ""},
		{"command with args", "/profile extra args", KindCommand, "profile", "extra args"},
		{"free text", "just chatting", KindFreeText, "", ""},
		{"bot suffix stripped", "/help@depot_bot", KindCommand, "help", ""},
		{"bot suffix with args", "/my_files@depot_bot recent", KindCommand, "my_files", "recent"},
		{"lone slash is free text", "/", KindFreeText, "", ""},
		{"empty text ignored", "", KindIgnore, "", ""},
		{"args trimmed", "/delete   ref-1  ", KindCommand, "delete", "ref-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(channel.Event{Text: tt.text})
			if got.Kind != tt.kind {
				t.Fatalf("kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.Command != tt.command || got.Args != tt.args {
				t.Errorf("command = %q args = %q, want %q %q", got.Command, got.Args, tt.command, tt.args)
			}
			if tt.kind == KindFreeText && got.Text != tt.text {
				t.Errorf("text = %q, want %q", got.Text, tt.text)
			}
		})
	}
}

func TestClassifyPayloads(t *testing.T) {
	t.Parallel()

	doc := Classify(channel.Event{Document: &channel.ObjectMeta{Name: "a.pdf"}})
	if doc.Kind != KindDocument {
		t.Errorf("document kind = %v", doc.Kind)
	}
	photo := Classify(channel.Event{Photo: &channel.ObjectMeta{}})
	if photo.Kind != KindPhoto {
		t.Errorf("photo kind = %v", photo.Kind)
	}
	press := Classify(channel.Event{Press: &channel.ButtonPress{Token: "t"}})
	if press.Kind != KindButtonPress {
		t.Errorf("press kind = %v", press.Kind)
	}
	// A press wins over any stray text on the same update.
	both := Classify(channel.Event{Text: "/start", Press: &channel.ButtonPress{Token: "t"}})
	if both.Kind != KindButtonPress {
		t.Errorf("press+text kind = %v", both.Kind)
	}
}

func TestClassifyFreeTextRouting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want freeTextRoute
	}{
		{"email: a@b.com", routeProfile},
		{"phone: 555", routeProfile},
		{"question: Q?\noption: A\noption: B", routePoll},
		{"email: a@b.com\nquestion: also here", routeProfile},
		{"hello", routeUnrecognized},
	}
	for _, tt := range tests {
		if got := classifyFreeText(tt.text); got != tt.want {
			t.Errorf("classifyFreeText(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
