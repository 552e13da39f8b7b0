// Package router classifies inbound events and dispatches each one to
// exactly one handler, maintaining per-identity ordering.
package router

import (
	"strings"

	"github.com/depotbot/depotbot/internal/channel"
	"github.com/depotbot/depotbot/internal/parse"
)

// Kind is the classification of an inbound event.
type Kind int

const (
	// KindIgnore marks events with no routable payload.
	KindIgnore Kind = iota
	KindCommand
	KindFreeText
	KindDocument
	KindPhoto
	KindButtonPress
)

// Classified is the routing decision for one event.
type Classified struct {
	Kind    Kind
	Command string // command name without the slash prefix
	Args    string // remainder of the command line, trimmed
	Text    string // free text payload
}

// commandPrefix starts a command message.
const commandPrefix = "/"

// Classify decides how an event routes. Text beginning with the command
// prefix parses as Command(name, args); a "/name@botname" form drops
// the bot suffix. Everything else with text is FreeText; uploads and
// button presses classify by payload shape.
func Classify(event channel.Event) Classified {
	switch {
	case event.Press != nil:
		return Classified{Kind: KindButtonPress}
	case event.Document != nil:
		return Classified{Kind: KindDocument}
	case event.Photo != nil:
		return Classified{Kind: KindPhoto}
	}

	text := event.Text
	if !strings.HasPrefix(text, commandPrefix) {
		if text == "" {
			return Classified{Kind: KindIgnore}
		}
		return Classified{Kind: KindFreeText, Text: text}
	}

	name, args, _ := strings.Cut(strings.TrimPrefix(text, commandPrefix), " ")
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return Classified{Kind: KindFreeText, Text: text}
	}
	return Classified{Kind: KindCommand, Command: name, Args: strings.TrimSpace(args)}
}

// freeTextRoute refines a FreeText classification into the concrete
// handler path: profile update, poll draft, or unrecognized.
type freeTextRoute int

const (
	routeUnrecognized freeTextRoute = iota
	routeProfile
	routePoll
)

func classifyFreeText(text string) freeTextRoute {
	if parse.HasProfileKeys(text) {
		return routeProfile
	}
	if parse.HasPollKey(text) {
		return routePoll
	}
	return routeUnrecognized
}
